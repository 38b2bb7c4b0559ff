// Package progress carries pipeline progress events to whoever is
// watching. Reporting is observational only: sinks cannot slow down or
// fail the run.
package progress

// Phase names the pipeline stage an event belongs to.
type Phase string

const (
	PhasePlan      Phase = "plan"
	PhaseCleanup   Phase = "cleanup"
	PhaseSegment   Phase = "segment"
	PhaseTranslate Phase = "translate"
	PhaseAssemble  Phase = "assemble"
	PhaseWrite     Phase = "write"
)

// Event is one progress report. Chunk counters are set during cleanup,
// sentence counters during translation; either pair may be zero when it
// does not apply. Percentage covers the current phase, 0-100.
type Event struct {
	Phase           Phase
	CurrentChunk    int
	TotalChunks     int
	CurrentSentence int
	TotalSentences  int
	Percentage      float64
	Message         string
}

// Func receives events. A nil Func is a valid silent sink.
type Func func(Event)

// Emit sends e to the sink, tolerating a nil receiver.
func (f Func) Emit(e Event) {
	if f != nil {
		f(e)
	}
}

// Percent computes a 0-100 completion figure, returning 0 for an empty
// total.
func Percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
