package translator_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valpere/perebook/internal/llm"
	"github.com/valpere/perebook/internal/translator"
)

// memStub is an in-memory translator.Memory for tests.
type memStub struct {
	data  map[string]string
	saved map[string]string
}

func (m *memStub) Lookup(ctx context.Context, source string) (string, bool) {
	target, ok := m.data[source]
	return target, ok
}

func (m *memStub) Save(ctx context.Context, source, target string) {
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[source] = target
}

func numberedReply(targets ...string) string {
	var sb strings.Builder
	for i, t := range targets {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}
	return sb.String()
}

// --- Translate tests ---

func TestTranslate_PerfectBatches(t *testing.T) {
	sentences := make([]string, 10)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Source %d.", i)
	}

	responses := []string{
		numberedReply("T0", "T1", "T2", "T3"),
		numberedReply("T4", "T5", "T6", "T7"),
		numberedReply("T8", "T9"),
	}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		return responses[call], nil
	}}

	pairs, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 10 {
		t.Fatalf("expected 10 pairs, got %d", len(pairs))
	}
	for i, p := range pairs {
		if p.Index != uint32(i) {
			t.Errorf("pair %d: expected index %d, got %d", i, i, p.Index)
		}
		if p.Source != sentences[i] {
			t.Errorf("pair %d: source mismatch: %q", i, p.Source)
		}
		if want := fmt.Sprintf("T%d", i); p.Target != want {
			t.Errorf("pair %d: expected target %q, got %q", i, want, p.Target)
		}
	}
	if stats.Batches != 3 {
		t.Errorf("expected 3 batches, got %d", stats.Batches)
	}
	if stats.Retried != 0 || stats.FailedSentences != 0 {
		t.Errorf("clean run should not retry or fail: %+v", stats)
	}
}

func TestTranslate_ContextAccompaniesLaterBatches(t *testing.T) {
	sentences := []string{"Alpha one.", "Beta two.", "Gamma three.", "Delta four."}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		return numberedReply("x", "y"), nil
	}}

	_, _, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := client.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 batch calls, got %d", len(calls))
	}
	if strings.Contains(calls[0].Prompt, "Context") {
		t.Errorf("first batch has no preceding text, prompt:\n%s", calls[0].Prompt)
	}
	second := calls[1].Prompt
	if !strings.Contains(second, "Context") {
		t.Fatalf("second batch should carry context, prompt:\n%s", second)
	}
	if !strings.Contains(second, "Alpha one.") || !strings.Contains(second, "Beta two.") {
		t.Errorf("context should hold the preceding sentences:\n%s", second)
	}
	// Context sentences are reading material, not part of the numbered list.
	if !strings.Contains(second, "1. Gamma three.") {
		t.Errorf("batch numbering should restart at 1:\n%s", second)
	}
}

func TestTranslate_MismatchTriggersIndividualRetry(t *testing.T) {
	sentences := []string{"One.", "Two.", "Three."}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		if call == 0 {
			// Two lines for three sentences: unusable as a whole.
			return numberedReply("bad", "alignment"), nil
		}
		return fmt.Sprintf("R%d", call), nil
	}}

	pairs, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.CallCount() != 4 {
		t.Fatalf("expected 1 batch + 3 retries, got %d calls", client.CallCount())
	}
	for i, want := range []string{"R1", "R2", "R3"} {
		if pairs[i].Target != want {
			t.Errorf("pair %d: expected %q, got %q", i, want, pairs[i].Target)
		}
	}
	if stats.Retried != 3 {
		t.Errorf("expected 3 retried sentences, got %d", stats.Retried)
	}

	// Retry prompts are the simplified single-sentence form.
	retryPrompt := client.Calls()[1].Prompt
	if !strings.Contains(retryPrompt, "Sentence: One.") {
		t.Errorf("expected single-sentence prompt, got:\n%s", retryPrompt)
	}
}

func TestTranslate_EmptyRetryYieldsFailureMarker(t *testing.T) {
	sentences := []string{"This sentence will not translate at all today."}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		if call == 0 {
			return "line one\nline two", nil // mismatch for 1 sentence
		}
		return "", nil
	}}

	pairs, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target := pairs[0].Target
	if !translator.IsFailureMarker(target) {
		t.Fatalf("expected failure marker, got %q", target)
	}
	if !strings.Contains(target, "This sentence will not transla") {
		t.Errorf("marker should embed a source snippet, got %q", target)
	}
	if !strings.Contains(target, "...") {
		t.Errorf("long source should be truncated in marker, got %q", target)
	}
	if stats.FailedSentences != 1 {
		t.Errorf("expected 1 failed sentence, got %d", stats.FailedSentences)
	}
}

func TestTranslate_BatchProviderErrorMarksAllAndContinues(t *testing.T) {
	sentences := []string{"A.", "B.", "C.", "D."}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		if call == 0 {
			return "", &llm.ProviderError{Status: 500, Message: "backend exploded"}
		}
		return numberedReply("t2", "t3"), nil
	}}

	pairs, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 2})
	if err != nil {
		t.Fatalf("batch failure must not abort the run: %v", err)
	}
	for i := 0; i < 2; i++ {
		if !translator.IsFailureMarker(pairs[i].Target) {
			t.Errorf("pair %d should carry a failure marker, got %q", i, pairs[i].Target)
		}
		if !strings.Contains(pairs[i].Target, "backend exploded") {
			t.Errorf("marker should carry the reason, got %q", pairs[i].Target)
		}
	}
	if pairs[2].Target != "t2" || pairs[3].Target != "t3" {
		t.Errorf("later batch should still translate: %v", pairs[2:])
	}
	if stats.FailedSentences != 2 {
		t.Errorf("expected 2 failed sentences, got %d", stats.FailedSentences)
	}
}

func TestTranslate_CancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		cancel()
		return numberedReply("a", "b"), nil
	}}

	_, _, err := translator.Translate(ctx, []string{"A.", "B.", "C.", "D."}, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 2})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if client.CallCount() != 1 {
		t.Errorf("expected abort after first call, got %d calls", client.CallCount())
	}
}

func TestTranslate_MemoryHitsSkipBackend(t *testing.T) {
	sentences := []string{"Fresh one.", "Cached middle.", "Fresh two."}
	mem := &memStub{data: map[string]string{"Cached middle.": "З кешу."}}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		return numberedReply("Нове один.", "Нове два."), nil
	}}

	pairs, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", Memory: mem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", stats.CacheHits)
	}
	if pairs[1].Target != "З кешу." {
		t.Errorf("cached pair should use stored target, got %q", pairs[1].Target)
	}
	if client.CallCount() != 1 {
		t.Fatalf("expected a single batch call, got %d", client.CallCount())
	}
	prompt := client.Calls()[0].Prompt
	if strings.Contains(prompt, "1. Cached middle.") || strings.Contains(prompt, "2. Cached middle.") {
		t.Errorf("cached sentence must not be sent for translation:\n%s", prompt)
	}
	if _, ok := mem.saved["Fresh one."]; !ok {
		t.Errorf("fresh translations should be saved, got %v", mem.saved)
	}
	if _, ok := mem.saved["Cached middle."]; ok {
		t.Errorf("cache hits must not be re-saved")
	}
}

func TestTranslate_MarkupProtectedAndRestored(t *testing.T) {
	sentences := []string{"He said <b>yes</b> loudly."}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		if strings.Contains(prompt, "<b>") {
			t.Errorf("raw markup leaked into prompt:\n%s", prompt)
		}
		return numberedReply("Він сказав [PH0]так[PH1] голосно."), nil
	}}

	pairs, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", SystemPrompt: "translate well"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Він сказав <b>так</b> голосно."; pairs[0].Target != want {
		t.Errorf("expected restored markup %q, got %q", want, pairs[0].Target)
	}
	if stats.MarkersLost != 0 {
		t.Errorf("expected no lost markers, got %d", stats.MarkersLost)
	}
	system := client.Calls()[0].System
	if !strings.Contains(system, "[PHn]") {
		t.Errorf("system prompt should carry the marker hint, got %q", system)
	}
	if !strings.Contains(system, "translate well") {
		t.Errorf("configured system prompt should be preserved, got %q", system)
	}
}

func TestTranslate_DefaultBatchSize(t *testing.T) {
	sentences := make([]string, 9)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("S%d.", i)
	}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		if call == 0 {
			return numberedReply("a", "b", "c", "d", "e", "f", "g", "h"), nil
		}
		return numberedReply("i"), nil
	}}

	_, stats, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Batches != 2 {
		t.Errorf("expected 2 batches of default size 8, got %d", stats.Batches)
	}
}

func TestTranslate_IndicesAlwaysComplete(t *testing.T) {
	// Mixed outcome run: success, mismatch+retry, batch failure. The index
	// sequence must still be exactly 0..N-1.
	sentences := []string{"A.", "B.", "C.", "D.", "E.", "F."}
	client := &llm.Mock{Reply: func(call int, prompt, system string) (string, error) {
		switch call {
		case 0:
			return numberedReply("ok1", "ok2"), nil
		case 1:
			return "only one line", nil // mismatch for 2 sentences
		case 2, 3:
			return "retried", nil
		default:
			return "", &llm.ProviderError{Status: 503, Message: "down"}
		}
	}}

	pairs, _, err := translator.Translate(context.Background(), sentences, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 6 {
		t.Fatalf("expected 6 pairs, got %d", len(pairs))
	}
	for i, p := range pairs {
		if p.Index != uint32(i) {
			t.Errorf("expected index %d at position %d, got %d", i, i, p.Index)
		}
		if p.Target == "" {
			t.Errorf("pair %d has no target", i)
		}
	}
}

func TestTranslate_HostedPacedBetweenBatches(t *testing.T) {
	client := &llm.Mock{
		IsHosted: true,
		Reply: func(call int, prompt, system string) (string, error) {
			return numberedReply("x"), nil
		},
	}
	start := time.Now()
	_, _, err := translator.Translate(context.Background(), []string{"A.", "B."}, client,
		translator.Config{SourceLang: "en", TargetLang: "uk", BatchSize: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < llm.PaceDelay {
		t.Errorf("expected pacing between batch calls, took %v", elapsed)
	}
}

func TestTranslate_EmptyInput(t *testing.T) {
	client := &llm.Mock{}
	pairs, stats, err := translator.Translate(context.Background(), nil, client,
		translator.Config{SourceLang: "en", TargetLang: "uk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 0 || stats.Batches != 0 {
		t.Errorf("expected empty result, got %v %+v", pairs, stats)
	}
	if client.CallCount() != 0 {
		t.Errorf("no calls expected for empty input, got %d", client.CallCount())
	}
}

// --- marker tests ---

func TestIsFailureMarker(t *testing.T) {
	if !translator.IsFailureMarker(translator.SentenceFailureMarker("src")) {
		t.Error("sentence marker not recognized")
	}
	if !translator.IsFailureMarker(translator.BatchFailureMarker(&llm.ProviderError{Message: "x"})) {
		t.Error("batch marker not recognized")
	}
	if translator.IsFailureMarker("Звичайний переклад.") {
		t.Error("ordinary translation misread as marker")
	}
}
