// Package validator spot-checks that translated sentences are written in the
// expected target language.
package validator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/valpere/perebook/internal/detector"
	"github.com/valpere/perebook/internal/translator"
)

// minValidationLength is the minimum rune count required to attempt language
// detection. Shorter texts produce unreliable results and are accepted
// without validation.
const minValidationLength = 20

// Sampling bounds for CheckPairs. Checking every sentence would roughly
// double the cost of a run for little extra signal.
const (
	sampleStride = 10
	sampleCap    = 50
)

// Validator checks that translated text is in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		// Ambiguous language, cannot validate. Pass through.
		return true, nil
	}

	if !strings.EqualFold(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

// Report summarizes a sampling pass over translated sentences.
type Report struct {
	Checked    int
	Mismatched int
}

// CheckPairs samples translated sentences and counts how many appear to be in
// the wrong language. Failure markers, empty targets and sentences too short
// to detect are skipped. Mismatches are logged but never fail the run.
func (v *Validator) CheckPairs(pairs []translator.SentencePair, targetLang string) Report {
	var rep Report
	if targetLang == "" {
		return rep
	}

	for i := 0; i < len(pairs) && rep.Checked < sampleCap; i += sampleStride {
		p := pairs[i]
		target := strings.TrimSpace(p.Target)
		if target == "" || translator.IsFailureMarker(target) {
			continue
		}
		if len([]rune(target)) < minValidationLength {
			continue
		}

		rep.Checked++
		if ok, err := v.IsValid(target, targetLang); !ok {
			rep.Mismatched++
			slog.Warn("translated sentence not in target language",
				"sentence", p.Index,
				"reason", err)
		}
	}

	return rep
}
