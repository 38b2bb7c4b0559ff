package detector

import (
	"log/slog"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// sampleRunes caps how much of the input is fed to the detector.
// Book-length inputs do not improve accuracy past the first pages.
const sampleRunes = 2000

// languages restricts the model set so the detector loads fast.
var languages = []lingua.Language{
	lingua.Bulgarian,
	lingua.Czech,
	lingua.Danish,
	lingua.Dutch,
	lingua.English,
	lingua.Finnish,
	lingua.French,
	lingua.German,
	lingua.Hungarian,
	lingua.Italian,
	lingua.Bokmal,
	lingua.Polish,
	lingua.Portuguese,
	lingua.Romanian,
	lingua.Russian,
	lingua.Slovak,
	lingua.Spanish,
	lingua.Swedish,
	lingua.Turkish,
	lingua.Ukrainian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	text = sample(text)
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lowercase ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// DetectSource resolves the source language for "auto". Detection failure
// falls back to English so the run can proceed.
func (d *Detector) DetectSource(text string) string {
	code, ok := d.DetectISO(text)
	if !ok {
		slog.Warn("language detection failed, assuming English")
		return "en"
	}
	return code
}

func sample(text string) string {
	if len(text) <= sampleRunes {
		return text
	}
	n := 0
	for i := range text {
		n++
		if n > sampleRunes {
			return text[:i]
		}
	}
	return text
}
