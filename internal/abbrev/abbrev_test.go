package abbrev_test

import (
	"testing"

	"github.com/valpere/perebook/internal/abbrev"
)

// --- Normalize tests ---

func TestNormalize_Honorifics(t *testing.T) {
	got := abbrev.Normalize("Dr. Smith met Mr. Jones and Mrs. Brown.")
	want := "Dr Smith met Mr Jones and Mrs Brown."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_SpecificFormWinsOverPrefix(t *testing.T) {
	// "U.S.S.R." must be rewritten as a whole, not as "US" + "S.R.".
	got := abbrev.Normalize("The U.S.S.R. and the U.S. signed it.")
	want := "The USSR and the US signed it."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_Latinisms(t *testing.T) {
	got := abbrev.Normalize("Cities, e.g. Kyiv, i.e. the capital, etc.")
	want := "Cities, eg Kyiv, ie the capital, etc"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_MultipleOccurrences(t *testing.T) {
	got := abbrev.Normalize("Dr. A spoke. Dr. B listened.")
	want := "Dr A spoke. Dr B listened."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_NoAbbreviationsUnchanged(t *testing.T) {
	text := "Nothing to rewrite here. Plain sentences only."
	if got := abbrev.Normalize(text); got != text {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestNormalize_CaseSensitive(t *testing.T) {
	// Lowercase "mr." is not in the table and must survive untouched.
	text := "the file mr.dat exists"
	if got := abbrev.Normalize(text); got != text {
		t.Errorf("expected %q, got %q", text, got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	text := "Prof. X from the U.K. arrived at 9 a.m."
	once := abbrev.Normalize(text)
	twice := abbrev.Normalize(once)
	if once != twice {
		t.Errorf("second pass changed output: %q vs %q", once, twice)
	}
}
