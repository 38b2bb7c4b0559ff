// Package abbrev normalizes abbreviation spellings that confuse sentence
// boundary detection and text-to-speech engines. It rewrites known
// abbreviations to period-free canonical forms ("Dr." → "Dr", "U.S." →
// "US") with ordered literal substitutions.
package abbrev

import "strings"

type rule struct {
	from string
	to   string
}

// rules is an ordered table: longer, more specific forms must come before
// their shorter prefixes ("U.S.S.R." before "U.S.A." before "U.S.") so the
// most specific entry wins at any position. All matches are literal and
// case-sensitive.
var rules = []rule{
	{"U.S.S.R.", "USSR"},
	{"U.S.A.", "USA"},
	{"U.S.", "US"},
	{"U.K.", "UK"},
	{"U.N.", "UN"},
	{"D.C.", "DC"},
	{"Ph.D.", "PhD"},
	{"M.D.", "MD"},
	{"B.C.", "BC"},
	{"A.D.", "AD"},
	{"a.m.", "am"},
	{"p.m.", "pm"},
	{"e.g.", "eg"},
	{"i.e.", "ie"},
	{"etc.", "etc"},
	{"vs.", "vs"},
	{"cf.", "cf"},
	{"Mrs.", "Mrs"},
	{"Mr.", "Mr"},
	{"Ms.", "Ms"},
	{"Dr.", "Dr"},
	{"Prof.", "Prof"},
	{"Rev.", "Rev"},
	{"Gen.", "Gen"},
	{"Col.", "Col"},
	{"Capt.", "Capt"},
	{"Sgt.", "Sgt"},
	{"Lt.", "Lt"},
	{"Jr.", "Jr"},
	{"Sr.", "Sr"},
	{"St.", "St"},
	{"Mt.", "Mt"},
	{"Ave.", "Ave"},
	{"Blvd.", "Blvd"},
}

var replacer = newReplacer()

func newReplacer() *strings.Replacer {
	pairs := make([]string, 0, len(rules)*2)
	for _, r := range rules {
		pairs = append(pairs, r.from, r.to)
	}
	return strings.NewReplacer(pairs...)
}

// Normalize applies the abbreviation table to text in a single pass. At
// each position the earliest table entry that matches is applied, so the
// ordering in rules decides ties between overlapping forms. Text without
// known abbreviations is returned unchanged.
func Normalize(text string) string {
	return replacer.Replace(text)
}
