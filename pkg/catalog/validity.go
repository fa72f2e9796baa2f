package catalog

import (
	"sort"
	"strings"
	"unicode"
)

// Warning is a coding-validity finding attached to a record. Codes match the
// numeric codes used by downstream editors.
type Warning int

const (
	WarningNonASCII Warning = iota
	WarningWhitespace
	WarningLeadingDigit
	WarningDuplicate
)

func (w Warning) String() string {
	switch w {
	case WarningNonASCII:
		return "non-ascii"
	case WarningWhitespace:
		return "whitespace"
	case WarningLeadingDigit:
		return "leading-digit"
	case WarningDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// CodeWarnings lists the warnings a field code raises on its own, ignoring
// duplication.
func CodeWarnings(code string) []Warning {
	var out []Warning
	if hasNonASCII(code) {
		out = append(out, WarningNonASCII)
	}
	if hasWhitespace(code) {
		out = append(out, WarningWhitespace)
	}
	if code != "" && code[0] >= '0' && code[0] <= '9' {
		out = append(out, WarningLeadingDigit)
	}
	return out
}

// OptionWarnings lists the warnings an option value raises.
func OptionWarnings(value string) []Warning {
	var out []Warning
	if hasNonASCII(value) {
		out = append(out, WarningNonASCII)
	}
	if hasWhitespace(value) {
		out = append(out, WarningWhitespace)
	}
	return out
}

// CheckValidity returns a copy of cat with warnings recomputed. A field code
// used by more than one form is flagged as a duplicate.
func CheckValidity(cat Catalog) Catalog {
	dupes := crossFormDuplicates(cat)
	out := cat.Clone()
	for i := range out {
		rec := &out[i]
		warnings := CodeWarnings(rec.FieldCode)
		if _, ok := dupes[rec.FieldCode]; ok {
			warnings = append(warnings, WarningDuplicate)
		}
		rec.Warnings = sortWarnings(warnings)
		rec.OptionWarnings = nil
		if rec.HasOption() {
			rec.OptionWarnings = OptionWarnings(rec.OptionValue)
		}
		for j := range rec.Options {
			rec.Options[j].Warnings = OptionWarnings(rec.Options[j].Value)
		}
	}
	return out
}

func crossFormDuplicates(cat Catalog) map[string]struct{} {
	forms := make(map[string]map[string]struct{})
	for _, rec := range cat {
		set, ok := forms[rec.FieldCode]
		if !ok {
			set = make(map[string]struct{})
			forms[rec.FieldCode] = set
		}
		set[rec.FormCode] = struct{}{}
	}
	out := make(map[string]struct{})
	for code, set := range forms {
		if len(set) > 1 {
			out[code] = struct{}{}
		}
	}
	return out
}

func sortWarnings(in []Warning) []Warning {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i] < in[j] })
	return in
}

func hasNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return true
		}
	}
	return false
}

func hasWhitespace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
