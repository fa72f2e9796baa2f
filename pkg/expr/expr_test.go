package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReferences(t *testing.T) {
	cases := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"{age} > 18", []string{"age"}},
		{"{bp.sys} > {bp.dia} and {meds[0].drug} notempty", []string{"bp", "meds"}},
		{"{a} = '{b}' or {c} = \"x}\"", []string{"a", "c"}},
		{"{ spaced } = 1 and {} and {unterminated", []string{"spaced"}},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, References(tc.input)); diff != "" {
				t.Fatalf("References(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

func TestRename(t *testing.T) {
	renames := map[string]string{
		"q1":  "form7_q1",
		"q10": "form7_q10",
		"bp":  "form7_bp",
	}
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"exact token", "{q1} = 1", "{form7_q1} = 1"},
		{"longer identifier untouched by shorter key", "{q10} = 2 or {q1} = 1", "{form7_q10} = 2 or {form7_q1} = 1"},
		{"prefix of unrelated identifier", "{q1x} = 1", "{q1x} = 1"},
		{"dotted reference", "{bp.sys} > 120", "{form7_bp.sys} > 120"},
		{"string literal untouched", "{q1} = '{q1}'", "{form7_q1} = '{q1}'"},
		{"no references", "true", "true"},
		{"unterminated brace kept", "{q1} and {q1", "{form7_q1} and {q1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Rename(tc.input, renames); got != tc.want {
				t.Fatalf("Rename(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRename_Idempotent(t *testing.T) {
	renames := map[string]string{"q1": "form7_q1"}
	once := Rename("{q1} = 1", renames)
	twice := Rename(once, renames)
	if once != twice {
		t.Fatalf("expected idempotent rename, got %q then %q", once, twice)
	}
}
