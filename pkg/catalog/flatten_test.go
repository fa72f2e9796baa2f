package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcatalog/pkg/schema"
)

var testForm = FormContext{Code: "12", Name: "Intake"}

func flattenDefinition(t *testing.T, raw string, opts ...Option) Catalog {
	t.Helper()
	def, err := schema.DecodeDefinition(raw)
	if err != nil {
		t.Fatalf("decode definition: %v", err)
	}
	flattener := NewFlattener(nil, opts...)
	var out Catalog
	for _, el := range def.Elements() {
		records, err := flattener.Flatten(context.Background(), el, testForm)
		if err != nil {
			t.Fatalf("flatten %s: %v", el.Base().Name, err)
		}
		out = append(out, records...)
	}
	return out
}

type row struct {
	Code, Title, Parent, ParentTitle, Element string
	Type                                      DataType
	Value, Text                               string
}

func rows(cat Catalog) []row {
	out := make([]row, 0, len(cat))
	for _, rec := range cat {
		out = append(out, row{
			Code:        rec.FieldCode,
			Title:       rec.FieldTitle,
			Parent:      rec.ParentFieldCode,
			ParentTitle: rec.ParentFieldTitle,
			Element:     rec.ElementType,
			Type:        rec.DataType,
			Value:       rec.OptionValue,
			Text:        rec.OptionText,
		})
	}
	return out
}

func TestFlatten_TopLevelLeaves(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "text", "name": "age", "title": "Age", "inputType": "number"},
  {"type": "text", "name": "visit", "inputType": "date"},
  {"type": "comment", "name": "notes", "title": "<b>Notes</b>"},
  {"type": "expression", "name": "bmi", "expression": "{weight} / ({height} * {height})"},
  {"type": "html", "name": "banner", "html": "<p>hello</p>"}
]}]}`)

	want := []row{
		{Code: "age", Title: "Age", Parent: "age", ParentTitle: "Age", Element: "text", Type: DataTypeNumeric},
		{Code: "visit", Title: "visit", Parent: "visit", ParentTitle: "visit", Element: "text", Type: DataTypeDatetime},
		{Code: "notes", Title: "Notes", Parent: "notes", ParentTitle: "Notes", Element: "comment", Type: DataTypeString},
		{Code: "bmi", Title: "bmi", Parent: "bmi", ParentTitle: "bmi", Element: "expression", Type: DataTypeNumeric},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
	if cat[3].Expression != "{weight} / ({height} * {height})" {
		t.Fatalf("expression not carried: %q", cat[3].Expression)
	}
}

func TestFlatten_IncludesHTMLWhenRequested(t *testing.T) {
	raw := `{"pages": [{"elements": [
  {"type": "panel", "name": "pn", "elements": [{"type": "html", "name": "banner"}]}
]}]}`
	if cat := flattenDefinition(t, raw); len(cat) != 0 {
		t.Fatalf("expected html to be dropped, got %+v", rows(cat))
	}
	cat := flattenDefinition(t, raw, WithHTML(true))
	if len(cat) != 1 || cat[0].ElementType != "panel - html" {
		t.Fatalf("expected html record inside panel, got %+v", rows(cat))
	}
}

func TestFlatten_ChoiceExpansion(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "radiogroup", "name": "sex", "title": "Sex", "choices": [{"value": 1, "text": "Male"}, {"value": 2, "text": "Female"}]},
  {"type": "checkbox", "name": "sym", "title": "Symptoms", "choices": ["cough", "fever"]},
  {"type": "boolean", "name": "smoker", "title": "Smoker"}
]}]}`)

	want := []row{
		{Code: "sex", Title: "Sex", Parent: "sex", ParentTitle: "Sex", Element: "radiogroup", Type: DataTypeCategory, Value: "1", Text: "Male"},
		{Code: "sex", Title: "Sex", Parent: "sex", ParentTitle: "Sex", Element: "radiogroup", Type: DataTypeCategory, Value: "2", Text: "Female"},
		{Code: "sym_cough", Title: "Symptoms - cough", Parent: "sym", ParentTitle: "Symptoms", Element: "checkbox", Type: DataTypeBool, Value: "cough", Text: "cough"},
		{Code: "sym_fever", Title: "Symptoms - fever", Parent: "sym", ParentTitle: "Symptoms", Element: "checkbox", Type: DataTypeBool, Value: "fever", Text: "fever"},
		{Code: "smoker", Title: "Smoker", Parent: "smoker", ParentTitle: "Smoker", Element: "boolean", Type: DataTypeCategory, Value: "true", Text: "Yes"},
		{Code: "smoker", Title: "Smoker", Parent: "smoker", ParentTitle: "Smoker", Element: "boolean", Type: DataTypeCategory, Value: "false", Text: "No"},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
}

func TestFlatten_OptionCodesFollowElementType(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "dropdown", "name": "city", "choices": ["a", "b", "c"]},
  {"type": "tagbox", "name": "tags", "choices": ["x", "y"]},
  {"type": "rating", "name": "score", "rateValues": [1, 2, 3]}
]}]}`)

	for _, rec := range cat {
		if !rec.HasOption() {
			t.Fatalf("expected every record to carry an option: %+v", rec)
		}
		base := rec.ParentFieldCode
		if strings.Contains(rec.ElementType, "tagbox") || strings.Contains(rec.ElementType, "checkbox") {
			if rec.FieldCode != base+"_"+rec.OptionValue {
				t.Fatalf("multi-select code %q should be suffixed with %q", rec.FieldCode, rec.OptionValue)
			}
			continue
		}
		if rec.FieldCode != base {
			t.Fatalf("choosable code %q should equal base %q", rec.FieldCode, base)
		}
	}
	if len(cat) != 8 {
		t.Fatalf("expected 8 option records, got %d", len(cat))
	}
}

func TestFlatten_HasOtherAddsComment(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "radiogroup", "name": "job", "title": "Job", "hasOther": true, "otherText": "Something else", "choices": ["a"]},
  {"type": "checkbox", "name": "pets", "title": "Pets", "showOtherItem": true, "choices": ["cat"]}
]}]}`)

	want := []row{
		{Code: "job", Title: "Job", Parent: "job", ParentTitle: "Job", Element: "radiogroup", Type: DataTypeCategory, Value: "a", Text: "a"},
		{Code: "job_comment", Title: "Job - Something else", Parent: "job", ParentTitle: "Job", Element: "text", Type: DataTypeString},
		{Code: "pets_cat", Title: "Pets - cat", Parent: "pets", ParentTitle: "Pets", Element: "checkbox", Type: DataTypeBool, Value: "cat", Text: "cat"},
		{Code: "pets_comment", Title: "Pets - other", Parent: "pets", ParentTitle: "Pets", Element: "text", Type: DataTypeString},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
}

func TestFlatten_MultipleText(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "multipletext", "name": "bp", "title": "Blood pressure", "visibleIf": "{adult} = true", "items": [
    {"name": "sys", "title": "Systolic", "inputType": "number"},
    {"name": "dia"}
  ]}
]}]}`)

	want := []row{
		{Code: "bp_sys", Title: "Systolic", Parent: "bp", ParentTitle: "Blood pressure", Element: "multipletext - text", Type: DataTypeNumeric},
		{Code: "bp_dia", Title: "bp_dia", Parent: "bp", ParentTitle: "Blood pressure", Element: "multipletext - text", Type: DataTypeString},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
	for _, rec := range cat {
		if rec.VisibilityCondition != "{adult} = true" {
			t.Fatalf("visibility not inherited: %+v", rec)
		}
	}
}

func TestFlatten_MatrixRowsBecomeRadioGroups(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "matrix", "name": "mood", "title": "Mood",
   "rows": [{"value": "am", "text": "Morning"}, {"value": "pm", "text": "Evening"}],
   "columns": [{"value": 1, "text": "Low"}, {"value": 2, "text": "High"}]}
]}]}`)

	if len(cat) != 4 {
		t.Fatalf("expected 4 option records for a 2x2 matrix, got %d", len(cat))
	}
	nested := Nest(cat)
	if len(nested) != 2 {
		t.Fatalf("expected 2 row fields, got %d", len(nested))
	}
	for _, rec := range cat {
		if !strings.HasSuffix(rec.ElementType, "radiogroup") {
			t.Fatalf("unexpected element type %q", rec.ElementType)
		}
		if rec.ParentFieldCode != "mood" || rec.ParentFieldTitle != "Mood" {
			t.Fatalf("unexpected parent %q/%q", rec.ParentFieldCode, rec.ParentFieldTitle)
		}
	}
	if cat[0].FieldCode != "mood_am" || cat[0].FieldTitle != "Mood - Morning" {
		t.Fatalf("unexpected first row %+v", rows(cat)[0])
	}
}

func TestFlatten_MatrixOfFourRowsWithTwoColumns(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "matrix", "name": "grid", "rows": ["r1", "r2", "r3", "r4"], "columns": ["yes", "no"]}
]}]}`)

	nested := Nest(cat)
	if len(nested) != 4 {
		t.Fatalf("expected 4 leaf fields, got %d", len(nested))
	}
	for _, rec := range nested {
		if !strings.HasSuffix(rec.ElementType, "radiogroup") || rec.ParentFieldCode != "grid" {
			t.Fatalf("unexpected leaf %+v", rec)
		}
		if len(rec.Options) != 2 {
			t.Fatalf("expected 2 options on %s, got %d", rec.FieldCode, len(rec.Options))
		}
	}
	if len(cat) != 8 {
		t.Fatalf("expected 8 option rows, got %d", len(cat))
	}
}

func TestFlatten_MatrixDropdown(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "matrixdropdown", "name": "meds", "title": "Medication",
   "choices": [1, 2],
   "rows": [{"value": "asp", "text": "Aspirin"}],
   "columns": [
     {"name": "dose", "title": "Dose"},
     {"name": "note", "cellType": "text"},
     {"name": "taken", "cellType": "boolean"}
   ]}
]}]}`)

	want := []row{
		{Code: "meds_asp_dose", Title: "Medication - Aspirin - Dose", Parent: "meds_asp", ParentTitle: "Medication - Aspirin", Element: "matrixdropdown - dropdown", Type: DataTypeCategory, Value: "1", Text: "1"},
		{Code: "meds_asp_dose", Title: "Medication - Aspirin - Dose", Parent: "meds_asp", ParentTitle: "Medication - Aspirin", Element: "matrixdropdown - dropdown", Type: DataTypeCategory, Value: "2", Text: "2"},
		{Code: "meds_asp_note", Title: "Medication - Aspirin - note", Parent: "meds_asp", ParentTitle: "Medication - Aspirin", Element: "matrixdropdown - text", Type: DataTypeString},
		{Code: "meds_asp_taken", Title: "Medication - Aspirin - taken", Parent: "meds_asp", ParentTitle: "Medication - Aspirin", Element: "matrixdropdown - boolean", Type: DataTypeCategory, Value: "true", Text: "Yes"},
		{Code: "meds_asp_taken", Title: "Medication - Aspirin - taken", Parent: "meds_asp", ParentTitle: "Medication - Aspirin", Element: "matrixdropdown - boolean", Type: DataTypeCategory, Value: "false", Text: "No"},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
}

func TestFlatten_DynamicContainersUseRepetitionTemplate(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "matrixdynamic", "name": "kids", "title": "Children", "columns": [{"name": "age", "cellType": "text", "inputType": "number"}]},
  {"type": "paneldynamic", "name": "visits", "title": "Visits", "templateElements": [
    {"type": "text", "name": "date", "inputType": "date"},
    {"type": "panel", "name": "inner", "elements": [{"type": "text", "name": "where"}]}
  ]}
]}]}`)

	want := []row{
		{Code: "kids_r1_age", Title: "Children - age", Parent: "kids_r1", ParentTitle: "Children", Element: "matrixdynamic - text", Type: DataTypeNumeric},
		{Code: "visits_r1_date", Title: "visits_r1_date", Parent: "visits_r1", ParentTitle: "Visits", Element: "paneldynamic - text", Type: DataTypeDatetime},
		{Code: "visits_r1_where", Title: "visits_r1_where", Parent: "visits_r1_inner", ParentTitle: "visits_r1_inner", Element: "paneldynamic - panel - text", Type: DataTypeString},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
	for _, rec := range cat {
		if !rec.IsDynamic() {
			t.Fatalf("expected dynamic template, got %q", rec.ElementType)
		}
	}
}

func TestFlatten_DynamicPanelInsidePanel(t *testing.T) {
	cat := flattenDefinition(t, `{"pages": [{"elements": [
  {"type": "panel", "name": "section", "elements": [
    {"type": "text", "name": "intro"},
    {"type": "paneldynamic", "name": "visits", "title": "Visits", "templateElements": [
      {"type": "text", "name": "date", "inputType": "date"}
    ]}
  ]}
]}]}`)

	want := []row{
		{Code: "intro", Title: "intro", Parent: "section", ParentTitle: "section", Element: "panel - text", Type: DataTypeString},
		{Code: "visits_r1_date", Title: "visits_r1_date", Parent: "visits_r1", ParentTitle: "Visits", Element: "panel - paneldynamic - text", Type: DataTypeDatetime},
	}
	if diff := cmp.Diff(want, rows(cat)); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
	if cat[0].IsDynamic() || !cat[1].IsDynamic() {
		t.Fatalf("only the template inside the dynamic panel is dynamic: %v %v", cat[0].IsDynamic(), cat[1].IsDynamic())
	}
}

func TestFlatten_MalformedElementDegrades(t *testing.T) {
	raw := `{"pages": [{"elements": [
  {"type": "panel", "name": "pn", "elements": [
    {"name": "broken"},
    {"type": "text", "name": "ok"}
  ]}
]}]}`
	cat := flattenDefinition(t, raw)
	if len(cat) != 2 {
		t.Fatalf("expected placeholder and sibling, got %+v", rows(cat))
	}
	if cat[0].Error == "" || cat[0].FieldCode != "broken" {
		t.Fatalf("expected placeholder for broken element, got %+v", cat[0])
	}
	if cat[1].FieldCode != "ok" || cat[1].Error != "" {
		t.Fatalf("expected sibling to survive, got %+v", cat[1])
	}

	def, err := schema.DecodeDefinition(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err = NewFlattener(nil, WithStrictElements(true)).Flatten(context.Background(), def.Elements()[0], testForm)
	var flattenErr *ElementFlattenError
	if !errors.As(err, &flattenErr) {
		t.Fatalf("expected ElementFlattenError in strict mode, got %v", err)
	}
	if !errors.Is(err, schema.ErrMissingType) {
		t.Fatalf("expected missing type cause, got %v", err)
	}
}

func TestFlatten_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFlattener(nil).Flatten(ctx, &schema.Leaf{Common: schema.Common{Name: "a"}, Kind: schema.TypeText}, testForm)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
