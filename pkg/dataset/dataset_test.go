package dataset

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/observation"
)

func testCatalog() catalog.Catalog {
	return catalog.AssignOrder(catalog.Catalog{
		{FormCode: "1", FormName: "Baseline", FieldCode: "age", FieldTitle: "Age", DataType: catalog.DataTypeNumeric},
		{FormCode: "1", FormName: "Baseline", FieldCode: "sex", FieldTitle: "Sex", DataType: catalog.DataTypeCategory, OptionValue: "1", OptionText: "Male"},
		{FormCode: "1", FormName: "Baseline", FieldCode: "sex", FieldTitle: "Sex", DataType: catalog.DataTypeCategory, OptionValue: "2", OptionText: "Female"},
		{FormCode: "2", FormName: "Followup", FieldCode: "weight", FieldTitle: "Weight", DataType: catalog.DataTypeNumeric},
	})
}

func testSet() observation.Set {
	return observation.Set{Records: []observation.Record{
		{Key: observation.Key{SubjectID: "s1", FormCode: "1", FillTimestamp: "2024-01-01"}, Values: map[string]any{"age": 30, "sex": "2", "extra": "x"}},
		{Key: observation.Key{SubjectID: "s1", FormCode: "2", FillTimestamp: "2024-02-01"}, Values: map[string]any{"weight": 70}},
		{Key: observation.Key{SubjectID: "s1", FormCode: "2", FillTimestamp: "2024-03-01"}, Values: map[string]any{"weight": 72}},
		{Key: observation.Key{SubjectID: "s2", FormCode: "1", FillTimestamp: "2024-01-05"}, Values: map[string]any{"age": 41}},
		{Key: observation.Key{SubjectID: "s2", FormCode: "9", FillTimestamp: "2024-01-05"}, Values: map[string]any{"q": 1}},
	}}
}

func TestSynchronize(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	obs := Synchronize(testSet(), testCatalog(), WithLogger(zap.New(core)))

	if len(obs.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(obs.Rows))
	}
	for _, row := range obs.Rows {
		if len(row.Values) != len(obs.Fields[row.FormCode]) {
			t.Fatalf("row %v has %d cells for %d fields", row.Key, len(row.Values), len(obs.Fields[row.FormCode]))
		}
	}
	if diff := cmp.Diff([]any{30, "2"}, obs.Rows[0].Values); diff != "" {
		t.Fatalf("first row mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{41, nil}, obs.Rows[3].Values); diff != "" {
		t.Fatalf("missing fields should be nil (-want +got):\n%s", diff)
	}

	if len(obs.Unmatched) != 1 || obs.Unmatched[0].FormCode != "9" || obs.Unmatched[0].Rows != 1 {
		t.Fatalf("expected form 9 to be reported, got %+v", obs.Unmatched)
	}
	var missing *FormCodeNotInCatalog
	if !errors.As(error(obs.Unmatched[0]), &missing) {
		t.Fatalf("unmatched entry should be a FormCodeNotInCatalog")
	}
	if diff := cmp.Diff(map[string][]string{"1": {"extra"}}, obs.Dropped); diff != "" {
		t.Fatalf("dropped fields mismatch (-want +got):\n%s", diff)
	}
	if logs.FilterMessage("observations dropped").Len() != 1 || logs.FilterMessage("answers without catalog field dropped").Len() != 1 {
		t.Fatalf("expected warnings, got %v", logs.All())
	}
	if got := obs.Value(obs.Rows[0], "sex"); got != "2" {
		t.Fatalf("unexpected value %v", got)
	}
	if rec := obs.Record(obs.Rows[1]); rec["weight"] != 70 || rec[ColumnSubject] != "s1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestSplitByForm(t *testing.T) {
	tables := SplitByForm(Synchronize(testSet(), testCatalog()))
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	want := Table{
		Name:    "form_2",
		Columns: []string{ColumnSubject, ColumnForm, ColumnFillTimestamp, "weight"},
		Rows: [][]any{
			{"s1", "2", "2024-02-01", 70},
			{"s1", "2", "2024-03-01", 72},
		},
	}
	if diff := cmp.Diff(want, tables[1]); diff != "" {
		t.Fatalf("split table mismatch (-want +got):\n%s", diff)
	}
	for _, table := range tables {
		if err := table.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}
}

func TestMerged(t *testing.T) {
	table := Merged(Synchronize(testSet(), testCatalog()))
	want := Table{
		Name:    "merged",
		Columns: []string{ColumnSubject, ColumnFillTimestamp, "age", "sex", "weight"},
		Rows: [][]any{
			{"s1", "2024-03-01", 30, "2", 72},
			{"s2", "2024-01-05", 41, nil, nil},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("merged table mismatch (-want +got):\n%s", diff)
	}
}

func TestMerged_SharedFieldFollowsFillOrder(t *testing.T) {
	cat := catalog.AssignOrder(catalog.Catalog{
		{FormCode: "a", FieldCode: "x"},
		{FormCode: "a", FieldCode: "y"},
		{FormCode: "b", FieldCode: "x"},
		{FormCode: "b", FieldCode: "y"},
	})
	set := observation.Set{Records: []observation.Record{
		{Key: observation.Key{SubjectID: "s1", FormCode: "b", FillTimestamp: "2024-01-01"}, Values: map[string]any{"x": "old", "y": "kept"}},
		{Key: observation.Key{SubjectID: "s1", FormCode: "a", FillTimestamp: "2024-06-01"}, Values: map[string]any{"x": "new"}},
	}}

	table := Merged(Synchronize(set, cat))
	want := Table{
		Name:    "merged",
		Columns: []string{ColumnSubject, ColumnFillTimestamp, "x", "y"},
		Rows:    [][]any{{"s1", "2024-06-01", "new", "kept"}},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("merged table mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateMerged(t *testing.T) {
	table := DuplicateMerged(Synchronize(testSet(), testCatalog()))
	wantCols := []string{
		ColumnSubject,
		"f1_1_fillTimestamp", "f1_1_age", "f1_1_sex",
		"f2_1_fillTimestamp", "f2_1_weight",
		"f2_2_fillTimestamp", "f2_2_weight",
	}
	if diff := cmp.Diff(wantCols, table.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]any{
		{"s1", "2024-01-01", 30, "2", "2024-02-01", 70, "2024-03-01", 72},
		{"s2", "2024-01-05", 41, nil, nil, nil, nil, nil},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestPhasePrefixedAndMasterCatalog(t *testing.T) {
	project := Project{Phases: []Phase{
		{ID: "7", Order: 2, FormCodes: []string{"1"}},
		{ID: "5", Order: 1, FormCodes: []string{"2"}},
		{ID: "9", Order: 0, FormCodes: []string{"1"}, Deleted: true},
	}}

	table := PhasePrefixed(Synchronize(testSet(), testCatalog()), project)
	wantCols := []string{ColumnSubject, "p5.f2.fillTimestamp", "p5.f2.weight", "p7.f1.fillTimestamp", "p7.f1.age", "p7.f1.sex"}
	if diff := cmp.Diff(wantCols, table.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"s1", "2024-03-01", 72, "2024-01-01", 30, "2"}, table.Rows[0]); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}

	master := MasterCatalog(testCatalog(), project)
	if master[0].MasterCode != "p5.f2.weight" || master[0].MasterTitle != "p01 Followup Weight" {
		t.Fatalf("unexpected first master field %+v", master[0])
	}
	if master[1].PhaseAlias != "p02" || master[1].MasterCode != "p7.f1.age" {
		t.Fatalf("unexpected second master field %+v", master[1])
	}

	flat := MasterCatalog(testCatalog(), Project{})
	if flat[0].MasterCode != "p.f1.age" || flat[0].MasterTitle != "Baseline Age" {
		t.Fatalf("unexpected master field without phases %+v", flat[0])
	}
}

func TestView_UnknownShape(t *testing.T) {
	_, err := View(Observations{}, "pivot", Project{})
	var shapeErr *UnknownShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected UnknownShapeError, got %v", err)
	}
}

func TestRemap(t *testing.T) {
	cat := testCatalog()
	obs := RemapValues(Synchronize(testSet(), cat), cat)
	if got := obs.Rows[0].Values[1]; got != "Female" {
		t.Fatalf("expected option text, got %v", got)
	}
	if got := obs.Rows[0].Values[0]; got != 30 {
		t.Fatalf("non-choice values must be kept, got %v", got)
	}

	table := RemapFields(Merged(obs), cat)
	want := []string{ColumnSubject, ColumnFillTimestamp, "Age", "Sex", "Weight"}
	if diff := cmp.Diff(want, table.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}
