package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunLengthRank(t *testing.T) {
	cases := []struct {
		name   string
		values []int
		want   []int
	}{
		{name: "empty", values: nil, want: []int{}},
		{name: "runs", values: []int{5, 5, 7, 7, 7, 9}, want: []int{1, 1, 2, 2, 2, 3}},
		{name: "returning value starts a new run", values: []int{1, 2, 1}, want: []int{1, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, RunLengthRank(tc.values)); diff != "" {
				t.Fatalf("ranks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssignOrder(t *testing.T) {
	cat := Catalog{
		{FormCode: "1", FieldCode: "a", ParentFieldCode: "a"},
		{FormCode: "1", FieldCode: "a", ParentFieldCode: "a"},
		{FormCode: "1", FieldCode: "b_x", ParentFieldCode: "b"},
		{FormCode: "1", FieldCode: "b_y", ParentFieldCode: "b"},
		{FormCode: "2", FieldCode: "c", ParentFieldCode: "c"},
	}
	ordered := AssignOrder(cat)

	type ranks struct{ Form, Field, Parent int }
	got := make([]ranks, len(ordered))
	for i, rec := range ordered {
		got[i] = ranks{rec.FormOrder, rec.FieldOrder, rec.ParentFieldOrder}
	}
	want := []ranks{{1, 1, 1}, {1, 1, 1}, {1, 2, 2}, {1, 3, 2}, {2, 4, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if cat[0].FieldOrder != 0 {
		t.Fatalf("input catalog must not be modified")
	}
}
