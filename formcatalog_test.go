package formcatalog_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	formcatalog "github.com/goliatone/go-formcatalog"
	"github.com/goliatone/go-formcatalog/pkg/config"
	"github.com/goliatone/go-formcatalog/pkg/testsupport"
)

func TestNormalize(t *testing.T) {
	res, err := formcatalog.Normalize(context.Background(), testsupport.LoadForms(t))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2"}, res.Nested.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile(t *testing.T) {
	res, err := formcatalog.Reconcile(context.Background(), formcatalog.Input{
		Forms:     testsupport.LoadForms(t),
		Responses: testsupport.LoadResponses(t),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.Observations.Rows) != 3 || res.RunID == "" {
		t.Fatalf("unexpected result: %d rows, run %q", len(res.Observations.Rows), res.RunID)
	}
}

func TestRunConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Source = config.SourceConfig{Kind: config.SourceFile, Dir: testsupport.Dir()}
	cfg.Responses.Route = testsupport.ResponsesRoute
	cfg.Responses.Index = config.IndexFields{SubjectID: "patientId", FormCode: "surveyId", FillTimestamp: "fillDate"}

	res, err := formcatalog.RunConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("run config: %v", err)
	}
	if got := res.Observations.Fields["2"]; len(got) != 2 {
		t.Fatalf("expected weight and form2_sex for form 2, got %v", got)
	}

	cfg.Responses.Index.SubjectID = ""
	if _, err := formcatalog.RunConfig(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected missing subject path to fail validation")
	}
}
