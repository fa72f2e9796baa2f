package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/internal/fetch"
	"github.com/goliatone/go-formcatalog/pkg/config"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
	"github.com/goliatone/go-formcatalog/pkg/testsupport"
)

func fixtureConfig() config.Config {
	cfg := config.Defaults()
	cfg.Source = config.SourceConfig{Kind: config.SourceFile, Dir: testsupport.Dir()}
	cfg.Responses.Route = testsupport.ResponsesRoute
	cfg.Responses.Index = config.IndexFields{SubjectID: "patientId", FormCode: "surveyId", FillTimestamp: "fillDate"}
	cfg.Responses.UseFields = []string{"site"}
	cfg.Responses.TimeResolution = "day"
	cfg.Project.Route = testsupport.PhasesRoute
	return cfg
}

func TestLoader_Input(t *testing.T) {
	cfg := fixtureConfig()
	require.NoError(t, cfg.Validate())

	fetcher, err := NewFetcher(cfg, zap.NewNop())
	require.NoError(t, err)
	in, err := NewLoader(fetcher, cfg, nil).Input(context.Background())
	require.NoError(t, err)

	require.Len(t, in.Forms, 3)
	require.Equal(t, "1", in.Forms[0].Code)
	require.Equal(t, "Baseline", in.Forms[0].Name)
	require.Equal(t, "Enrollment visit", in.Forms[0].Description)

	require.Len(t, in.Responses, 5)
	require.Equal(t, "s1", in.Responses[0].SubjectID)
	require.Equal(t, "2", in.Responses[1].FormCode)
	require.Equal(t, map[string]any{"site": "north"}, in.Responses[0].Fields)
	require.Nil(t, in.Responses[3].Fields)

	require.Equal(t, []string{"site"}, in.UseFields)
	require.Len(t, in.Project.Phases, 3)
	require.Equal(t, dataset.Phase{ID: "10", Title: "Enrollment", Order: 1, FormCodes: []string{"1"}}, in.Project.Phases[0])
	require.True(t, in.Project.Phases[2].Deleted)
	require.Len(t, in.Project.Active(), 2)
}

func TestLoader_EndToEnd(t *testing.T) {
	cfg := fixtureConfig()
	fetcher, err := NewFetcher(cfg, zap.NewNop())
	require.NoError(t, err)
	in, err := NewLoader(fetcher, cfg, zap.NewNop()).Input(context.Background())
	require.NoError(t, err)

	p, err := FromConfig(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Observations.Rows, 3)

	tables, err := res.Tables(ExportOptions{Shape: dataset.ShapePhases})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, string(dataset.ShapePhases), tables[0].Name)
}

func TestLoader_ConfiguredPhasesAndMissingContent(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Project.Route = ""
	cfg.Project.Phases = []dataset.Phase{{ID: "1", Order: 1, FormCodes: []string{"1"}}}
	fetcher, err := fetch.NewFileFetcher(testsupport.Dir())
	require.NoError(t, err)

	project, err := NewLoader(fetcher, cfg, nil).Project(context.Background())
	require.NoError(t, err)
	require.Equal(t, cfg.Project.Phases, project.Phases)

	cfg.Forms.ContentPath = "items"
	_, err = NewLoader(fetcher, cfg, nil).Forms(context.Background())
	require.Error(t, err)

	cfg.Responses.Route = ""
	responses, err := NewLoader(fetcher, cfg, nil).Responses(context.Background())
	require.NoError(t, err)
	require.Empty(t, responses)
}

func TestFromConfig(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Responses.TimeResolution = "fortnight"
	_, err := FromConfig(cfg, nil, nil)
	require.Error(t, err)

	cfg = config.Defaults()
	cfg.Source.BaseURL = "https://forms.example.org"
	cfg.Source.Paginate = true
	fetcher, err := NewFetcher(cfg, zap.NewNop())
	require.NoError(t, err)
	api, ok := fetcher.(*fetch.APIFetcher)
	require.True(t, ok)
	require.Equal(t, "https://forms.example.org/api/surveys", api.URL("surveys"))

	cfg.Source.Kind = "ftp"
	_, err = NewFetcher(cfg, nil)
	require.Error(t, err)
}
