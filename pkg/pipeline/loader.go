package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formcatalog/internal/fetch"
	"github.com/goliatone/go-formcatalog/pkg/config"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
	"github.com/goliatone/go-formcatalog/pkg/observation"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// Loader reads forms, responses and phases through a Fetcher using the
// routes and field paths of a configuration.
type Loader struct {
	fetcher fetch.Fetcher
	cfg     config.Config
	logger  *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(fetcher fetch.Fetcher, cfg config.Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Input fetches everything a run needs concurrently.
func (l *Loader) Input(ctx context.Context) (Input, error) {
	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		forms, err := l.Forms(gctx)
		in.Forms = forms
		return err
	})
	g.Go(func() error {
		responses, err := l.Responses(gctx)
		in.Responses = responses
		return err
	})
	g.Go(func() error {
		project, err := l.Project(gctx)
		in.Project = project
		return err
	})
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	in.UseFields = append([]string(nil), l.cfg.Responses.UseFields...)
	return in, nil
}

// Forms fetches the form definitions.
func (l *Loader) Forms(ctx context.Context) ([]schema.Form, error) {
	fc := l.cfg.Forms
	items, err := l.list(ctx, fc.Route, fc.ContentPath, fc.Filters)
	if err != nil {
		return nil, err
	}
	forms := make([]schema.Form, 0, len(items))
	for i, item := range items {
		code := field(item, fc.IDPath)
		if code == "" {
			l.logger.Warn("form without id skipped", zap.Int("index", i))
			continue
		}
		definition, _ := fetch.ExtractContent(item, fc.JSONPath)
		forms = append(forms, schema.Form{
			Code:        code,
			Name:        field(item, fc.NamePath),
			Description: field(item, fc.DescriptionPath),
			Definition:  definition,
		})
	}
	l.logger.Debug("forms loaded", zap.Int("forms", len(forms)))
	return forms, nil
}

// Responses fetches respondent submissions. Nothing is fetched when no
// responses route is configured.
func (l *Loader) Responses(ctx context.Context) ([]observation.Response, error) {
	rc := l.cfg.Responses
	if !rc.Enabled() {
		return nil, nil
	}
	items, err := l.list(ctx, rc.Route, rc.ContentPath, rc.Filters)
	if err != nil {
		return nil, err
	}
	out := make([]observation.Response, 0, len(items))
	for _, item := range items {
		payload, _ := fetch.ExtractContent(item, rc.JSONPath)
		resp := observation.Response{
			SubjectID:     field(item, rc.Index.SubjectID),
			FormCode:      field(item, rc.Index.FormCode),
			FillTimestamp: field(item, rc.Index.FillTimestamp),
			Payload:       payload,
		}
		for _, name := range rc.UseFields {
			if value, ok := fetch.ExtractContent(item, name); ok {
				if resp.Fields == nil {
					resp.Fields = make(map[string]any, len(rc.UseFields))
				}
				resp.Fields[name] = value
			}
		}
		out = append(out, resp)
	}
	l.logger.Debug("responses loaded", zap.Int("responses", len(out)))
	return out, nil
}

// Project returns the configured phases, fetching them when a project route
// is set.
func (l *Loader) Project(ctx context.Context) (dataset.Project, error) {
	pc := l.cfg.Project
	if strings.TrimSpace(pc.Route) == "" {
		return dataset.Project{Phases: append([]dataset.Phase(nil), pc.Phases...)}, nil
	}
	items, err := l.list(ctx, pc.Route, l.cfg.Forms.ContentPath, nil)
	if err != nil {
		return dataset.Project{}, err
	}
	project := dataset.Project{Phases: make([]dataset.Phase, 0, len(items))}
	for _, item := range items {
		project.Phases = append(project.Phases, phaseFrom(item))
	}
	return project, nil
}

func (l *Loader) list(ctx context.Context, route, contentPath string, filters []config.Filter) ([]map[string]any, error) {
	payload, err := l.fetcher.Fetch(ctx, route, nil, toFilters(filters)...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetch %s: %w", route, err)
	}
	items, ok := fetch.ExtractList(payload, contentPath)
	if _, isList := payload.([]any); !ok && isList {
		items, ok = fetch.ExtractList(payload, "")
	}
	if !ok {
		return nil, fmt.Errorf("pipeline: %s: no content at %q", route, contentPath)
	}
	return items, nil
}

func toFilters(in []config.Filter) []fetch.Filter {
	out := make([]fetch.Filter, len(in))
	for i, f := range in {
		out[i] = fetch.Filter{Field: f.Field, Condition: f.Condition, Value: f.Value}
	}
	return out
}

func phaseFrom(item map[string]any) dataset.Phase {
	phase := dataset.Phase{
		ID:       field(item, "id"),
		Title:    field(item, "name"),
		Order:    number(item["order"]),
		Level:    number(item["level"]),
		ParentID: field(item, "parentId"),
	}
	if deleted, ok := item["deleted"].(bool); ok {
		phase.Deleted = deleted
	}
	if ids, ok := item["surveyIds"].([]any); ok {
		for _, id := range ids {
			if code := text(id); code != "" {
				phase.FormCodes = append(phase.FormCodes, code)
			}
		}
	}
	return phase
}

func field(item map[string]any, path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	value, ok := fetch.ExtractContent(item, path)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text(value))
}

func text(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func number(value any) int {
	switch typed := value.(type) {
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			f, _ := typed.Float64()
			return int(f)
		}
		return int(n)
	case float64:
		return int(typed)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(typed))
		return n
	default:
		return 0
	}
}
