// Package pipeline runs the full reconciliation: form definitions are
// flattened into a field catalog, respondent payloads into observations, and
// both are aligned into export tables.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/choices"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
	"github.com/goliatone/go-formcatalog/pkg/observation"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// Input is everything a run consumes.
type Input struct {
	Forms     []schema.Form
	Responses []observation.Response
	// UseFields are response attributes exported next to the answers.
	UseFields []string
	Project   dataset.Project
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	// Catalog is the flat catalog after expansion and renaming.
	Catalog catalog.Catalog
	// Nested holds one record per field.
	Nested  catalog.Catalog
	Renames catalog.RenameMap
	Skipped []*catalog.SchemaDecodeError
	// Counters holds the observed repetitions per container, under the
	// payload key and, for renamed containers, the renamed key too.
	Counters     observation.Counters
	Observations dataset.Observations
	Project      dataset.Project
}

// ExportOptions selects how Tables shapes the observations.
type ExportOptions struct {
	Shape       dataset.Shape
	RemapFields bool
	RemapValues bool
}

// Tables renders the observations in the requested view.
func (r Result) Tables(opts ExportOptions) ([]dataset.Table, error) {
	obs := r.Observations
	if opts.RemapValues {
		obs = dataset.RemapValues(obs, r.Catalog)
	}
	tables, err := dataset.View(obs, opts.Shape, r.Project)
	if err != nil {
		return nil, err
	}
	if opts.RemapFields {
		for i := range tables {
			tables[i] = dataset.RemapFields(tables[i], r.Nested)
		}
	}
	return tables, nil
}

// Pipeline wires the catalog, observation and dataset stages.
type Pipeline struct {
	resolver         *choices.Resolver
	catalogOpts      []catalog.Option
	choiceOpts       []choices.Option
	resolution       observation.Resolution
	renameDuplicates bool
	metrics          *Metrics
	logger           *zap.Logger
	newID            func() string
}

// New constructs a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		resolution:       observation.ResolutionSecond,
		renameDuplicates: true,
		logger:           zap.NewNop(),
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	choiceOpts := append([]choices.Option{choices.WithLogger(p.logger)}, p.choiceOpts...)
	choiceOpts = append(choiceOpts, choices.WithObserver(p.metrics.observeLookup))
	p.resolver = choices.NewResolver(choiceOpts...)
	return p
}

// Catalog normalizes forms on their own, without observations.
func (p *Pipeline) Catalog(ctx context.Context, forms []schema.Form) (catalog.Result, error) {
	normalizer := p.normalizer(p.renameDuplicates)
	res, err := normalizer.Normalize(ctx, forms)
	if err != nil {
		return catalog.Result{}, err
	}
	p.metrics.observeCatalog(res)
	p.metrics.observeFields(res.Nested)
	return res, nil
}

// Run executes every stage. Duplicate renaming waits for the observation
// pass so that expanded repetitions and generated fields are renamed with
// the rest of the catalog.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	if len(in.Forms) == 0 && len(in.Responses) == 0 {
		return Result{}, errors.New("pipeline: no forms or responses to process")
	}
	started := time.Now()
	runID := p.newID()
	logger := p.logger.With(zap.String("run", runID))

	normalized, err := p.normalizer(false).Normalize(ctx, in.Forms)
	if err != nil {
		return Result{}, err
	}
	p.metrics.observeCatalog(normalized)
	logger.Info("catalog normalized",
		zap.Int("forms", len(normalized.Catalog.Forms())),
		zap.Int("skipped", len(normalized.Skipped)),
		zap.Int("records", len(normalized.Catalog)))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	set := observation.Collect(in.Responses,
		observation.WithResolution(p.resolution),
		observation.WithLogger(logger))
	logger.Info("observations collected", zap.Int("observations", len(set.Records)))

	cat := normalized.Catalog
	if len(in.UseFields) > 0 {
		cat = catalog.GenerateFields(cat, in.UseFields)
	}
	cat = catalog.Expand(cat, set.Counters)

	renames := make(catalog.RenameMap)
	if p.renameDuplicates {
		cat, renames = catalog.ResolveDuplicates(cat)
		set = set.RenameKeys(renames)
		if !renames.Empty() {
			logger.Info("duplicate field codes renamed", zap.Int("forms", len(renames)))
		}
	}
	nested := catalog.Nest(cat)
	p.metrics.observeFields(nested)

	obs := dataset.Synchronize(set, nested, dataset.WithLogger(logger))
	p.metrics.observeSync(obs)

	elapsed := time.Since(started)
	if p.metrics != nil {
		p.metrics.RunDuration.Observe(elapsed.Seconds())
	}
	logger.Info("run finished",
		zap.Int("rows", len(obs.Rows)),
		zap.Int("unmatched_forms", len(obs.Unmatched)),
		zap.Duration("elapsed", elapsed))

	return Result{
		RunID:        runID,
		Catalog:      cat,
		Nested:       nested,
		Renames:      renames,
		Skipped:      normalized.Skipped,
		Counters:     set.Counters,
		Observations: obs,
		Project:      in.Project,
	}, nil
}

func (p *Pipeline) normalizer(renameDuplicates bool) *catalog.Normalizer {
	opts := append([]catalog.Option{catalog.WithLogger(p.logger)}, p.catalogOpts...)
	opts = append(opts, catalog.WithDuplicateRenaming(renameDuplicates))
	return catalog.NewNormalizer(p.resolver, opts...)
}
