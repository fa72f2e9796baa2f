// Package formcatalog is the top-level entry point: it flattens
// questionnaire definitions into a field catalog and reconciles respondent
// answers against it.
package formcatalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/config"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
	"github.com/goliatone/go-formcatalog/pkg/observation"
	"github.com/goliatone/go-formcatalog/pkg/pipeline"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// Form aliases schema.Form for callers that only use the root package.
type Form = schema.Form

// Response aliases observation.Response.
type Response = observation.Response

// Catalog aliases catalog.Catalog.
type Catalog = catalog.Catalog

// Table aliases dataset.Table.
type Table = dataset.Table

// Input aliases pipeline.Input.
type Input = pipeline.Input

// Result aliases pipeline.Result.
type Result = pipeline.Result

// NewPipeline exposes the pipeline constructor from the top-level module.
func NewPipeline(options ...pipeline.Option) *pipeline.Pipeline {
	return pipeline.New(options...)
}

// Normalize builds the field catalog of forms without any responses.
func Normalize(ctx context.Context, forms []Form, options ...pipeline.Option) (catalog.Result, error) {
	return pipeline.New(options...).Catalog(ctx, forms)
}

// Reconcile runs every stage over in-memory forms and responses.
func Reconcile(ctx context.Context, in Input, options ...pipeline.Option) (Result, error) {
	return pipeline.New(options...).Run(ctx, in)
}

// RunConfig loads forms, responses and phases from the source declared in
// cfg and runs the pipeline configured by it.
func RunConfig(ctx context.Context, cfg config.Config, logger *zap.Logger, options ...pipeline.Option) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	fetcher, err := pipeline.NewFetcher(cfg, logger)
	if err != nil {
		return Result{}, err
	}
	in, err := pipeline.NewLoader(fetcher, cfg, logger).Input(ctx)
	if err != nil {
		return Result{}, err
	}
	p, err := pipeline.FromConfig(cfg, logger, nil, options...)
	if err != nil {
		return Result{}, err
	}
	return p.Run(ctx, in)
}
