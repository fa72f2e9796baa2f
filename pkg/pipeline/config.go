package pipeline

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-formcatalog/internal/fetch"
	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/choices"
	"github.com/goliatone/go-formcatalog/pkg/config"
	"github.com/goliatone/go-formcatalog/pkg/observation"
)

// FromConfig builds a Pipeline from the catalog, choices and responses
// sections of cfg. Extra options are applied last.
func FromConfig(cfg config.Config, logger *zap.Logger, metrics *Metrics, extra ...Option) (*Pipeline, error) {
	resolution, err := observation.ParseResolution(cfg.Responses.TimeResolution)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	choiceOpts := []choices.Option{
		choices.WithBaseURL(cfg.Choices.BaseURL),
		choices.WithTimeout(cfg.Choices.Timeout.Std()),
		choices.WithLimit(cfg.Choices.Limit),
		choices.WithLocale(cfg.Catalog.Locale),
	}
	if cfg.Choices.RateLimit > 0 {
		choiceOpts = append(choiceOpts, choices.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Choices.RateLimit), 1)))
	}
	if cfg.Choices.InsecureTLS {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		choiceOpts = append(choiceOpts, choices.WithHTTPClient(&http.Client{Transport: transport}))
	}

	opts := []Option{
		WithLogger(logger),
		WithMetrics(metrics),
		WithResolution(resolution),
		WithDuplicateRenaming(cfg.Catalog.RenameDuplicates),
		WithChoiceOptions(choiceOpts...),
		WithCatalogOptions(
			catalog.WithLocale(cfg.Catalog.Locale),
			catalog.WithHTML(cfg.Catalog.IncludeHTML),
			catalog.WithStrictElements(cfg.Catalog.StrictElements),
			catalog.WithWorkers(cfg.Catalog.Workers),
		),
	}
	return New(append(opts, extra...)...), nil
}

// NewFetcher builds the transport adapter selected by cfg.Source.
func NewFetcher(cfg config.Config, logger *zap.Logger) (fetch.Fetcher, error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		return fetch.NewFileFetcher(cfg.Source.Dir)
	case config.SourceAPI, "":
		opts := []fetch.APIOption{
			fetch.WithHeaders(cfg.Source.Headers),
			fetch.WithRequestTimeout(cfg.Source.Timeout.Std()),
			fetch.WithRateLimit(cfg.Source.RateLimit),
			fetch.WithInsecureTLS(cfg.Choices.InsecureTLS),
			fetch.WithLogger(logger),
		}
		if cfg.Source.Paginate {
			opts = append(opts, fetch.WithPagination(cfg.Source.PageSize))
		}
		return fetch.NewAPIFetcher(cfg.Source.BaseURL, cfg.Source.ProjectURI, opts...)
	default:
		return nil, fmt.Errorf("pipeline: unknown source kind %q", cfg.Source.Kind)
	}
}
