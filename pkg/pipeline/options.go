package pipeline

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/choices"
	"github.com/goliatone/go-formcatalog/pkg/observation"
)

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a structured logger to every stage.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records run counters.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithCatalogOptions forwards options to the normalizer. Duplicate renaming
// is controlled with WithDuplicateRenaming instead.
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(p *Pipeline) {
		p.catalogOpts = append(p.catalogOpts, opts...)
	}
}

// WithChoiceOptions forwards options to the remote option resolver.
func WithChoiceOptions(opts ...choices.Option) Option {
	return func(p *Pipeline) {
		p.choiceOpts = append(p.choiceOpts, opts...)
	}
}

// WithResolution truncates fill timestamps before observations are keyed.
func WithResolution(res observation.Resolution) Option {
	return func(p *Pipeline) {
		if res != "" {
			p.resolution = res
		}
	}
}

// WithDuplicateRenaming toggles form-qualifying field codes shared by forms.
func WithDuplicateRenaming(enabled bool) Option {
	return func(p *Pipeline) {
		p.renameDuplicates = enabled
	}
}

// WithRunID overrides how run identifiers are generated.
func WithRunID(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}
