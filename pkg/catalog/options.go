package catalog

import (
	"go.uber.org/zap"
)

type settings struct {
	logger           *zap.Logger
	locale           string
	includeHTML      bool
	strict           bool
	renameDuplicates bool
	workers          int
}

func defaultSettings() settings {
	return settings{
		logger:  zap.NewNop(),
		workers: 1,
	}
}

// Option customises a Flattener or Normalizer.
type Option func(*settings)

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocale selects the locale used to resolve titles and option texts.
func WithLocale(locale string) Option {
	return func(s *settings) {
		s.locale = locale
	}
}

// WithHTML keeps html elements in the catalog instead of dropping them.
func WithHTML(include bool) Option {
	return func(s *settings) {
		s.includeHTML = include
	}
}

// WithStrictElements makes an element that cannot be flattened abort the run
// with an *ElementFlattenError instead of leaving a placeholder record.
func WithStrictElements(strict bool) Option {
	return func(s *settings) {
		s.strict = strict
	}
}

// WithDuplicateRenaming makes Normalize rename field codes shared across forms.
func WithDuplicateRenaming(enabled bool) Option {
	return func(s *settings) {
		s.renameDuplicates = enabled
	}
}

// WithWorkers sets how many forms are flattened concurrently.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
