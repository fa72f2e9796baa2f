package choices

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultLimit caps remote lookup results unless overridden.
	DefaultLimit = 20
	// DefaultTimeout bounds every remote lookup attempt.
	DefaultTimeout = 2 * time.Second

	defaultValueName = "code"
	defaultTitleName = "title"
)

// Option customises a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for remote lookups.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithBaseURL sets the host used when a lookup url declares none, and the
// fallback host tried after the declared one.
func WithBaseURL(base string) Option {
	return func(r *Resolver) {
		r.baseURL = strings.TrimSpace(base)
	}
}

// WithTimeout bounds each lookup attempt. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithLimit caps remote results. Zero disables truncation.
func WithLimit(limit int) Option {
	return func(r *Resolver) {
		if limit >= 0 {
			r.limit = limit
		}
	}
}

// WithRateLimiter paces outgoing lookups.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(r *Resolver) {
		r.limiter = limiter
	}
}

// WithLocale selects the locale used for choice texts.
func WithLocale(locale string) Option {
	return func(r *Resolver) {
		r.locale = strings.TrimSpace(locale)
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a callback invoked once per remote lookup with its
// outcome: OutcomeCached, OutcomeFetched or OutcomeUnavailable.
func WithObserver(fn func(code string, outcome Outcome)) Option {
	return func(r *Resolver) {
		r.observe = fn
	}
}
