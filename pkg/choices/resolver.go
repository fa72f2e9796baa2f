package choices

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// Choice is one resolved option. Value is always a trimmed string.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
}

// Outcome classifies a remote lookup.
type Outcome string

const (
	OutcomeCached      Outcome = "cached"
	OutcomeFetched     Outcome = "fetched"
	OutcomeUnavailable Outcome = "unavailable"
)

// Resolver turns choice sources into ordered option lists. A Resolver holds
// configuration only; lookups are cached per Session.
type Resolver struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	limit   int
	limiter *rate.Limiter
	locale  string
	logger  *zap.Logger
	observe func(string, Outcome)
}

// NewResolver constructs a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		limit:   DefaultLimit,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Session binds the resolver to a fresh cache for one normalization run.
func (r *Resolver) Session() *Session {
	return r.SessionWithCache(NewCache())
}

// SessionWithCache binds the resolver to a caller-owned cache.
func (r *Resolver) SessionWithCache(cache *Cache) *Session {
	if cache == nil {
		cache = NewCache()
	}
	return &Session{resolver: r, cache: cache}
}

// Session resolves choices against one run-scoped cache.
type Session struct {
	resolver *Resolver
	cache    *Cache
}

// Cache exposes the session cache.
func (s *Session) Cache() *Cache {
	return s.cache
}

// Resolve returns the ordered options of src. Remote failures degrade to an
// empty list together with a *RemoteChoiceUnavailable.
func (s *Session) Resolve(ctx context.Context, src schema.ChoiceSource) ([]Choice, error) {
	r := s.resolver
	switch {
	case src.Boolean != nil:
		return []Choice{
			{Value: "true", Text: src.Boolean.True.Resolve(r.locale, "Yes")},
			{Value: "false", Text: src.Boolean.False.Resolve(r.locale, "No")},
		}, nil
	case len(src.Items) > 0:
		return Inline(src.Items, r.locale), nil
	case src.Remote != nil:
		return s.resolveRemote(ctx, *src.Remote)
	default:
		return nil, nil
	}
}

// Inline converts declared items, falling back to the value for missing text.
func Inline(items []schema.ChoiceItem, locale string) []Choice {
	if len(items) == 0 {
		return nil
	}
	out := make([]Choice, 0, len(items))
	for _, item := range items {
		value := strings.TrimSpace(item.Value)
		if value == "" {
			continue
		}
		out = append(out, Choice{Value: value, Text: item.Text.Resolve(locale, value)})
	}
	return out
}

func (s *Session) resolveRemote(ctx context.Context, ref schema.RemoteChoices) ([]Choice, error) {
	r := s.resolver
	declared, err := parseDeclared(ref.URL)
	if err != nil {
		return nil, &RemoteChoiceUnavailable{URL: ref.URL, Err: err}
	}
	code := strings.TrimSpace(declared.Query().Get("code"))
	if code == "" {
		return nil, &RemoteChoiceUnavailable{URL: ref.URL, Err: ErrMissingCode}
	}

	if entry, ok := s.cache.get(code); ok {
		r.notify(code, OutcomeCached)
		return r.truncate(entry.choices), entry.err
	}

	candidates := r.candidates(declared, code)
	var lastErr error
	for _, candidate := range candidates {
		choices, err := r.fetch(ctx, candidate, ref)
		if err == nil {
			s.cache.put(code, cacheEntry{choices: choices})
			r.notify(code, OutcomeFetched)
			r.logger.Debug("remote choices fetched",
				zap.String("code", code), zap.String("url", candidate), zap.Int("count", len(choices)))
			return r.truncate(choices), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &RemoteChoiceUnavailable{Code: code, URL: candidate, Err: ctxErr}
		}
		lastErr = err
		r.logger.Debug("remote choices attempt failed",
			zap.String("code", code), zap.String("url", candidate), zap.Error(err))
	}

	if lastErr == nil {
		lastErr = errors.New("choices: no host to query")
	}
	unavailable := &RemoteChoiceUnavailable{Code: code, URL: ref.URL, Err: lastErr}
	s.cache.put(code, cacheEntry{err: unavailable})
	r.notify(code, OutcomeUnavailable)
	r.logger.Warn("remote choices unavailable", zap.String("code", code), zap.Error(lastErr))
	return nil, unavailable
}

// candidates lists lookup urls in attempt order: the declared host (or the
// base host when none is declared) with the declared scheme, else the base
// scheme, else https then http; then the base host when it differs.
func (r *Resolver) candidates(declared *url.URL, code string) []string {
	base := parseBase(r.baseURL)

	path := strings.ReplaceAll(declared.Path, "getValuesDynamic", "getValues")
	query := url.Values{"code": []string{code}}.Encode()

	type target struct {
		scheme string
		host   string
	}
	var targets []target
	add := func(scheme, host string) {
		if host == "" {
			return
		}
		schemes := []string{"https", "http"}
		if scheme != "" {
			schemes = []string{scheme}
		}
		for _, sc := range schemes {
			targets = append(targets, target{scheme: sc, host: host})
		}
	}

	if declared.Host != "" {
		add(firstNonEmpty(declared.Scheme, base.Scheme), declared.Host)
		if base.Host != "" && !strings.EqualFold(base.Host, declared.Host) {
			add(base.Scheme, base.Host)
		}
	} else {
		add(base.Scheme, base.Host)
	}

	out := make([]string, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		u := url.URL{Scheme: t.scheme, Host: t.host, Path: path, RawQuery: query}
		s := u.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func parseDeclared(raw string) (*url.URL, error) {
	return url.Parse(strings.TrimSpace(raw))
}

// parseBase accepts "https://host", "host:port" or "host".
func parseBase(raw string) *url.URL {
	if raw == "" {
		return &url.URL{}
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return base
}

func (r *Resolver) fetch(ctx context.Context, target string, ref schema.RemoteChoices) ([]Choice, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	body, err := r.get(ctx, target)
	if err != nil && isConnectError(err) {
		body, err = r.get(ctx, target)
	}
	if err != nil {
		return nil, err
	}
	return parseLookup(body, ref)
}

func (r *Resolver) get(ctx context.Context, target string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("choices: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func parseLookup(body []byte, ref schema.RemoteChoices) ([]Choice, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("choices: decode lookup response: %w", err)
	}

	if obj, ok := payload.(map[string]any); ok {
		if content, ok := obj["content"]; ok && content != nil {
			payload = content
		}
	}
	if ref.Path != "" {
		payload = walkPath(payload, ref.Path)
	}

	list, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("choices: lookup response is %T, want a list", payload)
	}

	valueName := firstNonEmpty(ref.ValueName, defaultValueName)
	titleName := firstNonEmpty(ref.TitleName, defaultTitleName)
	out := make([]Choice, 0, len(list))
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		value := schema.ChoiceValue(item[valueName])
		if value == "" {
			continue
		}
		text := schema.TextFrom(item[titleName]).Resolve("", value)
		out = append(out, Choice{Value: value, Text: text})
	}
	return out, nil
}

func walkPath(payload any, path string) any {
	current := payload
	for _, segment := range strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == ';' }) {
		obj, ok := current.(map[string]any)
		if !ok {
			return current
		}
		next, ok := obj[segment]
		if !ok {
			return current
		}
		current = next
	}
	return current
}

func (r *Resolver) truncate(choices []Choice) []Choice {
	if r.limit > 0 && len(choices) > r.limit {
		return append([]Choice(nil), choices[:r.limit]...)
	}
	return append([]Choice(nil), choices...)
}

func (r *Resolver) notify(code string, outcome Outcome) {
	if r.observe != nil {
		r.observe(code, outcome)
	}
}

func isConnectError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
