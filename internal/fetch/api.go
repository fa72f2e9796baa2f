package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultPageSize is the page size of paginated requests.
const DefaultPageSize = 500

// APIOption customises an APIFetcher.
type APIOption func(*APIFetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) APIOption {
	return func(f *APIFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) APIOption {
	return func(f *APIFetcher) {
		f.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithPagination fetches every page and concatenates their content.
func WithPagination(pageSize int) APIOption {
	return func(f *APIFetcher) {
		f.paginate = true
		if pageSize > 0 {
			f.pageSize = pageSize
		}
	}
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(timeout time.Duration) APIOption {
	return func(f *APIFetcher) {
		f.timeout = timeout
	}
}

// WithRateLimit spaces requests to at most rps per second.
func WithRateLimit(rps float64) APIOption {
	return func(f *APIFetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithInsecureTLS skips certificate verification.
func WithInsecureTLS(insecure bool) APIOption {
	return func(f *APIFetcher) {
		f.insecure = insecure
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) APIOption {
	return func(f *APIFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// APIFetcher posts to {base}/api/{project}/{route} and decodes the JSON reply.
type APIFetcher struct {
	base     string
	project  string
	client   *http.Client
	headers  map[string]string
	paginate bool
	pageSize int
	timeout  time.Duration
	limiter  *rate.Limiter
	insecure bool
	logger   *zap.Logger
}

var _ Fetcher = (*APIFetcher)(nil)

// NewAPIFetcher constructs an APIFetcher.
func NewAPIFetcher(base, project string, opts ...APIOption) (*APIFetcher, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, errors.New("fetch: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}
	f := &APIFetcher{
		base:     base,
		project:  strings.Trim(strings.TrimSpace(project), "/"),
		client:   http.DefaultClient,
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.insecure {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		clone := *f.client
		clone.Transport = transport
		f.client = &clone
	}
	return f, nil
}

// URL returns the endpoint of route.
func (f *APIFetcher) URL(route string) string {
	parts := []string{f.base, "api"}
	if f.project != "" {
		parts = append(parts, f.project)
	}
	parts = append(parts, strings.Trim(route, "/"))
	return strings.Join(parts, "/")
}

// Fetch requests route. With pagination enabled every page is requested and
// the "content" lists are concatenated into the last page's document.
func (f *APIFetcher) Fetch(ctx context.Context, route string, params Params, filters ...Filter) (any, error) {
	query := params.Clone()
	applyFilters(query, filters)
	endpoint := f.URL(route)

	if !f.paginate {
		return f.request(ctx, endpoint, query)
	}

	var content []any
	for page := 0; ; page++ {
		query["pagesize"] = strconv.Itoa(f.pageSize)
		query["pagenum"] = strconv.Itoa(page)
		payload, err := f.request(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}
		doc, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("fetch: %s: paginated response is not an object", endpoint)
		}
		items, _ := doc["content"].([]any)
		content = append(content, items...)
		total := pageCount(doc["totalPages"])
		f.logger.Debug("page fetched",
			zap.String("url", endpoint), zap.Int("page", page), zap.Int("total", total), zap.Int("items", len(items)))
		if page >= total || len(items) == 0 {
			doc["content"] = content
			return doc, nil
		}
	}
}

func applyFilters(query Params, filters []Filter) {
	if len(filters) == 0 {
		return
	}
	for n, filter := range filters {
		suffix := strconv.Itoa(n)
		query["filterdatafield"+suffix] = filter.Field
		query["filtercondition"+suffix] = filter.Condition
		query["filtervalue"+suffix] = filter.Value
	}
	query["filterslength"] = strconv.Itoa(len(filters))
}

// request sends one POST, retrying once when the connection is refused.
func (f *APIFetcher) request(ctx context.Context, endpoint string, query Params) (any, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	data, err := f.send(ctx, endpoint, query)
	if err != nil && isConnectError(err) {
		f.logger.Debug("retrying after connect error", zap.String("url", endpoint), zap.Error(err))
		data, err = f.send(ctx, endpoint, query)
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &TransportError{URL: endpoint, Err: ErrEmptyResponse}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch: decode %s: %w", endpoint, err)
	}
	return payload, nil
}

func (f *APIFetcher) send(ctx context.Context, endpoint string, query Params) ([]byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if f.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	target := endpoint
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, nil)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	f.logger.Debug("sending request", zap.String("method", req.Method), zap.String("url", endpoint))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: endpoint, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	return data, nil
}

func pageCount(value any) int {
	switch typed := value.(type) {
	case json.Number:
		n, _ := typed.Int64()
		return int(n)
	case float64:
		return int(typed)
	case string:
		n, _ := strconv.Atoi(typed)
		return n
	default:
		return 0
	}
}

func isConnectError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
