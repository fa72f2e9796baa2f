package observation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
)

// ErrMissingSubject reports a response without a subject identifier.
var ErrMissingSubject = errors.New("observation: subject id is required")

// Response is one raw respondent submission.
type Response struct {
	SubjectID     string
	FormCode      string
	FillTimestamp string
	// Payload is the answer document, either decoded or as JSON text.
	Payload any
	// Fields are response attributes kept next to the answers.
	Fields map[string]any
}

// Key identifies one observation.
type Key struct {
	SubjectID     string `json:"subjectId" yaml:"subjectId"`
	FormCode      string `json:"formCode" yaml:"formCode"`
	FillTimestamp string `json:"fillTimestamp" yaml:"fillTimestamp"`
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s, %s)", k.SubjectID, k.FormCode, k.FillTimestamp)
}

// Record is one flattened observation.
type Record struct {
	Key
	Values map[string]any `json:"values" yaml:"values"`
}

// Set is the outcome of the observation pass over a corpus.
type Set struct {
	Records  []Record
	Counters Counters
}

// Forms lists the form codes of the set in order of first appearance.
func (s Set) Forms() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rec := range s.Records {
		if _, ok := seen[rec.FormCode]; ok {
			continue
		}
		seen[rec.FormCode] = struct{}{}
		out = append(out, rec.FormCode)
	}
	return out
}

// RenameKeys returns a copy of the set whose answer keys follow renames
// (form code -> old key -> new key). A container counter also gets the
// renamed key of its container when fields repeated inside it were renamed;
// the original key is kept for the fields that were not.
func (s Set) RenameKeys(renames map[string]map[string]string) Set {
	out := Set{Records: make([]Record, len(s.Records)), Counters: renameCounters(s.Counters, renames)}
	for i, rec := range s.Records {
		formRenames := renames[rec.FormCode]
		values := make(map[string]any, len(rec.Values))
		for key, value := range rec.Values {
			if _, renamed := formRenames[key]; renamed {
				continue
			}
			values[key] = value
		}
		for from, to := range formRenames {
			if value, ok := rec.Values[from]; ok {
				values[to] = value
			}
		}
		out.Records[i] = Record{Key: rec.Key, Values: values}
	}
	return out
}

func renameCounters(counters Counters, renames map[string]map[string]string) Counters {
	out := counters.Clone()
	for form, counts := range counters {
		for key, n := range counts {
			for from, to := range renames[form] {
				if !insideContainer(from, key) || !strings.HasSuffix(to, from) {
					continue
				}
				renamed := strings.TrimSuffix(to, from) + key
				if n > out[form][renamed] {
					out[form][renamed] = n
				}
			}
		}
	}
	return out
}

// insideContainer reports whether code is a repetition of container, that is
// "{container}_r{n}_...".
func insideContainer(code, container string) bool {
	rest, ok := strings.CutPrefix(code, container+"_r")
	if !ok {
		return false
	}
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	return digits > 0 && digits < len(rest) && rest[digits] == '_'
}

// Option customises a Builder.
type Option func(*Builder)

// WithResolution sets the fill timestamp resolution.
func WithResolution(res Resolution) Option {
	return func(b *Builder) {
		if res != "" {
			b.resolution = res
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder accumulates responses into observations. Responses sharing a key
// merge into one observation, later answers overwriting earlier ones.
type Builder struct {
	resolution Resolution
	logger     *zap.Logger
	index      map[Key]int
	records    []Record
	counters   Counters
}

// NewBuilder constructs an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		resolution: ResolutionSecond,
		logger:     zap.NewNop(),
		index:      make(map[Key]int),
		counters:   make(Counters),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Add flattens resp into its observation. A payload that is not valid JSON
// is logged and contributes no answers; the response fields are kept.
func (b *Builder) Add(resp Response) (Key, error) {
	subject := strings.TrimSpace(resp.SubjectID)
	if subject == "" {
		return Key{}, ErrMissingSubject
	}
	form := strings.TrimSpace(resp.FormCode)
	if form == "" {
		form = catalog.RegistryFormCode
	}
	key := Key{SubjectID: subject, FormCode: form, FillTimestamp: b.resolution.Apply(resp.FillTimestamp)}

	values := map[string]any{}
	payload, err := DecodePayload(resp.Payload)
	switch {
	case err != nil:
		b.logger.Warn("invalid answer payload skipped",
			zap.String("form", form),
			zap.Stringer("observation", key),
			zap.Error(err))
	case payload != nil:
		flat, counts := Flatten(payload)
		values = flat
		b.counters.Observe(form, counts)
	}
	for name, value := range resp.Fields {
		values[name] = value
	}

	pos, ok := b.index[key]
	if !ok {
		b.index[key] = len(b.records)
		b.records = append(b.records, Record{Key: key, Values: values})
		return key, nil
	}
	for name, value := range values {
		b.records[pos].Values[name] = value
	}
	return key, nil
}

// Build returns the observations in order of first submission.
func (b *Builder) Build() Set {
	out := Set{Records: make([]Record, len(b.records)), Counters: b.counters.Clone()}
	for i, rec := range b.records {
		values := make(map[string]any, len(rec.Values))
		for k, v := range rec.Values {
			values[k] = v
		}
		out.Records[i] = Record{Key: rec.Key, Values: values}
	}
	return out
}

// Collect runs responses through a new Builder. Responses without a subject
// are logged and skipped.
func Collect(responses []Response, opts ...Option) Set {
	b := NewBuilder(opts...)
	for _, resp := range responses {
		if _, err := b.Add(resp); err != nil {
			b.logger.Warn("response skipped", zap.String("form", resp.FormCode), zap.Error(err))
		}
	}
	return b.Build()
}

// DecodePayload accepts a decoded document, JSON text or raw bytes. Empty
// text decodes to nil.
func DecodePayload(raw any) (any, error) {
	var data []byte
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(typed)
	case []byte:
		data = typed
	case json.RawMessage:
		data = typed
	default:
		return raw, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("observation: decode payload: %w", err)
	}
	return payload, nil
}
