// Package dataset aligns observations with the field catalog and shapes them
// into export tables.
package dataset

import (
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/observation"
)

// Row is one observation aligned to its form's catalog fields.
type Row struct {
	observation.Key
	// Values holds one cell per field of the form, in catalog order.
	Values []any
}

// Observations is the synchronized observation table.
type Observations struct {
	// Forms lists form codes in catalog order.
	Forms []string
	// Fields holds the catalog field codes of each form.
	Fields map[string][]string
	Rows   []Row
	// Unmatched lists forms seen in observations but missing from the catalog.
	Unmatched []*FormCodeNotInCatalog
	// Dropped lists, per form, answer keys that have no catalog field.
	Dropped map[string][]string
}

// Value returns the cell of field in row, or nil.
func (o Observations) Value(row Row, field string) any {
	for i, code := range o.Fields[row.FormCode] {
		if code == field {
			return row.Values[i]
		}
	}
	return nil
}

// Record returns row as a field -> value map, key columns included.
func (o Observations) Record(row Row) map[string]any {
	fields := o.Fields[row.FormCode]
	out := make(map[string]any, len(fields)+3)
	out[ColumnSubject] = row.SubjectID
	out[ColumnForm] = row.FormCode
	out[ColumnFillTimestamp] = row.FillTimestamp
	for i, field := range fields {
		out[field] = row.Values[i]
	}
	return out
}

// Option customises synchronization.
type Option func(*syncSettings)

type syncSettings struct {
	logger *zap.Logger
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *syncSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Synchronize builds one row per observation with exactly the catalog fields
// of its form, in catalog order. Fields the observation lacks are nil;
// answers without a catalog field are dropped. Observations of forms absent
// from the catalog are dropped and reported.
func Synchronize(set observation.Set, cat catalog.Catalog, opts ...Option) Observations {
	settings := syncSettings{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	out := Observations{
		Forms:   cat.Forms(),
		Fields:  make(map[string][]string),
		Dropped: make(map[string][]string),
	}
	for _, form := range out.Forms {
		out.Fields[form] = cat.FieldCodes(form)
	}

	unmatched := make(map[string]*FormCodeNotInCatalog)
	var unmatchedOrder []string
	dropped := make(map[string]map[string]struct{})

	for _, rec := range set.Records {
		fields, ok := out.Fields[rec.FormCode]
		if !ok {
			miss, seen := unmatched[rec.FormCode]
			if !seen {
				miss = &FormCodeNotInCatalog{FormCode: rec.FormCode}
				unmatched[rec.FormCode] = miss
				unmatchedOrder = append(unmatchedOrder, rec.FormCode)
			}
			miss.Rows++
			continue
		}

		known := make(map[string]int, len(fields))
		values := make([]any, len(fields))
		for i, field := range fields {
			known[field] = i
		}
		for key, value := range rec.Values {
			idx, ok := known[key]
			if !ok {
				if dropped[rec.FormCode] == nil {
					dropped[rec.FormCode] = make(map[string]struct{})
				}
				dropped[rec.FormCode][key] = struct{}{}
				continue
			}
			values[idx] = value
		}
		out.Rows = append(out.Rows, Row{Key: rec.Key, Values: values})
	}

	for _, form := range unmatchedOrder {
		miss := unmatched[form]
		out.Unmatched = append(out.Unmatched, miss)
		settings.logger.Warn("observations dropped", zap.String("form", form), zap.Int("rows", miss.Rows), zap.Error(miss))
	}
	for form, keys := range dropped {
		names := make([]string, 0, len(keys))
		for key := range keys {
			names = append(names, key)
		}
		sort.Strings(names)
		out.Dropped[form] = names
		settings.logger.Warn("answers without catalog field dropped",
			zap.String("form", form),
			zap.Strings("field", names))
	}
	return out
}
