package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formcatalog/pkg/choices"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// Result is the outcome of normalizing a set of forms.
type Result struct {
	// Catalog is the flat view: one record per field, or per option of a
	// choosable field.
	Catalog Catalog
	// Nested holds one record per field with its options embedded.
	Nested Catalog
	// Renames lists the duplicate field codes that were form-qualified.
	Renames RenameMap
	// Skipped lists the forms whose definition could not be decoded.
	Skipped []*SchemaDecodeError
}

// Normalizer turns form definitions into a field catalog.
type Normalizer struct {
	resolver *choices.Resolver
	settings
}

// NewNormalizer builds a Normalizer resolving remote options through
// resolver. A nil resolver only serves inline and boolean options.
func NewNormalizer(resolver *choices.Resolver, opts ...Option) *Normalizer {
	if resolver == nil {
		resolver = choices.NewResolver()
	}
	return &Normalizer{resolver: resolver, settings: applyOptions(opts)}
}

// Normalize flattens every form with a fresh choice cache.
func (n *Normalizer) Normalize(ctx context.Context, forms []schema.Form) (Result, error) {
	return n.NormalizeWithSession(ctx, n.resolver.Session(), forms)
}

// NormalizeWithSession flattens forms resolving options through session.
// Forms are flattened concurrently and concatenated in input order. Forms
// with undecodable definitions are skipped and reported in the result.
func (n *Normalizer) NormalizeWithSession(ctx context.Context, session *choices.Session, forms []schema.Form) (Result, error) {
	flattener := &Flattener{choices: session, settings: n.settings}

	perForm := make([]Catalog, len(forms))
	skipped := make([]*SchemaDecodeError, len(forms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for i, form := range forms {
		g.Go(func() error {
			records, err := n.flattenForm(gctx, flattener, form)
			if err != nil {
				var decodeErr *SchemaDecodeError
				if errors.As(err, &decodeErr) {
					skipped[i] = decodeErr
					return nil
				}
				return err
			}
			perForm[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var flat Catalog
	for _, records := range perForm {
		flat = append(flat, records...)
	}
	result := Result{Renames: make(RenameMap)}
	for _, s := range skipped {
		if s != nil {
			result.Skipped = append(result.Skipped, s)
		}
	}

	flat = AssignOrder(CheckValidity(flat))
	if n.renameDuplicates {
		flat, result.Renames = ResolveDuplicates(flat)
	}
	n.reportWarnings(flat)

	result.Catalog = flat
	result.Nested = Nest(flat)
	return result, nil
}

func (n *Normalizer) flattenForm(ctx context.Context, flattener *Flattener, form schema.Form) (Catalog, error) {
	def, err := form.Decode()
	if err != nil {
		decodeErr := &SchemaDecodeError{FormCode: form.Code, Err: err}
		n.logger.Warn("form skipped", zap.String("form", form.Code), zap.Error(err))
		return nil, decodeErr
	}

	fc := FormContext{Code: form.Code, Name: form.Name, Description: form.Description}
	var out Catalog
	for _, el := range def.Elements() {
		records, err := flattener.Flatten(ctx, el, fc)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	n.logger.Debug("form flattened", zap.String("form", form.Code), zap.Int("fields", len(out)))
	return out, nil
}

func (n *Normalizer) reportWarnings(cat Catalog) {
	type key struct{ form, field string }
	seen := make(map[key]struct{})
	for _, rec := range cat {
		if len(rec.Warnings) == 0 {
			continue
		}
		k := key{rec.FormCode, rec.FieldCode}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		for _, w := range rec.Warnings {
			n.logger.Warn("field code warning",
				zap.String("form", rec.FormCode),
				zap.String("field", rec.FieldCode),
				zap.String("element", rec.ElementType),
				zap.Stringer("warning", w))
		}
	}
}
