package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formcatalog/pkg/dataset"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

const pageSize = 15

// FormLabel is the option text shown for a form.
func FormLabel(form schema.Form) string {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return form.Code
	}
	return fmt.Sprintf("%s  %s", form.Code, name)
}

// PickForms lets the operator choose a subset of forms, all preselected.
// The returned forms keep their input order.
func PickForms(ctx context.Context, d Driver, forms []schema.Form) ([]schema.Form, error) {
	if len(forms) == 0 {
		return nil, nil
	}
	options := make([]string, len(forms))
	defaults := make([]int, len(forms))
	for i, form := range forms {
		options[i] = FormLabel(form)
		defaults[i] = i
	}
	picked, err := d.MultiSelect(ctx, SelectConfig{
		Message:  "Forms to include",
		Options:  options,
		Defaults: defaults,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, ErrNothingSelected
	}
	out := make([]schema.Form, 0, len(picked))
	for _, idx := range picked {
		if idx >= 0 && idx < len(forms) {
			out = append(out, forms[idx])
		}
	}
	return out, nil
}

// PickShape asks for the export view, defaulting to current.
func PickShape(ctx context.Context, d Driver, current dataset.Shape) (dataset.Shape, error) {
	shapes := dataset.Shapes()
	options := make([]string, len(shapes))
	def := 0
	for i, shape := range shapes {
		options[i] = string(shape)
		if shape == current {
			def = i
		}
	}
	idx, err := d.Select(ctx, SelectConfig{Message: "Export view", Options: options, DefaultIndex: def})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(shapes) {
		return current, nil
	}
	return shapes[idx], nil
}

// ConfirmOverwrite asks before replacing an existing output.
func ConfirmOverwrite(ctx context.Context, d Driver, path string) (bool, error) {
	return d.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("%s exists. Overwrite?", path),
		Default: false,
	})
}
