package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/internal/export"
	"github.com/goliatone/go-formcatalog/internal/prompt"
	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
	"github.com/goliatone/go-formcatalog/pkg/pipeline"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

func newCatalogCmd(a *app) *cobra.Command {
	var format string
	var flat bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Write the field catalog of the configured forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCatalog(cmd.Context(), format, flat)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "catalog format: json or yaml (defaults to the configured one)")
	cmd.Flags().BoolVar(&flat, "flat", false, "write one row per option instead of one per field")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	var shape, catalogOut, metricsOut string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile responses with the catalog and export them",
		Long: `sync fetches forms, responses and project phases, builds the catalog,
synchronizes every response against it and writes the requested view with
the configured export driver.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd.Context(), syncOptions{shape: shape, catalogOut: catalogOut, metricsOut: metricsOut})
		},
	}
	cmd.Flags().StringVar(&shape, "shape", "", fmt.Sprintf("export view: %s", shapeNames()))
	cmd.Flags().StringVar(&catalogOut, "catalog-out", "", "also write the catalog used for the export to this file")
	cmd.Flags().StringVar(&metricsOut, "metrics", "", "write run metrics in Prometheus text format to this file")
	return cmd
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields [form-code]",
		Short: "List the catalog fields of one form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFields(cmd.Context(), args[0])
		},
	}
}

func (a *app) loader() (*pipeline.Loader, error) {
	fetcher, err := pipeline.NewFetcher(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return pipeline.NewLoader(fetcher, a.cfg, a.logger), nil
}

func (a *app) pickForms(ctx context.Context, forms []schema.Form) ([]schema.Form, error) {
	if !a.pick {
		return forms, nil
	}
	return prompt.PickForms(ctx, a.driver, forms)
}

func (a *app) runCatalog(ctx context.Context, format string, flat bool) error {
	loader, err := a.loader()
	if err != nil {
		return err
	}
	forms, err := loader.Forms(ctx)
	if err != nil {
		return err
	}
	if forms, err = a.pickForms(ctx, forms); err != nil {
		return err
	}

	p, err := pipeline.FromConfig(a.cfg, a.logger, nil)
	if err != nil {
		return err
	}
	res, err := p.Catalog(ctx, forms)
	if err != nil {
		return err
	}
	cat := res.Nested
	if flat {
		cat = res.Catalog
	}
	if format == "" {
		format = a.cfg.Export.CatalogFormat
	}
	return a.writeCatalog(a.out, cat, format)
}

type syncOptions struct {
	shape      string
	catalogOut string
	metricsOut string
}

func (a *app) runSync(ctx context.Context, opts syncOptions) error {
	loader, err := a.loader()
	if err != nil {
		return err
	}
	in, err := loader.Input(ctx)
	if err != nil {
		return err
	}
	if in.Forms, err = a.pickForms(ctx, in.Forms); err != nil {
		return err
	}

	shape := dataset.Shape(firstNonEmpty(opts.shape, a.cfg.Export.Shape))
	if a.pick && opts.shape == "" {
		if shape, err = prompt.PickShape(ctx, a.driver, shape); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(registry)
	if err != nil {
		return err
	}
	p, err := pipeline.FromConfig(a.cfg, a.logger, metrics)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, in)
	if err != nil {
		return err
	}

	tables, err := res.Tables(pipeline.ExportOptions{
		Shape:       shape,
		RemapFields: a.cfg.Export.RemapFields,
		RemapValues: a.cfg.Export.RemapValues,
	})
	if err != nil {
		return err
	}

	destination := firstNonEmpty(a.out, a.cfg.Export.Destination)
	if proceed, err := a.confirmOverwrite(ctx, destination); err != nil || !proceed {
		return err
	}
	writer, err := export.New(a.cfg.Export.Driver, export.WithLogger(a.logger), export.WithBatchID(res.RunID))
	if err != nil {
		return err
	}
	if err := export.WriteAll(ctx, writer, tables, destination); err != nil {
		return err
	}

	if opts.catalogOut != "" {
		if err := a.writeCatalog(opts.catalogOut, res.Nested, a.cfg.Export.CatalogFormat); err != nil {
			return err
		}
	}
	if opts.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.metricsOut, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	a.logger.Info("sync finished",
		zap.String("run", res.RunID),
		zap.String("shape", string(shape)),
		zap.Int("tables", len(tables)))
	return nil
}

func (a *app) runFields(ctx context.Context, form string) error {
	loader, err := a.loader()
	if err != nil {
		return err
	}
	forms, err := loader.Forms(ctx)
	if err != nil {
		return err
	}
	var selected []schema.Form
	for _, f := range forms {
		if f.Code == form {
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("form %s not found", form)
	}

	p, err := pipeline.FromConfig(a.cfg, a.logger, nil)
	if err != nil {
		return err
	}
	res, err := p.Catalog(ctx, selected)
	if err != nil {
		return err
	}
	if len(res.Skipped) > 0 {
		return res.Skipped[0]
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tDATA\tTITLE\tWARNINGS")
	for _, rec := range res.Nested {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.FieldCode, rec.ElementType, rec.DataType, rec.FieldTitle, warningList(rec.Warnings))
	}
	return tw.Flush()
}

func (a *app) writeCatalog(destination string, cat catalog.Catalog, format string) error {
	if destination == "" || destination == "-" {
		return export.WriteCatalog(a.stdout, cat, format)
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if err := export.WriteCatalog(f, cat, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// confirmOverwrite asks before replacing an existing output file when the
// run is interactive.
func (a *app) confirmOverwrite(ctx context.Context, destination string) (bool, error) {
	if !a.pick || destination == "" || destination == "-" {
		return true, nil
	}
	if _, err := os.Stat(destination); errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	ok, err := prompt.ConfirmOverwrite(ctx, a.driver, destination)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(a.stdout, "export skipped")
	}
	return ok, nil
}

func warningList(warnings []catalog.Warning) string {
	names := make([]string, len(warnings))
	for i, w := range warnings {
		names[i] = w.String()
	}
	return strings.Join(names, ",")
}

func shapeNames() string {
	shapes := dataset.Shapes()
	names := make([]string, len(shapes))
	for i, s := range shapes {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
