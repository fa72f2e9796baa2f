package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/internal/logging"
	"github.com/goliatone/go-formcatalog/internal/prompt"
	"github.com/goliatone/go-formcatalog/pkg/config"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    bool
	pick       bool
	out        string

	cfg    config.Config
	logger *zap.Logger
	driver prompt.Driver
	stdout io.Writer
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(prompt.NewSurveyDriver())
}

func newRootCmdWith(driver prompt.Driver) *cobra.Command {
	a := &app{driver: driver, stdout: os.Stdout}

	root := &cobra.Command{
		Use:   "formcatalog",
		Short: "Flatten questionnaire definitions and reconcile responses against them",
		Long: `formcatalog turns questionnaire definitions into a flat field catalog and
aligns respondent answers with it, producing tables ready for analysis.

Sources, field paths and export targets are read from a YAML or JSON
configuration file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.stdout)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (YAML or JSON)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.pick, "pick", false, "choose forms interactively")
	flags.StringVarP(&a.out, "out", "o", "", "output destination (defaults to the configured one)")

	root.AddCommand(newCatalogCmd(a), newSyncCmd(a), newFieldsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Defaults()
	if strings.TrimSpace(a.configPath) != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Verbose: a.verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger.With(zap.String("command", cmd.Name()))
	a.stdout = cmd.OutOrStdout()
	return nil
}
