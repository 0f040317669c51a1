package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vendorrecon/internal/config"
	"vendorrecon/internal/logger"
	"vendorrecon/internal/pipeline"
)

// DefaultConfigPath is tried when --config is not given.
const DefaultConfigPath = "configs/recon.yaml"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "recon",
		Short: "Reconcile national vendor master exports",
		Long: `recon turns heterogeneous per-country vendor exports into one
consolidated, cleaned and deduplicated vendor table.

Typical flow:
  recon discover      normalize sources and draft the mapping table
  (review mapping/mapping_table.csv)
  recon sign          validate the reviewed table and mark it as reviewed
  recon consolidate   apply the table and write the consolidated outputs`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML configuration (default "+DefaultConfigPath+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newNormalizeCmd(opts),
		newDiscoverCmd(opts),
		newSignCmd(opts),
		newConsolidateCmd(opts),
		newRunCmd(opts),
		newSeedCmd(opts),
	)

	return cmd
}

// load reads the configuration, applies the flag overrides and builds the
// logger it describes.
func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	path := o.configPath
	if path == "" {
		path = DefaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Debug("Configuration loaded", "path", path, "config", cfg.String())

	return cfg, log, nil
}

func (o *rootOptions) pipeline() (*pipeline.Pipeline, *config.Config, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, nil, err
	}

	return pipeline.New(cfg, log), cfg, nil
}

// newLogger builds a logger from the flags alone, for commands that need no configuration.
func (o *rootOptions) newLogger() *logger.Logger {
	return logger.New(logger.Options{Level: o.logLevel, Format: o.logFormat})
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
