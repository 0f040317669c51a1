package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"vendorrecon/internal/config"
	"vendorrecon/internal/fixtures"
	"vendorrecon/internal/formatter"
	"vendorrecon/internal/pipeline"
	"vendorrecon/internal/validator"
)

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Repair each raw source and write its cleaned per-source file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := opts.pipeline()
			if err != nil {
				return err
			}

			results, err := p.Normalize(cmd.Context())
			printSources(cmd, results)

			return err
		},
	}
}

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Normalize sources and draft the mapping table for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := opts.pipeline()
			if err != nil {
				return err
			}

			res, err := p.Discover(cmd.Context())
			if res != nil {
				printSources(cmd, res.Sources)
			}

			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printf(w, "\nDraft mapping table: %s (%d entries)\n", res.TablePath, len(res.Table.Entries))
			printf(w, "Review preview:      %s\n", res.PreviewPath)

			if res.KeptExisting {
				printf(w, "The existing table was left untouched (%s); compare it with the draft.\n", res.KeptReason)
			} else {
				printf(w, "Edit the Standard Field column, then run 'recon sign'.\n")
			}

			return nil
		},
	}
}

func newSignCmd(opts *rootOptions) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Validate the reviewed mapping table and mark it as reviewed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := opts.pipeline()
			if err != nil {
				return err
			}

			result, err := p.Sign(reviewer)
			if result != nil {
				printValidation(cmd, result)
			}

			return err
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "name recorded in the signature")

	return cmd
}

func newConsolidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate",
		Short: "Apply the mapping table and write the consolidated outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := opts.pipeline()
			if err != nil {
				return err
			}

			summary, err := p.Consolidate(cmd.Context())
			if err != nil {
				return err
			}

			printSummary(cmd, summary)

			return nil
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Discover and consolidate in one go",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, cfg, err := opts.pipeline()
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context())
			if res != nil && res.Discover != nil {
				printSources(cmd, res.Discover.Sources)
			}

			if errors.Is(err, pipeline.ErrUnreviewedMapping) {
				return fmt.Errorf("%w; review %s and run 'recon sign' before consolidating", err, cfg.MappingTablePath())
			}

			if err != nil {
				return err
			}

			printSummary(cmd, res.Summary)

			return nil
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		dir        string
		rows       int
		seed       int64
		dupRate    float64
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic raw vendor exports and a matching configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := opts.newLogger()

			sources, err := fixtures.Generate(fixtures.Options{Dir: dir, Rows: rows, Seed: seed, DuplicateRate: dupRate})
			if err != nil {
				return err
			}

			for _, src := range sources {
				log.Info("Generated source", "id", src.ID, "path", src.File)
			}

			if configPath == "" {
				return nil
			}

			cfg := config.Default()
			cfg.Sources = sources
			cfg.Output.BasePath = filepath.Dir(dir)

			if err := cfg.SaveConfig(configPath); err != nil {
				return err
			}

			log.Info("Configuration written", "path", configPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "data/raw_csvs", "directory for the generated exports")
	cmd.Flags().IntVar(&rows, "rows", 25, "rows per source")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&dupRate, "dup-rate", 0.15, "share of repeated rows")
	cmd.Flags().StringVar(&configPath, "write-config", "", "also write a configuration file for the generated sources")

	return cmd
}

func printSources(cmd *cobra.Command, results []pipeline.SourceResult) {
	rows := make([][]string, len(results))

	for i, r := range results {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}

		rows[i] = []string{
			r.ID,
			strconv.Itoa(r.Stats.RawRows),
			strconv.Itoa(r.Stats.Rows),
			strconv.Itoa(r.Stats.CellsFilled),
			strconv.Itoa(r.Stats.DuplicateRowsRemoved),
			status,
		}
	}

	printf(cmd.OutOrStdout(), "%s", formatter.Table(
		[]string{"Source", "Raw rows", "Rows", "Filled", "Duplicates", "Status"}, rows, formatter.DefaultCellWidth))
}

func printValidation(cmd *cobra.Command, result *validator.ValidationResult) {
	w := cmd.OutOrStdout()

	for _, e := range result.Errors {
		printf(w, "error:   %s\n", e.String())
	}

	for _, warning := range result.Warnings {
		printf(w, "warning: %s\n", warning)
	}

	printf(w, "%s", formatter.KeyValues([2]string{"Mapping", "Count"}, [][2]string{
		{"entries", strconv.Itoa(result.Stats.TotalEntries)},
		{"mapped", strconv.Itoa(result.Stats.MappedEntries)},
		{"unmapped", strconv.Itoa(result.Stats.UnmappedEntries)},
		{"sources", strconv.Itoa(result.Stats.Sources)},
		{"sources without identifier", strconv.Itoa(result.Stats.SourcesWithoutIdentifier)},
	}))
}

func printSummary(cmd *cobra.Command, s *pipeline.Summary) {
	pairs := [][2]string{
		{"run", s.RunID},
		{"mapping reviewed", strconv.FormatBool(s.MappingReviewed)},
		{"consolidated rows", strconv.Itoa(s.ConsolidatedRows)},
		{"cleaned rows", strconv.Itoa(s.CleanedRows)},
		{"duplicates removed", strconv.Itoa(s.DuplicatesRemoved)},
	}

	if s.Duplicates != nil {
		pairs = append(pairs,
			[2]string{"distinct identifiers", strconv.Itoa(s.Duplicates.UniqueIdentifiers)},
			[2]string{"duplicated identifiers", strconv.Itoa(s.Duplicates.DuplicateIdentifiers)},
			[2]string{"duplicate rows", strconv.Itoa(s.Duplicates.DuplicateRows)},
		)
	}

	pairs = append(pairs,
		[2]string{"warnings", strconv.Itoa(s.Warnings)},
		[2]string{"errors", strconv.Itoa(s.Errors)},
	)

	for _, key := range []string{"uncleaned", "cleaned", "duplicates", "workbook", "sqlite", "summary"} {
		if path, ok := s.Outputs[key]; ok {
			pairs = append(pairs, [2]string{key, path})
		}
	}

	printf(cmd.OutOrStdout(), "%s", formatter.KeyValues([2]string{"Result", "Value"}, pairs))
}
