package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/genesets/internal/fetch"
	"github.com/inodb/genesets/internal/pipeline"
	"github.com/inodb/genesets/internal/store"
)

func newRunCmd() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the numbered curation stages in order",
		Long: `Run the curation pipeline: seed, annotate, pathway, groups, enrich,
export. Stages whose outputs already exist are skipped unless --force is
given. The run halts on the first failing stage unless --keep-going is set.`,
		Example: `  genesets run
  genesets run --species mouse --start 2 --end 4
  genesets run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.DryRun {
				// No environment, no side effects: just print the plan.
				return pipeline.NewRunner(&pipeline.Env{}, opts).Run(cmd.Context())
			}

			env, cleanup, err := buildEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.LogDir == "" {
				opts.LogDir = filepath.Join(env.OutputDir, "logs")
			}
			return pipeline.NewRunner(env, opts).Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&opts.StartStep, "start", 0, "First step number to run")
	cmd.Flags().IntVar(&opts.EndStep, "end", 0, "Last step number to run")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan without executing")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Run stages even when their outputs exist")
	cmd.Flags().BoolVar(&opts.KeepGoing, "keep-going", false, "Continue past a failed stage")
	cmd.Flags().StringVar(&opts.LogDir, "log-dir", "", "Run log directory (default: <output-dir>/logs)")

	return cmd
}

func newStageCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "stage <name>",
		Short: "Run a single named stage",
		Example: `  genesets stage annotate
  genesets stage export --species mouse`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := pipeline.StageByName(args[0])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[0])
			}
			env, cleanup, err := buildEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			opts := pipeline.Options{
				StartStep: s.Num,
				EndStep:   s.Num,
				Force:     force,
				LogDir:    filepath.Join(env.OutputDir, "logs"),
			}
			return pipeline.NewRunner(env, opts).Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Run even when the stage's outputs exist")
	return cmd
}

// buildEnv assembles the stage environment from configuration: species,
// directories, upstream clients over a shared payload cache, and the DuckDB
// catalog. The returned cleanup closes the catalog.
func buildEnv() (*pipeline.Env, func(), error) {
	species := viper.GetString("species")
	if species != "human" && species != "mouse" {
		return nil, nil, fmt.Errorf("unsupported species %q (want human or mouse)", species)
	}

	outputDir := viper.GetString("output-dir")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}

	cdir, err := cacheDir()
	if err != nil {
		return nil, nil, err
	}
	cache, err := fetch.NewDirCache(cdir)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	catalog, err := store.Open(filepath.Join(outputDir, "genesets.duckdb"))
	if err != nil {
		return nil, nil, err
	}

	msigdb := fetch.NewMSigDBClient(cache)
	msigdb.SetLogger(logger)

	env := &pipeline.Env{
		Species:     species,
		OutputDir:   outputDir,
		SeedPath:    viper.GetString("seed"),
		RegistryDir: viper.GetString("registry-dir"),
		BioMart:     fetch.NewBioMartClient(cache),
		KEGG:        fetch.NewKEGGClient(cache),
		HGNC:        fetch.NewHGNCClient(cache),
		MSigDB:      msigdb,
		Store:       catalog,
		Logger:      logger,
	}
	cleanup := func() {
		catalog.Close()
		logger.Sync()
	}
	return env, cleanup, nil
}
