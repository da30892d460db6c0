// Package main provides the genesets command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genesets",
		Short: "Build and annotate reference gene-set tables for RNA-seq pathway analysis",
		Long: `genesets curates reference gene-set tables (kinases, phosphatases,
transcription factors): it fetches cross-references from public genomics
services, reconciles identifiers into one record per gene, classifies rows
against registry tables, and exports CSV and gene-set-matrix files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("species", "human", "Species: human or mouse")
	flags.String("output-dir", "out", "Directory for tables and matrices")
	flags.String("cache-dir", "", "Payload cache directory (default: ~/.genesets/cache)")
	flags.String("registry-dir", "registries", "Directory with classification registry TSVs")
	flags.String("seed", "seed_genes.csv", "Curated seed symbol list")
	flags.Bool("verbose", false, "Enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newStageCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// initConfig wires flags, the GENESETS_ environment and ~/.genesets.yaml
// into viper. Flags win over environment, environment over file.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("GENESETS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".genesets")
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	return viper.BindPFlags(cmd.Root().PersistentFlags())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("genesets version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// newLogger builds the CLI logger honoring --verbose.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// cacheDir resolves the payload cache directory.
func cacheDir() (string, error) {
	if dir := viper.GetString("cache-dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".genesets", "cache"), nil
}
