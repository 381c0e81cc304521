package main

import (
	"fmt"
	"os"

	stressdb "github.com/nickyhof/stressdb"
	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// app is the state shared by every subcommand, filled in by the root
// command before a subcommand runs.
type app struct {
	configPath string
	baseDir    string
	gitUrl     string
	logLevel   string
	userName   string
	userEmail  string

	cfg      *config.Config
	logger   *zap.Logger
	instance *stressdb.Instance
}

func (a *app) identity() core.Identity {
	return core.Identity{Name: a.userName, Email: a.userEmail}
}

// open loads configuration, applies flag overrides and opens the store.
func (a *app) open(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if a.baseDir != "" {
		cfg.Store.BaseDir = a.baseDir
	}
	if a.gitUrl != "" {
		cfg.Store.GitURL = a.gitUrl
	}
	if a.configPath == "" || cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	instance, err := stressdb.Open(cfg, logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.instance = instance
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "stressdb",
		Short: "Allowable stress lookup for pressure equipment materials",
		Long: `stressdb looks up maximum allowable stress values for materials
from published reference tables.

Tables are imported from CSV, spreadsheet or Postgres sources into a
git-backed store, narrowed with a cascading filter over six material
attributes, and queried for a stress curve or a single interpolated value.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to YAML config file")
	flags.StringVar(&a.baseDir, "baseDir", "", "Base directory for the table store (memory if empty)")
	flags.StringVar(&a.gitUrl, "gitUrl", "", "Git URL to clone the table store from")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.userName, "name", "stressdb", "User name for store commits")
	flags.StringVar(&a.userEmail, "email", "cli@stressdb.local", "User email for store commits")

	rootCmd.AddCommand(
		newReplCmd(a),
		newImportCmd(a),
		newVariantsCmd(a),
		newLookupCmd(a),
		newHistoryCmd(a),
		newRestoreCmd(a),
		newPushCmd(a),
		newPullCmd(a),
		newFetchCmd(a),
		newRemoteCmd(a),
		newSnapshotCmd(a),
		newRecoverCmd(a),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
}
