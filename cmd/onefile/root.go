package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"onefile/internal/config"
	"onefile/internal/slogutil"
	"onefile/internal/version"
)

var (
	rootFlag    string
	verboseFlag int
	quietFlag   bool
	configFlag  string

	// env is set up before any subcommand runs.
	env *cliEnv
)

var rootCmd = &cobra.Command{
	Use:   "onefile",
	Short: "Bundle an entry source file with the library code it uses",
	Long: `onefile inlines the library modules an entry file needs into a single
self-contained source file.

A library is described by a manifest of modules (scan one from sources with
'onefile scan'). 'onefile build' computes which modules depend on which, and
'onefile bundle' writes the entry plus every module it needs, transitively,
skipping the work when the entry has not changed.

Examples:
  onefile scan ./acl -o library.toml
  onefile build
  onefile resolve main.go
  onefile bundle main.go -o submit.go --watch`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupEnv,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil {
			_ = env.Close()
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("onefile version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "project root holding .onefile/ (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress all log output")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: <root>/.onefile/config.json)")
}

func setupEnv(cmd *cobra.Command, args []string) error {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	var cliLevel *slog.Level
	if cmd.Flags().Changed("verbose") || quietFlag {
		level := slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
		cliLevel = &level
	}

	e, err := newEnv(root, configFlag, cliLevel)
	if err != nil {
		return err
	}
	env = e
	return nil
}

// newEnv loads configuration for root and builds the CLI logger.
func newEnv(root, configFile string, cliLevel *slog.Level) (*cliEnv, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadConfigFile(configFile)
	} else {
		cfg, err = config.LoadConfig(root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := slogutil.NewLoggerFactory(root, cfg, cliLevel, os.Stderr)
	return &cliEnv{
		root:    root,
		cfg:     cfg,
		logger:  factory.CLILogger(),
		factory: factory,
	}, nil
}
