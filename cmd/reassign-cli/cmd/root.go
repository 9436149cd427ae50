package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowstate/reassigner/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reassign-cli",
	Short: "Drive checkpoint state reassignment restores against a reassignd coordinator",
	Long: `reassign-cli loads checkpoint metadata and a new execution topology and
runs the Assignment Driver, either in-process against a local restore ledger
or against a remote reassignd daemon over gRPC.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to coordinator configuration file")

	binName := BinName()
	rootCmd.Example = `  # Restore a single vertex's state in-process against a local ledger
  ` + binName + ` restore -c config.yaml --metadata restore/meta.json --topology topology.json

  # Restore against a remote reassignd daemon
  ` + binName + ` restore -c config.yaml --metadata restore/meta.json --topology topology.json --remote localhost:7070

  # Restore a batch of jobs concurrently
  ` + binName + ` restore -c config.yaml --jobs jobs.json --workers 4

  # Check a checkpoint's preconditions without submitting anything
  ` + binName + ` verify -c config.yaml --metadata restore/meta.json --topology topology.json`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
