// Package cmd provides the CLI commands for crewboard.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewboard/go-crewboard/internal/boardlog"
	"github.com/crewboard/go-crewboard/internal/config"
	"github.com/crewboard/go-crewboard/internal/version"
)

// global flags
var (
	serverURL string
	logPath   string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "crewboard",
	Short: "Live dashboard client for multi-agent project runs",
	Long: `crewboard mirrors a remote multi-agent project run into a local
state model: project status, agent roster, conversation feed, thinking
log, and the LLM call record set.

Commands:
  projects  List and manage projects on the orchestrator
  watch     Follow a project's live event stream
  serve     Run the built-in simulated orchestrator

Examples:
  crewboard projects list
  crewboard watch p0001
  crewboard serve --port 8000`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := boardlog.LevelInfo
		if verbose {
			level = boardlog.LevelDebug
		}
		if err := boardlog.Init(logPath, level); err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crewboard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String("crewboard"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "orchestrator base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "write debug log to file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}
