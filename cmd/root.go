// Package cmd implements the unreal-mcp command line interface.
package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/slighter12/unreal-mcp-go/config"
	"github.com/slighter12/unreal-mcp-go/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "unreal-mcp",
	Short: "Model Context Protocol bridge for the Unreal Editor",
	Long: "unreal-mcp manages an Unreal Editor process and exposes its Python\n" +
		"remote execution, change tracking and diagnostics as MCP tools.",
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file")
}

// loadConfig resolves and loads the configuration, creating a default
// config file on first run, and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		resolved, err := config.ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	if err := config.EnsureDefaultConfig(path); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.GetLevelFromString(cfg.Logging.Level), logger.Format(cfg.Logging.Format), cfg.Logging.Path); err != nil {
		log.Printf("warning: falling back to default logging: %v", err)
	}
	return cfg, nil
}
