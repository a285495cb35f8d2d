package main

import (
	"github.com/spf13/cobra"

	"github.com/spoj/mq-mcp/internal/config"
	"github.com/spoj/mq-mcp/internal/version"
)

var (
	rootFlag     string
	configFlag   string
	logLevelFlag string
	logFileFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "mq-mcp",
	Short: "mq-mcp - map natural-language queries over files",
	Long: `mq-mcp serves one directory over the Model Context Protocol. Its tools
answer a natural-language question about many files at once by dispatching
one remote model query per file under a shared concurrency limit.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.SetVersionTemplate("mq-mcp version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Directory to serve (overrides config and MQMCP_ROOT)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file path (default: mq-mcp.toml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "",
		"Also write logs to this file")
}

// loadConfig resolves effective configuration: defaults < file < env <
// flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}

	if rootFlag != "" {
		cfg.Root = rootFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if logFileFlag != "" {
		cfg.Log.File = logFileFlag
	}

	return cfg, nil
}
