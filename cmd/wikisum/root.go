package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/wikisum/pkg/config"
	"github.com/Sternrassler/wikisum/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "wikisum",
		Short:         "Summarize Wikipedia articles and answer questions about them",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "path to a .env file, ignored if missing")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("log-pretty", false, "human-readable console logs")

	root.AddCommand(
		newServeCmd(&flags),
		newSummarizeCmd(&flags),
		newChatCmd(&flags),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the configuration with the command's flags taking
// precedence. extra maps further config keys to local flag names.
func loadConfig(cmd *cobra.Command, flags *globalFlags, extra map[string]string) (*config.Config, error) {
	names := map[string]string{
		"log_level":  "log-level",
		"log_pretty": "log-pretty",
	}
	for key, name := range extra {
		names[key] = name
	}

	bound := make(map[string]*pflag.Flag, len(names))
	for key, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil {
			bound[key] = f
		}
	}

	cfg, err := config.Load(config.LoadOptions{
		EnvFile:    flags.envFile,
		ConfigFile: flags.configFile,
		Flags:      bound,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setupLogging configures the global logger from cfg.
func setupLogging(cfg *config.Config, out io.Writer) (zerolog.Logger, io.Closer) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logCfg.File = cfg.LogFile
	if out != nil {
		logCfg.Output = out
	} else {
		logCfg.Output = os.Stderr
	}
	return logging.Setup(logCfg)
}
