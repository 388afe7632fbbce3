// Package cmd implements the vidgraph CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/obinnaokechukwu/vidgraph"
	"github.com/obinnaokechukwu/vidgraph/config"
)

var (
	cfgFile string
	// readErr is a config file that exists but could not be read.
	readErr error
)

var rootCmd = &cobra.Command{
	Use:     "vidgraph",
	Short:   "Remux media files and inspect their streams",
	Version: vidgraph.Version,
	Long: `vidgraph copies the streams of one media container into another without
re-encoding and reports what a file contains.

Transport streams are handled in pure Go; every other container goes through
the FFmpeg shared libraries, loaded at runtime without CGO.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	// set here: initLogging reads rootCmd's flags
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Not bound to viper: an unset flag must not hide env and file values.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./vidgraph.yaml or $HOME/.vidgraph/vidgraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

func initConfig() {
	config.Configure(viper.GetViper(), cfgFile)
	readErr = config.Read(viper.GetViper())
	if readErr == nil && viper.ConfigFileUsed() != "" {
		slog.Debug("using config file", slog.String("path", viper.ConfigFileUsed()))
	}
}

// initLogging installs the default logger. Flags win over environment
// variables, which win over the config file.
func initLogging() error {
	if readErr != nil {
		return readErr
	}
	flags := rootCmd.PersistentFlags()
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		viper.Set("log.level", level)
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		viper.Set("log.format", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(os.Stderr).With(slog.String("app", "vidgraph"))
	slog.SetDefault(logger)
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
