package cmd

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/obinnaokechukwu/vidgraph"
)

var probeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe FILE",
	Short: "Describe the streams of a media file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print JSON instead of YAML")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.FFmpeg.LibraryPath != "" {
		if err := vidgraph.Init(cfg.FFmpeg.LibraryPath); err != nil {
			slog.Debug("ffmpeg not loaded", slog.Any("error", err))
		}
	}
	p, err := vidgraph.SelectProvider(cfg.Pipeline.Provider, args[0], args[0], slog.Default())
	if err != nil {
		return err
	}
	info, err := vidgraph.Probe(p, args[0])
	if err != nil {
		return err
	}

	if probeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(info)
}
