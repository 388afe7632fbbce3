package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/obinnaokechukwu/vidgraph"
	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/pipeline"
)

var (
	remuxFormat  string
	remuxOptions []string
)

var remuxCmd = &cobra.Command{
	Use:   "remux INPUT OUTPUT",
	Short: "Copy every stream of INPUT into OUTPUT",
	Long: `Copy every stream of INPUT into OUTPUT without re-encoding.

The output container is guessed from the OUTPUT file name unless --format is
given. When both files are transport streams (.ts, .m2ts, .mts) the pure Go
provider is used; set pipeline.provider to force one.

Examples:
  vidgraph remux input.mkv output.mp4
  vidgraph remux --format matroska capture.ts archive.bin
  vidgraph remux -o movflags=faststart in.mov out.mp4`,
	Args: cobra.ExactArgs(2),
	RunE: runRemux,
}

func init() {
	remuxCmd.Flags().StringVarP(&remuxFormat, "format", "f", "", "output container format")
	remuxCmd.Flags().StringArrayVarP(&remuxOptions, "option", "o", nil, "muxer option as key=value (repeatable)")
	remuxCmd.Flags().Int("queue-capacity", 0, "packets buffered per stream (0 means unbounded)")
	remuxCmd.Flags().String("provider", "", "container provider (auto, ffmpeg, mpegts)")
	mustBindPFlag("pipeline.queue_capacity", remuxCmd.Flags().Lookup("queue-capacity"))
	mustBindPFlag("pipeline.provider", remuxCmd.Flags().Lookup("provider"))
	rootCmd.AddCommand(remuxCmd)
}

func runRemux(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := parseOptions(remuxOptions)
	if err != nil {
		return err
	}

	stats, err := vidgraph.Remux(cmd.Context(), cfg, args[0], args[1], pipeline.Options{
		Format:        remuxFormat,
		OutputOptions: opts,
	}, slog.Default())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range stats.Streams {
		fmt.Fprintf(out, "stream %d: %s %s, %d packets\n", s.Index, s.Kind, s.CodecID, s.Packets)
	}
	fmt.Fprintf(out, "done in %s\n", stats.Elapsed.Round(time.Millisecond))
	return nil
}

// parseOptions turns key=value pairs into options.
func parseOptions(pairs []string) (avutil.Options, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := avutil.Options{}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: option %q is not key=value", avutil.ErrConfiguration, kv)
		}
		opts[k] = v
	}
	return opts, nil
}
