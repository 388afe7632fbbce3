package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/obinnaokechukwu/vidgraph"
)

var versionJSON bool

type versionInfo struct {
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Platform  string            `json:"platform"`
	FFmpeg    map[string]string `json:"ffmpeg,omitempty"`
	FFmpegErr string            `json:"ffmpeg_error,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the vidgraph version and the versions of the FFmpeg libraries it loads.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versionInfo{
			Version:   vidgraph.Version,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		if err := vidgraph.Init(viper.GetString("ffmpeg.library_path")); err != nil {
			info.FFmpegErr = err.Error()
		} else {
			info.FFmpeg = vidgraph.LibraryVersions()
		}

		out := cmd.OutOrStdout()
		if versionJSON {
			b, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		fmt.Fprintf(out, "vidgraph %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
		if info.FFmpegErr != "" {
			fmt.Fprintf(out, "ffmpeg: not available: %s\n", info.FFmpegErr)
			return nil
		}
		libs := make([]string, 0, len(info.FFmpeg))
		for name := range info.FFmpeg {
			libs = append(libs, name)
		}
		sort.Strings(libs)
		for _, name := range libs {
			fmt.Fprintf(out, "%s %s\n", name, info.FFmpeg[name])
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
