package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/obinnaokechukwu/vidgraph/avutil"
	"github.com/obinnaokechukwu/vidgraph/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigDumpAppliesEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDGRAPH_PIPELINE_QUEUE_CAPACITY", "7")

	out, err := execute(t, "config", "dump")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 7, cfg.Pipeline.QueueCapacity)
	assert.Equal(t, config.ProviderAuto, cfg.Pipeline.Provider)
	assert.Equal(t, "error", cfg.FFmpeg.LogLevel)
}

func TestRemuxNeedsTwoArgs(t *testing.T) {
	_, err := execute(t, "remux", "only-one.ts")
	assert.Error(t, err)
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"movflags=faststart", "metadata=title=a=b"})
	require.NoError(t, err)
	assert.Equal(t, avutil.Options{"movflags": "faststart", "metadata": "title=a=b"}, opts)

	opts, err = parseOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, opts)

	for _, bad := range []string{"novalue", "=x"} {
		_, err := parseOptions([]string{bad})
		assert.ErrorIs(t, err, avutil.ErrConfiguration, bad)
	}
}
