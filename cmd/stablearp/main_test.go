package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/stablearp/pkg/converter"
)

// resetFlags clears values and Changed state left by an earlier Execute
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return strings.TrimSpace(out.String())
}

func TestArpCommand(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "missing.yaml")

	got := execute(t, "arp", "C4", "E4", "G4", "--config", cfgFile, "--algorithm", "linear", "--steps", "4")
	assert.Equal(t, "C4 E4 G4 C4", got)

	got = execute(t, "arp", "60,64,67", "--config", cfgFile, "--algorithm", "linear", "--direction", "down", "--steps", "4", "--numbers")
	assert.Equal(t, "67 64 60 67", got)
}

func TestConfigOverlay(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("algorithm: linear\nzigzag: true\nspeed: 1/8\n"), 0644))

	got := execute(t, "config", "--config", cfgFile, "--speed", "1/4")
	assert.Contains(t, got, "algorithm: linear")
	assert.Contains(t, got, "zigzag: true")
	assert.Contains(t, got, "speed: 1/4")

	got = execute(t, "arp", "C4", "E4", "G4", "--config", cfgFile, "--steps", "6")
	assert.Equal(t, "C4 E4 G4 E4 C4 E4", got)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "missing.yaml")

	rendered := filepath.Join(dir, "chord.mid")
	execute(t, "render", "C4", "E4", "--config", cfgFile, "--steps", "8", "-o", rendered)

	execute(t, "convert", rendered, "--config", cfgFile, "--algorithm", "linear", "--jobs", "2")

	perf, err := converter.NewMIDIConverter().ParseMIDIFile(filepath.Join(dir, "chord.arp.mid"))
	require.NoError(t, err)
	assert.NotEmpty(t, perf.Spans)
}
