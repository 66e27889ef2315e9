package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wayseat/internal/backend"
	"github.com/bnema/wayseat/internal/config"
)

// executeCommand runs the root command with args against a fresh viper and
// default flag values, returning what was written to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	config.Set(nil)
	resetFlags(rootCmd)
	t.Cleanup(func() {
		viper.Reset()
		config.Set(nil)
		config.SetConfigPath("")
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wayseat "+Version)
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayseat.toml")
	out, err := executeCommand(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "seat0")
	assert.Contains(t, out, "pointer, keyboard, touch")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayseat.toml")

	t.Run("creates config file when it doesn't exist", func(t *testing.T) {
		_, err := executeCommand(t, "--config", path, "config", "init", "--defaults")
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("doesn't overwrite existing config without force", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[seat]\nname = \"kept\"\n"), 0644))
		_, err := executeCommand(t, "--config", path, "config", "init", "--defaults")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "kept")
	})

	t.Run("overwrites with force flag", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[logging]\nlog_level = \"debug\"\n"), 0644))
		_, err := executeCommand(t, "--config", path, "config", "init", "--defaults", "--force")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "seat0")
		assert.Contains(t, string(content), "debug", "loaded values are kept")
	})
}

func TestConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayseat.toml")
	require.NoError(t, os.WriteFile(path, []byte("[seat\nname = 1"), 0644))

	_, err := executeCommand(t, "--config", path, "config", "show")
	assert.ErrorContains(t, err, "failed to load config")
}

func TestReplay(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "wayseat.toml")

	t.Run("prints trace and final state", func(t *testing.T) {
		out, err := executeCommand(t, "--config", cfgPath, "replay", "testdata/drag.yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "wl_seat.capabilities")
		assert.Contains(t, out, "wl_pointer.enter")
		assert.Contains(t, out, "seat seat0")
		assert.Contains(t, out, "DP-2")
		assert.Contains(t, out, "6 steps applied")
	})

	t.Run("no trace", func(t *testing.T) {
		out, err := executeCommand(t, "--config", cfgPath, "replay", "--no-trace", "testdata/drag.yaml")
		require.NoError(t, err)
		assert.NotContains(t, out, "wl_pointer.enter")
		assert.Contains(t, out, "Final state")
	})

	t.Run("quiet", func(t *testing.T) {
		out, err := executeCommand(t, "--config", cfgPath, "replay", "--quiet", "testdata/drag.yaml")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("missing script", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "replay", "testdata/missing.yaml")
		assert.ErrorContains(t, err, "failed to open script")
	})

	t.Run("failing step", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(script, []byte("steps:\n  - {op: bind, client: 4, caps: [pointer]}\n"), 0644))

		out, err := executeCommand(t, "--config", cfgPath, "replay", "--no-trace", script)
		assert.ErrorContains(t, err, "step 1 (bind)")
		assert.Contains(t, out, "stopped after 0 of 1 steps")
	})
}

func TestRecordAndTrace(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "wayseat.toml")
	tracePath := filepath.Join(t.TempDir(), "drag.trace")

	out, err := executeCommand(t, "--config", cfgPath, "replay", "--no-trace", "--record", tracePath, "testdata/drag.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "recorded")
	assert.Contains(t, out, tracePath)

	t.Run("prints every message", func(t *testing.T) {
		out, err := executeCommand(t, "trace", tracePath)
		require.NoError(t, err)
		assert.Contains(t, out, "wl_seat.capabilities")
		assert.Contains(t, out, "wl_pointer.motion")
	})

	t.Run("filters by interface", func(t *testing.T) {
		out, err := executeCommand(t, "trace", "--interface", "wl_seat", tracePath)
		require.NoError(t, err)
		assert.Contains(t, out, "wl_seat.capabilities")
		assert.NotContains(t, out, "wl_pointer")
		assert.Contains(t, out, "2 of ")
	})

	t.Run("filters by client", func(t *testing.T) {
		out, err := executeCommand(t, "trace", "--client", "2", tracePath)
		require.NoError(t, err)
		assert.Contains(t, out, "client=2")
		assert.NotContains(t, out, "client=1 ")
	})

	t.Run("truncated trace", func(t *testing.T) {
		data, err := os.ReadFile(tracePath)
		require.NoError(t, err)
		cut := filepath.Join(t.TempDir(), "cut.trace")
		require.NoError(t, os.WriteFile(cut, data[:len(data)-1], 0644))

		out, err := executeCommand(t, "trace", cut)
		assert.Error(t, err)
		assert.Contains(t, out, "trace truncated")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := executeCommand(t, "trace", filepath.Join(t.TempDir(), "none"))
		assert.ErrorContains(t, err, "failed to open trace")
	})
}

func TestServeRequiresAuthorizedKeys(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "wayseat.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[serve]\naddress = \"127.0.0.1:0\"\n"), 0644))

	_, err := executeCommand(t, "--config", cfgPath, "serve")
	assert.ErrorContains(t, err, "authorized keys")
}

func TestDescribeStep(t *testing.T) {
	assert.Equal(t, "pointer_button pressed", describeStep(backend.Step{Op: "pointer_button", State: "pressed"}))
	assert.Equal(t, "pointer_enter client=1 surface=main", describeStep(backend.Step{Op: "pointer_enter", Client: 1, Surface: "main"}))
}

func TestSeatFormValidation(t *testing.T) {
	assert.NoError(t, validateSeatName("seat0"))
	assert.Error(t, validateSeatName("  "))

	tests := []struct {
		value   string
		wantErr bool
	}{
		{"1", false},
		{"8", false},
		{"0", true},
		{"9", true},
		{"many", true},
	}
	for _, tt := range tests {
		err := validateMaxSeats(tt.value)
		if tt.wantErr {
			assert.Error(t, err, tt.value)
		} else {
			assert.NoError(t, err, tt.value)
		}
	}
}

func TestRuntimeOptions(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Seat.Capabilities = []string{"keyboard"}
	opts, err := runtimeOptions(&cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, opts.Priorities.TaskSwitch)
	assert.Equal(t, cfg.Emergency.Keys, opts.EmergencyKeys)

	cfg.Seat.Capabilities = []string{"stylus"}
	_, err = runtimeOptions(&cfg)
	assert.Error(t, err)
}
