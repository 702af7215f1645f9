package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := buildConfig(parsedCommand(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestBuildConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  duration: 0.3\nspeed_pid:\n  kp: 0.5\n"), 0644))

	cfg, err := buildConfig(parsedCommand(t,
		"--preset", "cascade-step",
		"--config", path,
		"--kp", "0.7",
		"--current-max", "12",
		"--ref", "step:100,0.05",
		"--set", "motor.tl=0.002",
	))
	require.NoError(t, err)

	assert.Equal(t, "cascade", cfg.Simulation.Mode)
	assert.Equal(t, 0.3, cfg.Simulation.Duration)
	assert.Equal(t, 0.7, cfg.SpeedPID.Kp)
	assert.Equal(t, 4.44, cfg.SpeedPID.Ki)
	require.NotNil(t, cfg.CurrentPID.Max)
	assert.Equal(t, 12.0, *cfg.CurrentPID.Max)
	assert.Equal(t, "step", cfg.Reference.Kind)
	assert.Equal(t, 100.0, cfg.Reference.Value)
	assert.Equal(t, 0.05, cfg.Reference.Delay)
	assert.Equal(t, 0.002, cfg.Motor.TL)
}

func TestBuildConfigErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--preset", "nope"},
		{"--config", "/does/not/exist.yaml"},
		{"--ref", "ramp:1"},
		{"--set", "motor.tl"},
		{"--set", "motor.tl=abc"},
		{"--set", "motor.nope=1"},
	} {
		_, err := buildConfig(parsedCommand(t, args...))
		assert.Error(t, err, "%v", args)
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"speed_pid.kp=0.1, 0.2,0.4", "motor.tl=0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"speed_pid.kp", "motor.tl"}, names)
	assert.Equal(t, [][]float64{{0.1, 0.2, 0.4}, {0}}, ranges)

	_, _, err = parseGrid([]string{"speed_pid.kp"})
	assert.Error(t, err)
	_, _, err = parseGrid([]string{"speed_pid.kp="})
	assert.Error(t, err)
	_, _, err = parseGrid([]string{"speed_pid.kp=1,x"})
	assert.Error(t, err)
}

func TestDecimate(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}
	out := decimate(data, 10)
	assert.Len(t, out, 10)
	assert.Equal(t, 90.0, out[9])

	assert.Equal(t, data[:5], decimate(data[:5], 10))
}
