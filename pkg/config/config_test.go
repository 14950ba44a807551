package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, "sync", cfg.Settings.EngineType)
	require.Equal(t, 30*time.Second, cfg.Settings.PhaseDuration.Std())
	require.False(t, cfg.Settings.NoDirect)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spindle.yaml")
	data := `
target: /mnt/data
report: out.json
settings:
  engine_type: uring
  phase_duration: 5s
  rand_block_size: 8192
  no_direct: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/mnt/data", cfg.Target)
	require.Equal(t, "out.json", cfg.Report)
	require.Equal(t, "uring", cfg.Settings.EngineType)
	require.Equal(t, 5*time.Second, cfg.Settings.PhaseDuration.Std())
	require.Equal(t, 8192, cfg.Settings.RandBlockSize)
	require.True(t, cfg.Settings.NoDirect)
	// Unset fields still get defaults.
	require.Zero(t, cfg.Settings.SeqBlockSize)
}

func TestDurationAcceptsBareSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spindle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings:\n  phase_duration: 45\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.Settings.PhaseDuration.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settings: ["), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
