package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocean.yaml")
	data := []byte(`
container: stage
assets:
  model: https://example.com/boat.obj
headless:
  enabled: true
  frames: 40
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stage", cfg.Container)
	assert.Equal(t, "https://example.com/boat.obj", cfg.Assets.Model)
	assert.Equal(t, "procedural://waternormals", cfg.Assets.NormalMap)
	assert.True(t, cfg.Headless.Enabled)
	assert.Equal(t, 40, cfg.Headless.Frames)
	assert.Equal(t, 1280, cfg.Window.Width)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  width: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window size")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Container = ""
	cfg.Assets.Workers = 0
	cfg.Headless.FrameRate = 0

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "container id")
	assert.Contains(t, errs[1].Error(), "assets.workers")
	assert.Contains(t, errs[2].Error(), "headless.frame_rate")
}
