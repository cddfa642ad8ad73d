package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siiimooon/go-band/pkg/sampler"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	opts := cfg.SamplerOptions()
	assert.Equal(t, uuid.MustParse(sampler.DefaultTileID), opts.TileID)
	assert.Equal(t, sampler.DefaultTileName, opts.TileName)
	assert.True(t, opts.BadgingEnabled)
	assert.Equal(t, time.Minute, opts.Window)
	assert.Equal(t, []string{sampler.SensorSkinTemperature}, opts.Sensors)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "bandsample.yaml", `
tile:
  id: 0b0e2c44-2d1c-4b7a-9d1e-55f0a1b2c3d4
  name: Temperature
  badging: false
  large_icon: assets/large.png
sampling:
  window: 30s
  sensors: [skin_temperature, accelerometer]
device:
  scan_timeout: 2s
log:
  level: debug
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Temperature", cfg.Tile.Name)
	assert.False(t, cfg.Tile.Badging)
	assert.Equal(t, "assets/large.png", cfg.Tile.LargeIcon)
	assert.Equal(t, 30*time.Second, cfg.Sampling.Window)
	assert.Equal(t, []string{"skin_temperature", "accelerometer"}, cfg.Sampling.Sensors)
	assert.Equal(t, 2*time.Second, cfg.Device.ScanTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, sampler.DefaultNotificationBody, cfg.Notification.Body)
}

func TestLoadEnvOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "BANDSAMPLE_TILE_NAME=From Dotenv\n")
	t.Setenv("BANDSAMPLE_SAMPLING_WINDOW", "5s")
	t.Setenv("BANDSAMPLE_SAMPLING_SENSORS", "accelerometer, skin_temperature")
	t.Setenv("BANDSAMPLE_TILE_BADGING", "false")
	t.Cleanup(func() { os.Unsetenv("BANDSAMPLE_TILE_NAME") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "From Dotenv", cfg.Tile.Name)
	assert.Equal(t, 5*time.Second, cfg.Sampling.Window)
	assert.Equal(t, []string{"accelerometer", "skin_temperature"}, cfg.Sampling.Sensors)
	assert.False(t, cfg.Tile.Badging)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	for name, content := range map[string]string{
		"bad yaml":       "tile: [",
		"bad tile id":    "tile:\n  id: not-a-uuid\n",
		"zero window":    "sampling:\n  window: 0s\n",
		"unknown sensor": "sampling:\n  sensors: [heart_rate]\n",
		"bad log level":  "log:\n  level: loud\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bandsample.yaml", content), "")
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestLoadBadEnvDuration(t *testing.T) {
	t.Setenv("BANDSAMPLE_DEVICE_SCAN_TIMEOUT", "soon")
	_, err := Load("", "")
	assert.Error(t, err)
}

func TestLoggerFallback(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := LogConfig{Level: "warn"}.Logger(&buf)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandsample.log")
	logger, closer, err := LogConfig{Level: "info", File: path}.Logger(os.Stderr)
	require.NoError(t, err)

	logger.WithField("component", "test").Info("written")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
	assert.Contains(t, string(data), "component=test")
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "bandsample.example.yaml"), "")
	require.NoError(t, err)

	want := Default()
	want.Log.File = "bandsample.log"
	assert.Equal(t, want, cfg)
}
