// Package config loads the bandsample configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/siiimooon/go-band/pkg/band"
	"github.com/siiimooon/go-band/pkg/sampler"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BANDSAMPLE_"

type Config struct {
	Tile         TileConfig         `yaml:"tile"`
	Sampling     SamplingConfig     `yaml:"sampling"`
	Notification NotificationConfig `yaml:"notification"`
	Device       DeviceConfig       `yaml:"device"`
	Log          LogConfig          `yaml:"log"`
}

type TileConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Badging   bool   `yaml:"badging"`
	LargeIcon string `yaml:"large_icon"`
	SmallIcon string `yaml:"small_icon"`
}

type SamplingConfig struct {
	Window  time.Duration `yaml:"window"`
	Sensors []string      `yaml:"sensors"`
}

type NotificationConfig struct {
	Body string `yaml:"body"`
}

type DeviceConfig struct {
	NamePrefix  string        `yaml:"name_prefix"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Tile: TileConfig{
			ID:      sampler.DefaultTileID,
			Name:    sampler.DefaultTileName,
			Badging: true,
		},
		Sampling: SamplingConfig{
			Window:  sampler.DefaultWindow,
			Sensors: []string{sampler.SensorSkinTemperature},
		},
		Notification: NotificationConfig{
			Body: sampler.DefaultNotificationBody,
		},
		Device: DeviceConfig{
			NamePrefix:  band.DefaultNamePrefix,
			ScanTimeout: band.DefaultScanTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (optional) on top of the defaults, then loads envFile (optional,
// missing is fine) and applies BANDSAMPLE_* overrides from the environment.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TILE_ID":            &c.Tile.ID,
		"TILE_NAME":          &c.Tile.Name,
		"TILE_LARGE_ICON":    &c.Tile.LargeIcon,
		"TILE_SMALL_ICON":    &c.Tile.SmallIcon,
		"NOTIFICATION_BODY":  &c.Notification.Body,
		"DEVICE_NAME_PREFIX": &c.Device.NamePrefix,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FILE":           &c.Log.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SAMPLING_WINDOW":     &c.Sampling.Window,
		"DEVICE_SCAN_TIMEOUT": &c.Device.ScanTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv(EnvPrefix + "TILE_BADGING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTILE_BADGING: %w", EnvPrefix, err)
		}
		c.Tile.Badging = b
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SAMPLING_SENSORS"); ok {
		c.Sampling.Sensors = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Sampling.Sensors = append(c.Sampling.Sensors, s)
			}
		}
	}
	return nil
}

// Validate checks values that cannot be checked by YAML decoding alone.
func (c Config) Validate() error {
	if _, err := uuid.Parse(c.Tile.ID); err != nil {
		return fmt.Errorf("tile.id %q: %w", c.Tile.ID, err)
	}
	if c.Sampling.Window <= 0 {
		return fmt.Errorf("sampling.window must be positive, got %s", c.Sampling.Window)
	}
	for _, s := range c.Sampling.Sensors {
		if s != sampler.SensorSkinTemperature && s != sampler.SensorAccelerometer {
			return fmt.Errorf("sampling.sensors: unknown sensor %q", s)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// SamplerOptions converts the config to sampler options. Validate must have passed.
func (c Config) SamplerOptions() sampler.Options {
	return sampler.Options{
		TileID:           uuid.MustParse(c.Tile.ID),
		TileName:         c.Tile.Name,
		BadgingEnabled:   c.Tile.Badging,
		LargeIconPath:    c.Tile.LargeIcon,
		SmallIconPath:    c.Tile.SmallIcon,
		NotificationBody: c.Notification.Body,
		Window:           c.Sampling.Window,
		Sensors:          append([]string(nil), c.Sampling.Sensors...),
	}
}
