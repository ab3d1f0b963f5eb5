package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultContainerID is the host element the scene mounts into.
const DefaultContainerID = "ocean-container"

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type AssetsConfig struct {
	NormalMap string `yaml:"normal_map"`
	Model     string `yaml:"model"`
	Workers   int    `yaml:"workers"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type HeadlessConfig struct {
	Enabled bool `yaml:"enabled"`
	Frames  int  `yaml:"frames"`
	// FrameRate is the simulated display refresh rate in Hz.
	FrameRate int `yaml:"frame_rate"`
}

type BakeConfig struct {
	CaptureSize    int `yaml:"capture_size"`
	IrradianceSize int `yaml:"irradiance_size"`
}

type Config struct {
	Container string         `yaml:"container"`
	Window    WindowConfig   `yaml:"window"`
	Assets    AssetsConfig   `yaml:"assets"`
	Log       LogConfig      `yaml:"log"`
	Headless  HeadlessConfig `yaml:"headless"`
	Bake      BakeConfig     `yaml:"bake"`
}

func Default() Config {
	return Config{
		Container: DefaultContainerID,
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Ocean3D",
			VSync:  true,
		},
		Assets: AssetsConfig{
			NormalMap: "procedural://waternormals",
			Model:     "assets/model.obj",
			Workers:   2,
		},
		Log: LogConfig{
			Level: "info",
		},
		Headless: HeadlessConfig{
			Frames:    240,
			FrameRate: 60,
		},
		Bake: BakeConfig{
			CaptureSize:    32,
			IrradianceSize: 8,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Container == "" {
		errs = append(errs, errors.New("container id must not be empty"))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Assets.Workers < 1 {
		errs = append(errs, fmt.Errorf("assets.workers must be at least 1, got %d", c.Assets.Workers))
	}
	if c.Headless.Enabled && c.Headless.Frames < 0 {
		errs = append(errs, fmt.Errorf("headless.frames must not be negative, got %d", c.Headless.Frames))
	}
	if c.Headless.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("headless.frame_rate must be positive, got %d", c.Headless.FrameRate))
	}
	if c.Bake.CaptureSize < 4 || c.Bake.IrradianceSize < 1 {
		errs = append(errs, fmt.Errorf("bake sizes %d/%d too small", c.Bake.CaptureSize, c.Bake.IrradianceSize))
	}
	return multierr.Combine(errs...)
}
