package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultScene      = "spot_arm"
	DefaultIntegrator = "rk4"
	DefaultFPS        = 60
	DefaultDriftMs    = 35.0
	DefaultForceGain  = 250.0
	DefaultOffsetGain = 0.3
	DefaultTimeout    = 30 * time.Second
	DefaultLogLevel   = "info"
)

type Config struct {
	Scene      string          `yaml:"scene"`
	Integrator string          `yaml:"integrator"`
	Seed       int64           `yaml:"seed"`
	Paused     bool            `yaml:"paused"`
	FPS        int             `yaml:"fps"`
	Noise      NoiseConfig     `yaml:"noise"`
	Drag       DragConfig      `yaml:"drag"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
	Script     ScriptConfig    `yaml:"script"`
	Log        LogConfig       `yaml:"log"`
}

type NoiseConfig struct {
	Rate         float64 `yaml:"rate"`
	Std          float64 `yaml:"std"`
	ClampToRange bool    `yaml:"clamp_to_range"`
}

type DragConfig struct {
	ForceGain  float64 `yaml:"force_gain"`
	OffsetGain float64 `yaml:"offset_gain"`
}

type SchedulerConfig struct {
	DriftMs float64 `yaml:"drift_ms"`
}

type ScriptConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:      DefaultScene,
		Integrator: DefaultIntegrator,
		FPS:        DefaultFPS,
		Drag: DragConfig{
			ForceGain:  DefaultForceGain,
			OffsetGain: DefaultOffsetGain,
		},
		Scheduler: SchedulerConfig{DriftMs: DefaultDriftMs},
		Script:    ScriptConfig{Timeout: DefaultTimeout},
		Log:       LogConfig{Level: DefaultLogLevel},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings no component can honour.
func (c *Config) Validate() error {
	switch {
	case c.Scene == "":
		return fmt.Errorf("scene is required")
	case c.FPS <= 0:
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	case c.Noise.Rate < 0 || c.Noise.Std < 0:
		return fmt.Errorf("noise rate and std must be non-negative")
	case c.Scheduler.DriftMs < 0:
		return fmt.Errorf("scheduler.drift_ms must be non-negative")
	}
	return nil
}

// FrameInterval is the wall-clock period of one render callback.
func (c *Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / DefaultFPS
	}
	return time.Second / time.Duration(c.FPS)
}
