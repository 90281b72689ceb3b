package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dpend/internal/pendulum"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultPhi      = 2.7
	DefaultPsi      = 2.2
	DefaultFPS      = 100
	// DefaultMaxLoopRate caps realtime physics iterations per second.
	DefaultMaxLoopRate = 1000
	DefaultDataDir     = ".dpend"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisChannel   = "dpend.step"
	DefaultRedisLatestKey = "dpend:latest"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Gravity     float64         `yaml:"gravity"`
	ArmLength   float64         `yaml:"arm_length"`
	ArmPixels   float64         `yaml:"arm_pixels"`
	Damping     float64         `yaml:"damping"`
	Dt          float64         `yaml:"dt"`
	Duration    float64         `yaml:"duration"`
	FPS         int             `yaml:"fps"`
	MaxLoopRate int             `yaml:"max_loop_rate"`
	InitState   InitStateConfig `yaml:"init_state"`
	Redis       RedisConfig     `yaml:"redis"`
	DataDir     string          `yaml:"data_dir"`
}

type InitStateConfig struct {
	Phi    float64 `yaml:"phi"`
	Psi    float64 `yaml:"psi"`
	PhiDot float64 `yaml:"phi_dot"`
	PsiDot float64 `yaml:"psi_dot"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Channel   string `yaml:"channel"`
	LatestKey string `yaml:"latest_key"`
}

func DefaultConfig() *Config {
	return &Config{
		Gravity:     pendulum.DefaultGravity,
		ArmLength:   pendulum.DefaultArmLength,
		ArmPixels:   pendulum.DefaultArmPixels,
		Damping:     pendulum.DefaultDamping,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		FPS:         DefaultFPS,
		MaxLoopRate: DefaultMaxLoopRate,
		InitState: InitStateConfig{
			Phi: DefaultPhi,
			Psi: DefaultPsi,
		},
		Redis: RedisConfig{
			Addr:      DefaultRedisAddr,
			Channel:   DefaultRedisChannel,
			LatestKey: DefaultRedisLatestKey,
		},
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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

func (c *Config) Validate() error {
	if err := c.Constants().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := pendulum.ValidateDamping(c.Damping); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !nonNegativeFinite(c.Dt) {
		return fmt.Errorf("%w: dt %v must be finite and not negative", ErrInvalid, c.Dt)
	}
	if !nonNegativeFinite(c.Duration) {
		return fmt.Errorf("%w: duration %v must be finite and not negative", ErrInvalid, c.Duration)
	}
	if c.ArmPixels <= 0 {
		return fmt.Errorf("%w: arm_pixels %v must be positive", ErrInvalid, c.ArmPixels)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps %d must be positive", ErrInvalid, c.FPS)
	}
	if c.MaxLoopRate <= 0 {
		return fmt.Errorf("%w: max_loop_rate %d must be positive", ErrInvalid, c.MaxLoopRate)
	}
	return nil
}

func nonNegativeFinite(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func (c *Config) Constants() pendulum.Constants {
	return pendulum.NewConstants(c.Gravity, c.ArmLength)
}

func (c *Config) Stepper() *pendulum.Stepper {
	return pendulum.NewStepper(c.Constants(), c.Damping)
}

func (c *Config) GetInitState() pendulum.State {
	return pendulum.State{
		Phi:    c.InitState.Phi,
		Psi:    c.InitState.Psi,
		PhiDot: c.InitState.PhiDot,
		PsiDot: c.InitState.PsiDot,
	}
}

// LoadDotEnv reads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from DPEND_* environment variables.
func (c *Config) ApplyEnv() error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"DPEND_GRAVITY", &c.Gravity},
		{"DPEND_ARM_LENGTH", &c.ArmLength},
		{"DPEND_DAMPING", &c.Damping},
		{"DPEND_DT", &c.Dt},
		{"DPEND_DURATION", &c.Duration},
	}
	for _, f := range floats {
		v, ok := os.LookupEnv(f.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", f.key, v, err)
		}
		*f.dst = parsed
	}

	if v := os.Getenv("DPEND_FPS"); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DPEND_FPS=%q: %w", v, err)
		}
		c.FPS = fps
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"DPEND_REDIS_ADDR", &c.Redis.Addr},
		{"DPEND_REDIS_CHANNEL", &c.Redis.Channel},
		{"DPEND_DATA_DIR", &c.DataDir},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	return c.Validate()
}
