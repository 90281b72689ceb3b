package config

import "sort"

var Presets = map[string]*Config{
	"original": DefaultConfig(),
	"gentle": withInit(DefaultConfig(), InitStateConfig{Phi: 0.3, Psi: 0.3}, func(c *Config) {
		c.Duration = 30.0
	}),
	"chaos": withInit(DefaultConfig(), InitStateConfig{Phi: 3.0, Psi: 3.0}, func(c *Config) {
		c.Damping = 0.9999
		c.Dt = 0.005
		c.Duration = 60.0
	}),
	"undamped": withInit(DefaultConfig(), InitStateConfig{Phi: 1.5, Psi: 1.5}, func(c *Config) {
		c.Damping = 1.0
		c.Dt = 0.001
		c.Duration = 20.0
	}),
	"flick": withInit(DefaultConfig(), InitStateConfig{Phi: 0.1, PsiDot: 8.0}, func(c *Config) {
		c.Duration = 30.0
	}),
}

func withInit(c *Config, init InitStateConfig, mod func(*Config)) *Config {
	c.InitState = init
	mod(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
