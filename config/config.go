package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lautenbacher.net/tronstrip/engine"
)

// AmbientConfig is the steady-state strip color at startup plus the two
// fixed RGB endpoints the color temperature blends between.
type AmbientConfig struct {
	On         bool      `yaml:"On" json:"On"`
	Brightness float64   `yaml:"Brightness" json:"Brightness"`
	ColorTemp  int       `yaml:"ColorTemp" json:"ColorTemp"`
	WarmRGB    []float64 `yaml:"WarmRGB" json:"WarmRGB"`
	CoolRGB    []float64 `yaml:"CoolRGB" json:"CoolRGB"`
}

// BurstConfig holds the animation parameter defaults and the admission
// policy ranges.
type BurstConfig struct {
	TrailMin  int           `yaml:"TrailMin" json:"TrailMin"`
	TrailMax  int           `yaml:"TrailMax" json:"TrailMax"`
	SpeedMin  time.Duration `yaml:"SpeedMin" json:"SpeedMin"`
	SpeedMax  time.Duration `yaml:"SpeedMax" json:"SpeedMax"`
	Bounce    string        `yaml:"Bounce" json:"Bounce"`
	Endpoint  int           `yaml:"Endpoint" json:"Endpoint"`
	DelayMin  time.Duration `yaml:"DelayMin" json:"DelayMin"`
	DelayMax  time.Duration `yaml:"DelayMax" json:"DelayMax"`
	BurstMin  int           `yaml:"BurstMin" json:"BurstMin"`
	BurstMax  int           `yaml:"BurstMax" json:"BurstMax"`
	BurstGap  time.Duration `yaml:"BurstGap" json:"BurstGap"`
	Intensity float64       `yaml:"Intensity" json:"Intensity"`
	QueueSize int           `yaml:"QueueSize" json:"QueueSize"`
}

// NightDimConfig enables dimming the ambient between sunset and sunrise.
type NightDimConfig struct {
	Enabled   bool    `yaml:"Enabled"`
	Latitude  float64 `yaml:"Latitude"`
	Longitude float64 `yaml:"Longitude"`
	Factor    float64 `yaml:"Factor"`
}

// DisplayConfig describes the physical strip and the render cadence.
type DisplayConfig struct {
	LedsTotal         int           `yaml:"LedsTotal"`
	FrameInterval     time.Duration `yaml:"FrameInterval"`
	ForceUpdateDelay  time.Duration `yaml:"ForceUpdateDelay"`
	LEDType           string        `yaml:"LEDType"`
	SPIFrequency      int           `yaml:"SPIFrequency"`
	APA102_Brightness int           `yaml:"APA102_Brightness"`
	ColorCorrection   []float64     `yaml:"ColorCorrection"`
}

// MotionConfig describes the PIR input.
type MotionConfig struct {
	Pin          int           `yaml:"Pin"`
	PollInterval time.Duration `yaml:"PollInterval"`
	Debounce     time.Duration `yaml:"Debounce"`
	IndicatorPin int           `yaml:"IndicatorPin"`
}

// HardwareConfig groups everything only the real platform cares about.
type HardwareConfig struct {
	Display DisplayConfig `yaml:"Display"`
	Motion  MotionConfig  `yaml:"Motion"`
}

// WebConfig configures the HTTP control surface.
type WebConfig struct {
	Enabled bool   `yaml:"Enabled"`
	Listen  string `yaml:"Listen"`
}

// LogConfig is one logging profile (level, format, optional file).
type LogConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// LoggingConfig carries separate profiles for the TUI simulation and
// the real hardware run.
type LoggingConfig struct {
	TUI LogConfig `yaml:"TUI"`
	HW  LogConfig `yaml:"HW"`
}

type Config struct {
	RealHW     bool   `yaml:"-" json:"-"`
	Configfile string `yaml:"-" json:"-"`

	Ambient  AmbientConfig  `yaml:"Ambient"`
	Burst    BurstConfig    `yaml:"Burst"`
	NightDim NightDimConfig `yaml:"NightDim"`
	Web      WebConfig      `yaml:"Web"`
	Hardware HardwareConfig `yaml:"Hardware"`
	Logging  LoggingConfig  `yaml:"Logging"`
}

// ReadConfig parses and validates the YAML config file.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	conf := &Config{}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.Configfile = cfile

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the config invariants that can't be expressed in the
// YAML shape itself. Runtime parameter updates go through the engine
// validator instead; this guards the startup values and everything that
// is not runtime-mutable.
func (c *Config) Validate() error {
	leds := c.Hardware.Display.LedsTotal
	if leds < 1 {
		return fmt.Errorf("Hardware.Display.LedsTotal must be at least 1, got %d", leds)
	}
	if c.Hardware.Display.FrameInterval <= 0 {
		return fmt.Errorf("Hardware.Display.FrameInterval must be positive")
	}
	if err := validateRGB("Ambient.WarmRGB", c.Ambient.WarmRGB); err != nil {
		return err
	}
	if err := validateRGB("Ambient.CoolRGB", c.Ambient.CoolRGB); err != nil {
		return err
	}
	if len(c.Hardware.Display.ColorCorrection) != 3 {
		return fmt.Errorf("Hardware.Display.ColorCorrection must have 3 entries")
	}
	if c.Ambient.Brightness < 0 || c.Ambient.Brightness > 1 {
		return fmt.Errorf("Ambient.Brightness must be between 0 and 1, got %f", c.Ambient.Brightness)
	}
	if c.Ambient.ColorTemp < engine.CCTMin || c.Ambient.ColorTemp > engine.CCTMax {
		return fmt.Errorf("Ambient.ColorTemp must be between %d and %d, got %d",
			engine.CCTMin, engine.CCTMax, c.Ambient.ColorTemp)
	}
	if c.Burst.TrailMin < 1 || c.Burst.TrailMax < c.Burst.TrailMin {
		return fmt.Errorf("Burst.TrailMin/TrailMax must satisfy 1 <= min <= max")
	}
	if c.Burst.SpeedMin < time.Millisecond || c.Burst.SpeedMax < c.Burst.SpeedMin {
		return fmt.Errorf("Burst.SpeedMin/SpeedMax must satisfy 1ms <= min <= max")
	}
	switch strings.ToLower(c.Burst.Bounce) {
	case "one-way", "forward-back":
	default:
		return fmt.Errorf("Burst.Bounce must be \"one-way\" or \"forward-back\", got %q", c.Burst.Bounce)
	}
	if c.Burst.Endpoint < engine.VariableEndpoint || c.Burst.Endpoint > leds-1 {
		return fmt.Errorf("Burst.Endpoint must be between %d (variable) and %d, got %d",
			engine.VariableEndpoint, leds-1, c.Burst.Endpoint)
	}
	if c.Burst.DelayMin < 0 || c.Burst.DelayMax < c.Burst.DelayMin {
		return fmt.Errorf("Burst.DelayMin/DelayMax must satisfy 0 <= min <= max")
	}
	if c.Burst.BurstMin < 1 || c.Burst.BurstMax < c.Burst.BurstMin {
		return fmt.Errorf("Burst.BurstMin/BurstMax must satisfy 1 <= min <= max")
	}
	if c.Burst.Intensity < 0 || c.Burst.Intensity > 1 {
		return fmt.Errorf("Burst.Intensity must be between 0 and 1, got %f", c.Burst.Intensity)
	}
	if c.Burst.QueueSize < 1 {
		return fmt.Errorf("Burst.QueueSize must be at least 1, got %d", c.Burst.QueueSize)
	}
	if c.NightDim.Enabled && (c.NightDim.Factor <= 0 || c.NightDim.Factor > 1) {
		return fmt.Errorf("NightDim.Factor must be in (0, 1], got %f", c.NightDim.Factor)
	}
	return nil
}

func validateRGB(name string, rgb []float64) error {
	if len(rgb) != 3 {
		return fmt.Errorf("%s must have 3 entries, got %d", name, len(rgb))
	}
	for _, v := range rgb {
		if v < 0 || v > 255 {
			return fmt.Errorf("%s values must be between 0 and 255, got %f", name, v)
		}
	}
	return nil
}

// Palette maps the configured blend endpoints into the engine type.
func (c *Config) Palette() engine.Palette {
	return engine.Palette{
		Warm: engine.Led{Red: c.Ambient.WarmRGB[0], Green: c.Ambient.WarmRGB[1], Blue: c.Ambient.WarmRGB[2]},
		Cool: engine.Led{Red: c.Ambient.CoolRGB[0], Green: c.Ambient.CoolRGB[1], Blue: c.Ambient.CoolRGB[2]},
	}
}

// EngineAmbient maps the startup ambient settings into the engine type.
func (c *Config) EngineAmbient() engine.Ambient {
	return engine.Ambient{
		On:         c.Ambient.On,
		Brightness: c.Ambient.Brightness,
		ColorTemp:  c.Ambient.ColorTemp,
	}
}

// EngineParams maps the burst settings into the engine type.
func (c *Config) EngineParams() engine.BurstParams {
	bounce := engine.BounceOneWay
	if strings.ToLower(c.Burst.Bounce) == "forward-back" {
		bounce = engine.BounceForwardBack
	}
	return engine.BurstParams{
		TrailMin:  c.Burst.TrailMin,
		TrailMax:  c.Burst.TrailMax,
		SpeedMin:  int(c.Burst.SpeedMin.Milliseconds()),
		SpeedMax:  int(c.Burst.SpeedMax.Milliseconds()),
		Bounce:    bounce,
		Endpoint:  c.Burst.Endpoint,
		DelayMin:  int(c.Burst.DelayMin.Milliseconds()),
		DelayMax:  int(c.Burst.DelayMax.Milliseconds()),
		CountMin:  c.Burst.BurstMin,
		CountMax:  c.Burst.BurstMax,
		Gap:       int(c.Burst.BurstGap.Milliseconds()),
		Intensity: c.Burst.Intensity,
	}
}

// ParamUpdates flattens the runtime-mutable settings into validator
// updates, used when the config file is rewritten and reloaded.
func (c *Config) ParamUpdates() []engine.ParamUpdate {
	return []engine.ParamUpdate{
		{Name: "on", Value: c.Ambient.On},
		{Name: "brightness", Value: c.Ambient.Brightness},
		{Name: "color_temp", Value: c.Ambient.ColorTemp},
		{Name: "intensity", Value: c.Burst.Intensity},
		{Name: "trail_min", Value: c.Burst.TrailMin},
		{Name: "trail_max", Value: c.Burst.TrailMax},
		{Name: "speed_min", Value: int(c.Burst.SpeedMin.Milliseconds())},
		{Name: "speed_max", Value: int(c.Burst.SpeedMax.Milliseconds())},
		{Name: "bounce", Value: strings.ToLower(c.Burst.Bounce)},
		{Name: "endpoint", Value: c.Burst.Endpoint},
		{Name: "delay_min", Value: int(c.Burst.DelayMin.Milliseconds())},
		{Name: "delay_max", Value: int(c.Burst.DelayMax.Milliseconds())},
		{Name: "burst_min", Value: c.Burst.BurstMin},
		{Name: "burst_max", Value: c.Burst.BurstMax},
		{Name: "burst_gap", Value: int(c.Burst.BurstGap.Milliseconds())},
	}
}
