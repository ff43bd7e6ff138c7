package config

// RuntimeConfig is the subset of the configuration that may be changed
// through the web API. Hardware, logging and web settings are excluded;
// they require a restart.
type RuntimeConfig struct {
	Ambient AmbientConfig `yaml:"Ambient" json:"Ambient"`
	Burst   BurstConfig   `yaml:"Burst" json:"Burst"`
}
