package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads a framework config document from a yaml file. Override rules
// with malformed criteria are reported as an error here rather than failing
// silently on every dispatch.
func Load(filename string) (Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()
	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %v", filename, err)
	}
	for name, pluginConfig := range cfg.Plugins {
		for i, rule := range pluginConfig.Overrides {
			if err := rule.Validate(); err != nil {
				return Config{}, fmt.Errorf("plugin %s: override %d: %w", name, i, err)
			}
		}
	}
	return cfg, nil
}
