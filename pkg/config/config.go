package config

// PluginConfig is the per-plugin section of the framework config document:
// whether the plugin runs, a partial Tree layered over the plugin's declared
// defaults, and override rules appended after the plugin's declared ones.
type PluginConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Config    Tree   `yaml:"config,omitempty"`
	Overrides []Rule `yaml:"overrides,omitempty"`
}

type Config struct {
	Trigger string                  `yaml:"trigger"`
	ApiKeys map[string]string       `yaml:"apiKeys"`
	Plugins map[string]PluginConfig `yaml:"plugins"`
}

// PluginEnabled defaults to true for plugins the document does not mention.
func (c Config) PluginEnabled(name string) bool {
	pluginConfig, exists := c.Plugins[name]
	if !exists || pluginConfig.Enabled == nil {
		return true
	}
	return *pluginConfig.Enabled
}

func (c Config) Plugin(name string) PluginConfig {
	return c.Plugins[name]
}
