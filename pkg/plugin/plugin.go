package plugin

import (
	"github.com/raf924/plugin-sdk/pkg/config"
	"github.com/raf924/plugin-sdk/pkg/gateway"
)

// Executor is the framework surface handed to a plugin during Init.
type Executor interface {
	// Trigger returns the command prefix the gateway recognizes.
	Trigger() string
	ApiKeys() map[string]string
	// Self returns the actor the framework is running as.
	Self() gateway.Actor
}

// A Plugin declares its configuration surface and the commands and event
// listeners it wants dispatched.
type Plugin interface {
	// Init should be implemented to access external data such as API keys or the framework's own actor
	Init(bot Executor) error
	// Name must be implemented for registration. It must return a unique alphanumerical string compliant with the following regex: /^[a-z]([0-9]|[a-z])*$/
	//
	// You have to know what other plugins exist to avoid overlap
	Name() string
	// DefaultConfig returns the plugin's default configuration tree. Deployment
	// config and matching overrides are layered over it per match context.
	DefaultConfig() config.Tree
	// Overrides returns the plugin's built-in override rules, in the order
	// they should apply. Deployment-declared rules apply after these.
	Overrides() []config.Rule
	// Commands returns the plugin's command blueprints
	Commands() []CommandBlueprint
	// Events returns the plugin's event listener blueprints
	Events() []EventBlueprint
}

// Plugins should embed NoOpPlugin to avoid noop method implementations.
// By embedding this, a Plugin implementation only needs to implement Name and
// one of Commands or Events for basic functionality.
type NoOpPlugin struct {
}

func (n *NoOpPlugin) Init(bot Executor) error {
	return nil
}

func (n *NoOpPlugin) Name() string {
	panic("implement me")
}

func (n *NoOpPlugin) DefaultConfig() config.Tree {
	return config.Tree{}
}

func (n *NoOpPlugin) Overrides() []config.Rule {
	return nil
}

func (n *NoOpPlugin) Commands() []CommandBlueprint {
	return nil
}

func (n *NoOpPlugin) Events() []EventBlueprint {
	return nil
}

// Data holds a plugin's shared state. It may be set exactly once, typically
// from Init; setting it again is a programming error and panics.
type Data[T any] struct {
	value T
	set   bool
}

func (d *Data[T]) Set(value T) {
	if d.set {
		panic("plugin data already set")
	}
	d.value = value
	d.set = true
}

func (d *Data[T]) Get() T {
	return d.value
}
