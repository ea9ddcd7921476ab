// Package bot is the public entry point: plugins register themselves with
// Handle, New wires them to a gateway relay behind a running dispatcher.
package bot

import (
	"log"
	"reflect"

	"github.com/raf924/plugin-sdk/internal/pkg/dispatch"
	"github.com/raf924/plugin-sdk/pkg"
	"github.com/raf924/plugin-sdk/pkg/config"
	"github.com/raf924/plugin-sdk/pkg/gateway"
	"github.com/raf924/plugin-sdk/pkg/plugin"
)

var plugins []plugin.Plugin

// Handle registers a plugin for the next New call, typically from the
// plugin package's init function.
func Handle(p plugin.Plugin) {
	log.Println("Handling", p.Name())
	if reflect.TypeOf(p).Kind() != reflect.Ptr {
		log.Println("plugin must be a pointer type")
	}
	plugins = append(plugins, p)
}

func New(cfg config.Config, relay gateway.Relay) pkg.Runnable {
	return dispatch.NewDispatcher(cfg, relay, plugins...)
}
