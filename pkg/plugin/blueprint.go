package plugin

import (
	"context"
	"sort"
	"time"

	"github.com/raf924/plugin-sdk/pkg/config"
	"github.com/raf924/plugin-sdk/pkg/gateway"
	"github.com/raf924/plugin-sdk/pkg/lock"
)

// Gating shared by command and event blueprints. Failing any of these checks
// silently prevents execution; it is never an error.
type Gating struct {
	// Permission is the dot-delimited config path that must resolve to true
	// for the handler to run. Empty means no permission check.
	Permission string
	// Cooldown rejects re-invocation by the same actor within the window.
	Cooldown time.Duration
	// CooldownPermission, when set, names a permission path that must resolve
	// to true for the cooldown to apply; actors without it bypass the window.
	CooldownPermission string
	// Locks are acquired, in one atomic acquisition, around the handler.
	Locks []string
	// AllowBots, AllowSelf and AllowOutsideOfGuild widen the default source
	// restrictions (bot actors, the framework's own actor, and guild-less
	// sources are all rejected unless allowed).
	AllowBots           bool
	AllowSelf           bool
	AllowOutsideOfGuild bool
}

// A CommandEvent is what a command handler runs against.
type CommandEvent struct {
	Message *gateway.CommandMessage
	// Config is the effective configuration for the invocation's context.
	Config config.Tree
	// Lock is non-nil when the blueprint declares lock keys. Release is the
	// dispatcher's responsibility; handlers only observe Interrupted.
	Lock *lock.Lock
}

// A CommandBlueprint declares one dispatchable command. Run does the work;
// returned replies are forwarded to the gateway once the critical section is
// over.
type CommandBlueprint struct {
	Gating
	Name    string
	Aliases []string
	Run     func(ctx context.Context, ev CommandEvent) ([]*gateway.Reply, error)
}

// An Event is what an event listener runs against.
type Event struct {
	Message *gateway.EventMessage
	Config  config.Tree
	Lock    *lock.Lock
}

// An EventBlueprint declares one gated event listener.
type EventBlueprint struct {
	Gating
	// Event is the gateway event name the listener reacts to.
	Event string
	Run   func(ctx context.Context, ev Event) ([]*gateway.Reply, error)
}

// Is reports whether possibleCommand is the blueprint's name or one of its
// aliases.
func Is(possibleCommand string, blueprint CommandBlueprint) bool {
	if possibleCommand == blueprint.Name {
		return true
	}
	aliases := append([]string(nil), blueprint.Aliases...)
	if len(aliases) == 0 {
		return false
	}
	sort.Strings(aliases)
	index := sort.SearchStrings(aliases, possibleCommand)
	return index < len(aliases) && aliases[index] == possibleCommand
}

func Find(blueprints []CommandBlueprint, possibleCommand string) *CommandBlueprint {
	for i, blueprint := range blueprints {
		if Is(possibleCommand, blueprint) {
			return &blueprints[i]
		}
	}
	return nil
}
