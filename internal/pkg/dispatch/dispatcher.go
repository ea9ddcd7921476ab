package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/raf924/plugin-sdk/pkg/config"
	"github.com/raf924/plugin-sdk/pkg/gateway"
	"github.com/raf924/plugin-sdk/pkg/lock"
	"github.com/raf924/plugin-sdk/pkg/plugin"
	"github.com/raf924/plugin-sdk/pkg/queue"
)

const sweepInterval = 256

type pluginRuntime struct {
	plugin   plugin.Plugin
	resolver *config.Resolver
	commands []plugin.CommandBlueprint
}

// A Listener is the registration handle for one event blueprint.
type Listener struct {
	id        string
	runtime   *pluginRuntime
	blueprint plugin.EventBlueprint
}

// A Dispatcher routes gateway traffic to plugin handlers, gating each
// invocation on source restrictions, permissions, cooldowns and locks. All of
// its registries are scoped to the instance and torn down with it.
type Dispatcher struct {
	relay     gateway.Relay
	config    config.Config
	roster    *gateway.Roster
	locks     *lock.Manager
	cooldowns *cooldowns
	messages  queue.Queue[gateway.Message]
	plugins     map[string]*pluginRuntime
	order       []string
	listenersMu sync.RWMutex
	listeners   map[string]*Listener
	self        gateway.Actor
	trigger   string
	ctx       context.Context
	cancel    context.CancelFunc
	errMu     sync.Mutex
	err       error
}

func NewDispatcher(cfg config.Config, relay gateway.Relay, plugins ...plugin.Plugin) *Dispatcher {
	d := &Dispatcher{
		relay:     relay,
		config:    cfg,
		roster:    gateway.NewRoster(),
		locks:     lock.NewManager(),
		cooldowns: newCooldowns(),
		messages:  queue.NewQueue[gateway.Message](),
		plugins:   map[string]*pluginRuntime{},
		listeners: map[string]*Listener{},
		trigger:   cfg.Trigger,
	}
	for _, p := range plugins {
		d.AddPlugin(p)
	}
	return d
}

// AddPlugin registers a plugin before Start. Registering two plugins under
// the same name is a programming error and panics.
func (d *Dispatcher) AddPlugin(p plugin.Plugin) {
	if _, exists := d.plugins[p.Name()]; exists {
		panic(fmt.Sprintf("plugin %s already registered", p.Name()))
	}
	d.plugins[p.Name()] = &pluginRuntime{plugin: p}
	d.order = append(d.order, p.Name())
}

// Trigger implements plugin.Executor.
func (d *Dispatcher) Trigger() string {
	return d.trigger
}

// ApiKeys implements plugin.Executor.
func (d *Dispatcher) ApiKeys() map[string]string {
	return d.config.ApiKeys
}

// Self implements plugin.Executor.
func (d *Dispatcher) Self() gateway.Actor {
	return d.self
}

// Interrupt advisorily interrupts every current and future holder of key
// until ClearInterrupt.
func (d *Dispatcher) Interrupt(key string) {
	d.locks.Interrupt(key)
}

func (d *Dispatcher) ClearInterrupt(key string) {
	d.locks.ClearInterrupt(key)
}

func (d *Dispatcher) Start(parent context.Context) error {
	d.ctx, d.cancel = context.WithCancel(parent)
	confirmation, err := d.relay.Connect()
	if err != nil {
		d.cancel()
		return fmt.Errorf("cannot connect to gateway: %v", err)
	}
	d.self = confirmation.Self
	if confirmation.Trigger != "" {
		d.trigger = confirmation.Trigger
	}
	for _, actor := range confirmation.Online {
		d.roster.Add(actor)
	}
	group, groupCtx := errgroup.WithContext(d.ctx)
	d.initPlugins(group, groupCtx)
	group.Go(func() error {
		return d.pump(groupCtx)
	})
	go func() {
		err := group.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Println(err)
			d.errMu.Lock()
			d.err = err
			d.errMu.Unlock()
		}
		d.teardown()
		d.cancel()
	}()
	return nil
}

// Stop cancels dispatch; registries are cleared once in-flight handlers
// finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Dispatcher) Done() <-chan struct{} {
	return d.ctx.Done()
}

func (d *Dispatcher) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	if d.err != nil {
		return d.err
	}
	return d.ctx.Err()
}

func (d *Dispatcher) teardown() {
	d.locks.Clear()
	d.cooldowns.Clear()
	d.roster.Clear()
}

func (d *Dispatcher) initPlugins(group *errgroup.Group, ctx context.Context) {
	for _, name := range d.order {
		if !d.config.PluginEnabled(name) {
			continue
		}
		rt := d.plugins[name]
		if err := rt.plugin.Init(d); err != nil {
			log.Printf("couldn't init %s: %v\n", name, err)
			continue
		}
		pluginConfig := d.config.Plugin(name)
		defaults := config.Merge(rt.plugin.DefaultConfig(), pluginConfig.Config)
		rules := append(append([]config.Rule{}, rt.plugin.Overrides()...), pluginConfig.Overrides...)
		rt.resolver = config.NewResolver(defaults, rules)
		rt.commands = rt.plugin.Commands()
		for _, blueprint := range rt.plugin.Events() {
			d.addListener(rt, blueprint)
		}
		consumer, err := d.messages.NewConsumer()
		if err != nil {
			log.Printf("couldn't init %s: %v\n", name, err)
			continue
		}
		group.Go(func() error {
			defer consumer.Cancel()
			return d.relayMessages(ctx, rt, consumer)
		})
	}
}

func (d *Dispatcher) addListener(rt *pluginRuntime, blueprint plugin.EventBlueprint) *Listener {
	l := &Listener{
		id:        uuid.NewString(),
		runtime:   rt,
		blueprint: blueprint,
	}
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	if _, exists := d.listeners[l.id]; exists {
		panic(fmt.Sprintf("listener %s already registered", l.id))
	}
	d.listeners[l.id] = l
	return l
}

// RemoveListener unregisters a listener handle. Removing a handle that is not
// registered is a programming error and panics.
func (d *Dispatcher) RemoveListener(l *Listener) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	if _, exists := d.listeners[l.id]; !exists {
		panic(fmt.Sprintf("listener %s is not registered", l.id))
	}
	delete(d.listeners, l.id)
}

func (d *Dispatcher) pluginListeners(rt *pluginRuntime, event string) []*Listener {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	var listeners []*Listener
	for _, l := range d.listeners {
		if l.runtime == rt && l.blueprint.Event == event {
			listeners = append(listeners, l)
		}
	}
	return listeners
}

// pump moves gateway traffic onto the fan-out queue, keeping the roster
// current along the way.
func (d *Dispatcher) pump(ctx context.Context) error {
	var pumped int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		message, err := d.relay.Recv()
		if err != nil {
			return err
		}
		if event, ok := message.(*gateway.EventMessage); ok {
			switch event.Name {
			case gateway.EventMemberJoin:
				d.roster.Add(event.Source.Actor)
			case gateway.EventMemberLeave:
				d.roster.Remove(event.Source.Actor.ID)
			}
		}
		if err := d.messages.Produce(message); err != nil {
			return err
		}
		if pumped++; pumped%sweepInterval == 0 {
			d.cooldowns.Sweep()
		}
	}
}

func (d *Dispatcher) relayMessages(ctx context.Context, rt *pluginRuntime, consumer queue.Consumer[gateway.Message]) error {
	name := rt.plugin.Name()
	for {
		message, err := consumer.Consume(ctx)
		if err != nil {
			return err
		}
		switch message := message.(type) {
		case *gateway.CommandMessage:
			blueprint := plugin.Find(rt.commands, message.Command)
			if blueprint == nil {
				continue
			}
			if err := d.dispatchCommand(ctx, rt, blueprint, message); err != nil {
				log.Println("plugin", name, "command", blueprint.Name, "error:", err.Error())
			}
		case *gateway.EventMessage:
			for _, l := range d.pluginListeners(rt, message.Name) {
				if err := d.dispatchEvent(ctx, rt, l.blueprint, message); err != nil {
					log.Println("plugin", name, "event", message.Name, "error:", err.Error())
				}
			}
		}
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, rt *pluginRuntime, blueprint *plugin.CommandBlueprint, message *gateway.CommandMessage) error {
	matchContext := d.matchContext(message.Source)
	cooldownKey := rt.plugin.Name() + "." + blueprint.Name + ":" + message.Source.Actor.ID
	if !d.gate(rt, blueprint.Gating, blueprint.Name, cooldownKey, message.Source, matchContext) {
		return nil
	}
	return d.runGated(ctx, blueprint.Gating, func(l *lock.Lock) ([]*gateway.Reply, error) {
		return blueprint.Run(ctx, plugin.CommandEvent{
			Message: message,
			Config:  rt.resolver.Resolve(matchContext),
			Lock:    l,
		})
	})
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, rt *pluginRuntime, blueprint plugin.EventBlueprint, message *gateway.EventMessage) error {
	matchContext := d.matchContext(message.Source)
	cooldownKey := rt.plugin.Name() + "." + blueprint.Event + ":" + message.Source.Actor.ID
	if !d.gate(rt, blueprint.Gating, blueprint.Event, cooldownKey, message.Source, matchContext) {
		return nil
	}
	return d.runGated(ctx, blueprint.Gating, func(l *lock.Lock) ([]*gateway.Reply, error) {
		return blueprint.Run(ctx, plugin.Event{
			Message: message,
			Config:  rt.resolver.Resolve(matchContext),
			Lock:    l,
		})
	})
}

// gate runs the silent checks, in order: source restrictions, permission,
// cooldown. A false result means no execution and no side effect beyond an
// armed cooldown window.
func (d *Dispatcher) gate(rt *pluginRuntime, gating plugin.Gating, name, cooldownKey string, source gateway.Source, matchContext config.MatchContext) bool {
	if source.Actor.Bot && !gating.AllowBots {
		return false
	}
	if source.Actor.ID == d.self.ID && !gating.AllowSelf {
		return false
	}
	if source.GuildID == "" && !gating.AllowOutsideOfGuild {
		return false
	}
	if gating.Permission != "" && !rt.resolver.HasPermission(gating.Permission, matchContext) {
		log.Println(source.Actor.Nick, "is not allowed to use", name)
		return false
	}
	if gating.Cooldown > 0 && d.cooldownApplies(rt, gating, matchContext) {
		if !d.cooldowns.touch(cooldownKey, gating.Cooldown) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) cooldownApplies(rt *pluginRuntime, gating plugin.Gating, matchContext config.MatchContext) bool {
	if gating.CooldownPermission == "" {
		return true
	}
	return rt.resolver.HasPermission(gating.CooldownPermission, matchContext)
}

// runGated wraps run in a scoped acquisition of the blueprint's lock keys.
// The lock is released however run exits; an interruption observed right
// after the grant aborts without running at all. Replies go out only once the
// critical section is over.
func (d *Dispatcher) runGated(ctx context.Context, gating plugin.Gating, run func(l *lock.Lock) ([]*gateway.Reply, error)) error {
	var replies []*gateway.Reply
	var err error
	if len(gating.Locks) == 0 {
		replies, err = run(nil)
	} else {
		l, acquireErr := d.locks.Acquire(ctx, gating.Locks...)
		if acquireErr != nil {
			return acquireErr
		}
		func() {
			defer l.Release()
			if l.Interrupted() {
				return
			}
			replies, err = run(l)
		}()
	}
	if err != nil {
		return err
	}
	for _, reply := range replies {
		if err := d.relay.Send(reply); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) matchContext(source gateway.Source) config.MatchContext {
	actor := source.Actor
	if known, ok := d.roster.Find(actor.ID); ok {
		if len(actor.Roles) == 0 {
			actor.Roles = known.Roles
		}
		if actor.Level == nil {
			actor.Level = known.Level
		}
	}
	return config.MatchContext{
		GuildID:    source.GuildID,
		ChannelID:  source.ChannelID,
		CategoryID: source.CategoryID,
		UserID:     actor.ID,
		Roles:      actor.Roles,
		Level:      actor.Level,
		Thread:     source.Thread,
	}
}
