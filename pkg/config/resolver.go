package config

import (
	"log"
	"strings"
)

// A Resolver computes the effective configuration for a match context by
// layering matching override rules, in declared order, over a default Tree.
// Both the defaults and the rule list are read-only after construction.
type Resolver struct {
	defaults Tree
	rules    []Rule
}

// NewResolver builds a Resolver over defaults and an ordered rule list.
// Malformed rules are reported once here; they never match at resolve time.
func NewResolver(defaults Tree, rules []Rule) *Resolver {
	if defaults == nil {
		defaults = Tree{}
	}
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			log.Printf("override %d will never match: %v", i, err)
		}
	}
	return &Resolver{
		defaults: defaults,
		rules:    rules,
	}
}

// Resolve folds every rule matching ctx, in declared order, over the default
// tree. Later matching rules win on overlapping keys; non-overlapping keys
// from every matching rule survive.
func (r *Resolver) Resolve(ctx MatchContext) Tree {
	effective := r.defaults
	for _, rule := range r.rules {
		if rule.Match(ctx) {
			effective = Merge(effective, rule.Config)
		}
	}
	return effective
}

// HasPermission resolves ctx and looks up the dot-delimited path in the
// effective tree. Anything but an explicit true, including an absent value,
// is false.
func (r *Resolver) HasPermission(path string, ctx MatchContext) bool {
	granted, ok := r.Resolve(ctx).Get(strings.Split(path, ".")...).(bool)
	return ok && granted
}
