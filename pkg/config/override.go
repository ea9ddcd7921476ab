package config

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchContext describes where a permission or config lookup happens: the
// guild, channel and category it targets, the acting user with their roles or
// numeric permission level, and whether the channel is a thread. Absent fields
// mean the lookup happens outside any restrictable scope; every criteria field
// depending on an absent context field fails to match.
type MatchContext struct {
	GuildID    string
	ChannelID  string
	CategoryID string
	UserID     string
	Roles      []string
	Level      *int
	Thread     *bool
}

// Level returns a MatchContext restricted to a numeric permission level.
func Level(level int) MatchContext {
	return MatchContext{Level: &level}
}

// A StringList decodes from either a single yaml scalar or a sequence.
type StringList []string

func (l *StringList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Criteria is the condition part of an override rule. Each defined field is a
// predicate over a MatchContext; defined fields combine with AND, and a
// Criteria with no defined field matches everything.
type Criteria struct {
	// Level is a comparator over the context's numeric permission level,
	// e.g. ">=20" or "level >= 20". The comparator defaults to "=".
	Level string `yaml:"level,omitempty"`
	// Channels, Categories and Users match when the corresponding context
	// id is in the set. Roles matches when at least one context role is.
	Channels   StringList `yaml:"channels,omitempty"`
	Categories StringList `yaml:"categories,omitempty"`
	Roles      StringList `yaml:"roles,omitempty"`
	Users      StringList `yaml:"users,omitempty"`
	// Thread restricts the rule to thread (true) or non-thread (false)
	// channels.
	Thread *bool `yaml:"thread,omitempty"`
}

// Match reports whether every defined criteria field holds for ctx. A
// malformed level comparator never matches; Validate surfaces it at load
// time.
func (c Criteria) Match(ctx MatchContext) bool {
	if c.Level != "" {
		if ctx.Level == nil {
			return false
		}
		op, threshold, err := parseLevel(c.Level)
		if err != nil {
			return false
		}
		if !compareLevel(op, *ctx.Level, threshold) {
			return false
		}
	}
	if len(c.Channels) > 0 && (ctx.ChannelID == "" || !contains(c.Channels, ctx.ChannelID)) {
		return false
	}
	if len(c.Categories) > 0 && (ctx.CategoryID == "" || !contains(c.Categories, ctx.CategoryID)) {
		return false
	}
	if len(c.Users) > 0 && (ctx.UserID == "" || !contains(c.Users, ctx.UserID)) {
		return false
	}
	if len(c.Roles) > 0 && !containsAny(c.Roles, ctx.Roles) {
		return false
	}
	if c.Thread != nil && (ctx.Thread == nil || *ctx.Thread != *c.Thread) {
		return false
	}
	return true
}

// Validate reports configuration mistakes that would make the criteria
// silently never match.
func (c Criteria) Validate() error {
	if c.Level == "" {
		return nil
	}
	_, _, err := parseLevel(c.Level)
	return err
}

// A Rule applies a partial config Tree whenever its criteria match.
type Rule struct {
	Criteria `yaml:",inline"`
	Config   Tree `yaml:"config"`
}

var levelOps = map[string]func(level, threshold int) bool{
	"=":  func(level, threshold int) bool { return level == threshold },
	">":  func(level, threshold int) bool { return level > threshold },
	"<":  func(level, threshold int) bool { return level < threshold },
	">=": func(level, threshold int) bool { return level >= threshold },
	"<=": func(level, threshold int) bool { return level <= threshold },
}

func parseLevel(condition string) (op string, threshold int, err error) {
	s := strings.TrimSpace(condition)
	s = strings.TrimSpace(strings.TrimPrefix(s, "level"))
	op = "="
	for _, candidate := range []string{">=", "<=", "=", ">", "<"} {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			s = s[len(candidate):]
			break
		}
	}
	threshold, err = strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return "", 0, fmt.Errorf("malformed level condition %q", condition)
	}
	return op, threshold, nil
}

func compareLevel(op string, level, threshold int) bool {
	compare, ok := levelOps[op]
	if !ok {
		return false
	}
	return compare(level, threshold)
}

func contains(set []string, value string) bool {
	for _, member := range set {
		if member == value {
			return true
		}
	}
	return false
}

func containsAny(set, values []string) bool {
	for _, value := range values {
		if contains(set, value) {
			return true
		}
	}
	return false
}
