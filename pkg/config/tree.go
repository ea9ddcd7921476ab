package config

import "fmt"

// A Tree is one layer of nested plugin configuration: string keys mapping to
// primitives, arrays or nested Trees. A Tree is read-only once built; Merge
// never mutates its inputs, so subtrees may be shared between layers.
type Tree map[string]interface{}

// Get descends the tree along path and returns the value found there, or nil
// if any intermediate key is absent or not a subtree.
func (t Tree) Get(path ...string) interface{} {
	if len(path) == 0 {
		return t
	}
	current := t
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return nil
		}
		if i == len(path)-1 {
			return value
		}
		current, ok = value.(Tree)
		if !ok {
			return nil
		}
	}
	return nil
}

// Merge layers overlay over base and returns a new Tree. Keys present on both
// sides recurse when both values are Trees; otherwise the overlay value wins.
// Arrays and primitives are replaced wholesale, never combined.
func Merge(base, overlay Tree) Tree {
	merged := make(Tree, len(base)+len(overlay))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range overlay {
		baseValue, exists := merged[key]
		baseTree, baseIsTree := baseValue.(Tree)
		overlayTree, overlayIsTree := value.(Tree)
		if exists && baseIsTree && overlayIsTree {
			merged[key] = Merge(baseTree, overlayTree)
			continue
		}
		merged[key] = value
	}
	return merged
}

func (t *Tree) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[interface{}]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*t = normalizeTree(raw)
	return nil
}

// yaml.v2 decodes nested mappings as map[interface{}]interface{}
func normalizeTree(raw map[interface{}]interface{}) Tree {
	tree := make(Tree, len(raw))
	for key, value := range raw {
		tree[fmt.Sprintf("%v", key)] = normalizeValue(value)
	}
	return tree
}

func normalizeValue(value interface{}) interface{} {
	switch value := value.(type) {
	case map[interface{}]interface{}:
		return normalizeTree(value)
	case []interface{}:
		values := make([]interface{}, len(value))
		for i, v := range value {
			values[i] = normalizeValue(v)
		}
		return values
	default:
		return value
	}
}
