// Package config implements nested key-path configuration for network
// builders. Values live in a tree of maps and are addressed with
// '/'-separated paths such as "body/block/layout". Named architectures
// are expressed as an ordered list of patches applied on top of a base
// configuration.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// Config is a nested configuration tree. Intermediate nodes are
// map[string]any; leaves hold arbitrary values.
type Config struct {
	root map[string]any
}

// New returns an empty configuration.
func New() *Config {
	return &Config{root: map[string]any{}}
}

// FromMap wraps an existing nested map. The map is deep-copied, so later
// mutation of the argument does not affect the configuration.
func FromMap(m map[string]any) *Config {
	return &Config{root: deepCopyMap(m)}
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Set stores a value at the given key path, creating intermediate maps
// as needed. It fails when an intermediate key already holds a leaf.
func (c *Config) Set(path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("config: empty key path")
	}
	node := c.root
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p]
		if !ok {
			next := map[string]any{}
			node[p] = next
			node = next
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("config: %q is not a section in path %q", p, path)
		}
		node = m
	}
	node[parts[len(parts)-1]] = deepCopyValue(value)
	return nil
}

// MustSet is Set for values known to be well-formed. It panics on error.
func (c *Config) MustSet(path string, value any) {
	if err := c.Set(path, value); err != nil {
		panic(err)
	}
}

// Get returns the value at the key path, or false when any segment is
// missing. Returned sections are live references; use Clone before
// mutating.
func (c *Config) Get(path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	var cur any = c.root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether the key path resolves to a value.
func (c *Config) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Delete removes the value at the key path. Missing paths are no-ops.
func (c *Config) Delete(path string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	node := c.root
	for _, p := range parts[:len(parts)-1] {
		m, ok := node[p].(map[string]any)
		if !ok {
			return
		}
		node = m
	}
	delete(node, parts[len(parts)-1])
}

// Int returns the integer at the key path. YAML and literal numeric
// forms (int, int64, float64 with integral value) are accepted.
func (c *Config) Int(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, fmt.Errorf("config: missing key %q", path)
	}
	return toInt(path, v)
}

// IntOr returns the integer at the key path, or def when missing.
func (c *Config) IntOr(path string, def int) int {
	if !c.Has(path) {
		return def
	}
	n, err := c.Int(path)
	if err != nil {
		return def
	}
	return n
}

// Ints returns the integer list at the key path. A scalar value is
// returned as a one-element list.
func (c *Config) Ints(path string) ([]int, error) {
	v, ok := c.Get(path)
	if !ok {
		return nil, fmt.Errorf("config: missing key %q", path)
	}
	switch vv := v.(type) {
	case []int:
		return append([]int(nil), vv...), nil
	case []any:
		out := make([]int, len(vv))
		for i, e := range vv {
			n, err := toInt(path, e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		n, err := toInt(path, v)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
}

// Bool returns the boolean at the key path.
func (c *Config) Bool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, fmt.Errorf("config: missing key %q", path)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("config: key %q holds %T, not bool", path, v)
	}
	return b, nil
}

// BoolOr returns the boolean at the key path, or def when missing.
func (c *Config) BoolOr(path string, def bool) bool {
	b, err := c.Bool(path)
	if err != nil {
		return def
	}
	return b
}

// Bools returns the boolean list at the key path. A scalar value is
// returned as a one-element list.
func (c *Config) Bools(path string) ([]bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return nil, fmt.Errorf("config: missing key %q", path)
	}
	switch vv := v.(type) {
	case []bool:
		return append([]bool(nil), vv...), nil
	case []any:
		out := make([]bool, len(vv))
		for i, e := range vv {
			b, ok := e.(bool)
			if !ok {
				return nil, fmt.Errorf("config: key %q holds %T, not bool", path, e)
			}
			out[i] = b
		}
		return out, nil
	case bool:
		return []bool{vv}, nil
	default:
		return nil, fmt.Errorf("config: key %q holds %T, not bool", path, v)
	}
}

// Float returns the float at the key path. Integer values widen.
func (c *Config) Float(path string) (float64, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, fmt.Errorf("config: missing key %q", path)
	}
	switch vv := v.(type) {
	case float64:
		return vv, nil
	case float32:
		return float64(vv), nil
	case int:
		return float64(vv), nil
	case int64:
		return float64(vv), nil
	default:
		return 0, fmt.Errorf("config: key %q holds %T, not float", path, v)
	}
}

// FloatOr returns the float at the key path, or def when missing.
func (c *Config) FloatOr(path string, def float64) float64 {
	f, err := c.Float(path)
	if err != nil {
		return def
	}
	return f
}

// String returns the string at the key path.
func (c *Config) String(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", fmt.Errorf("config: missing key %q", path)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config: key %q holds %T, not string", path, v)
	}
	return s, nil
}

// StringOr returns the string at the key path, or def when missing.
func (c *Config) StringOr(path, def string) string {
	s, err := c.String(path)
	if err != nil {
		return def
	}
	return s
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	return &Config{root: deepCopyMap(c.root)}
}

// Update deep-merges other into c. Sections merge recursively; leaves
// from other win.
func (c *Config) Update(other *Config) {
	mergeMap(c.root, other.root)
}

// Map returns a deep copy of the underlying tree.
func (c *Config) Map() map[string]any {
	return deepCopyMap(c.root)
}

// Keys returns the sorted top-level keys of a section, or nil when the
// path is missing or a leaf. The empty path addresses the root.
func (c *Config) Keys(path string) []string {
	var v any = c.root
	if len(splitPath(path)) > 0 {
		var ok bool
		v, ok = c.Get(path)
		if !ok {
			return nil
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeMap(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				mergeMap(dv, sv)
				continue
			}
		}
		dst[k] = deepCopyValue(v)
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return deepCopyMap(vv)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = deepCopyValue(e)
		}
		return out
	case []int:
		return append([]int(nil), vv...)
	case []bool:
		return append([]bool(nil), vv...)
	case []string:
		return append([]string(nil), vv...)
	default:
		return v
	}
}

func toInt(path string, v any) (int, error) {
	switch vv := v.(type) {
	case int:
		return vv, nil
	case int64:
		return int(vv), nil
	case float64:
		if vv != float64(int(vv)) {
			return 0, fmt.Errorf("config: key %q holds non-integral %v", path, vv)
		}
		return int(vv), nil
	default:
		return 0, fmt.Errorf("config: key %q holds %T, not int", path, v)
	}
}
