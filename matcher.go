package scrub

import "strings"

// Matcher resolves requested field names against a unit's key space.
// It is immutable and safe for concurrent use.
type Matcher struct {
	fields   map[string]struct{}
	prefixes map[string]struct{} // DepthPath only: every proper prefix of a requested path
	depth    Depth
}

// NewMatcher builds a matcher for the given field set.
// An unknown depth falls back to DepthTopLevel.
func NewMatcher(fields []string, depth Depth) *Matcher {
	if !IsValidDepth(depth) {
		depth = DepthTopLevel
	}
	m := &Matcher{
		fields: make(map[string]struct{}, len(fields)),
		depth:  depth,
	}
	for _, f := range fields {
		m.fields[f] = struct{}{}
	}
	if depth == DepthPath {
		m.prefixes = make(map[string]struct{})
		for f := range m.fields {
			parts := strings.Split(f, ".")
			for i := 1; i < len(parts); i++ {
				m.prefixes[strings.Join(parts[:i], ".")] = struct{}{}
			}
		}
	}
	return m
}

// Depth returns the matching strategy.
func (m *Matcher) Depth() Depth {
	return m.depth
}

// Match reports the requested field addressed by path.
// path holds object keys from the unit root; array positions are omitted.
func (m *Matcher) Match(path []string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	var name string
	switch m.depth {
	case DepthRecursive:
		name = path[len(path)-1]
	case DepthPath:
		name = strings.Join(path, ".")
	default:
		if len(path) != 1 {
			return "", false
		}
		name = path[0]
	}
	if _, ok := m.fields[name]; ok {
		return name, true
	}
	return "", false
}

// Descend reports whether values nested under path may hold matches.
func (m *Matcher) Descend(path []string) bool {
	switch m.depth {
	case DepthRecursive:
		return true
	case DepthPath:
		if len(path) == 0 {
			return true
		}
		_, ok := m.prefixes[strings.Join(path, ".")]
		return ok
	default:
		return len(path) == 0
	}
}
