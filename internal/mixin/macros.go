package mixin

import (
	"slices"
	"strings"
)

// Macro is one preprocessor definition supplied with a compile request.
type Macro struct {
	Name       string
	Definition string
}

// Macros is an ordered macro set; a later definition of the same name wins.
type Macros []Macro

// Merge returns m overridden by over: a name defined in both keeps m's position
// and takes over's definition, new names are appended in over's order.
func (m Macros) Merge(over Macros) Macros {
	out := make(Macros, 0, len(m)+len(over))
	index := make(map[string]int, len(m)+len(over))
	put := func(mc Macro) {
		if i, ok := index[mc.Name]; ok {
			out[i].Definition = mc.Definition
			return
		}
		index[mc.Name] = len(out)
		out = append(out, mc)
	}
	for _, mc := range m {
		put(mc)
	}
	for _, mc := range over {
		put(mc)
	}
	return out
}

// Lookup returns the effective definition of name.
func (m Macros) Lookup(name string) (string, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Name == name {
			return m[i].Definition, true
		}
	}
	return "", false
}

// Canonical removes shadowed definitions and sorts by name.
func (m Macros) Canonical() Macros {
	out := m.Merge(nil)
	slices.SortFunc(out, func(a, b Macro) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Key is an order-insensitive identity of the effective definitions.
func (m Macros) Key() string {
	if len(m) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, mc := range m.Canonical() {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(mc.Name)
		sb.WriteByte('=')
		sb.WriteString(mc.Definition)
	}
	return sb.String()
}

func (m Macros) Equal(o Macros) bool { return m.Key() == o.Key() }

// ParseMacro splits `NAME=VALUE` (or a bare `NAME`, defined as "1").
func ParseMacro(s string) Macro {
	name, def, ok := strings.Cut(s, "=")
	if !ok {
		def = "1"
	}
	return Macro{Name: strings.TrimSpace(name), Definition: strings.TrimSpace(def)}
}
