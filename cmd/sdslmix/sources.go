package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/project"
)

// parseCompositions reads --compose values: `key=Class`, `key=Class<args>`
// or `key=[A, B]` for an array field. Repeating a key appends to its array.
func parseCompositions(values []string) ([]mixin.Composition, error) {
	var out []mixin.Composition
	index := make(map[string]int)
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid --compose value %q (expected key=Class)", v)
		}
		var src mixin.Source
		if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
			arr := &mixin.ArraySource{}
			for _, item := range splitTopLevel(value[1 : len(value)-1]) {
				arr.Values = append(arr.Values, mixin.ParseClass(item))
			}
			src = arr
		} else {
			src = mixin.ParseClass(value)
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, mixin.Composition{Key: key, Source: src})
			continue
		}
		arr, isArray := out[i].Source.(*mixin.ArraySource)
		if !isArray {
			arr = mixin.Array(out[i].Source)
		}
		if more, ok := src.(*mixin.ArraySource); ok {
			arr.Values = append(arr.Values, more.Values...)
		} else {
			arr.Values = append(arr.Values, src)
		}
		out[i].Source = arr
	}
	return out, nil
}

// splitTopLevel splits on commas outside generic argument lists.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}

// resolveRoot picks what `mix` compiles: an effect of the manifest when one
// has that name, the class otherwise. Compositions given on the command line
// are added to either.
func resolveRoot(m *project.Manifest, name string, comps []mixin.Composition) (string, mixin.Source, error) {
	var src mixin.Source
	if m != nil {
		effect, err := m.Effect(name)
		switch {
		case err == nil:
			src = effect.Source()
		case !errors.Is(err, project.ErrEffectNotFound):
			return "", nil, err
		}
	}
	if src == nil {
		src = mixin.ParseClass(name)
	}
	if len(comps) == 0 {
		return name, src, nil
	}

	var comp *mixin.CompositeSource
	switch s := src.(type) {
	case *mixin.ClassSource:
		comp = mixin.Composite(s)
	case *mixin.CompositeSource:
		comp = s
	default:
		return "", nil, fmt.Errorf("%s: cannot add compositions to %s", name, src)
	}
	for _, c := range comps {
		comp = comp.Compose(c.Key, c.Source)
	}
	return name, comp, nil
}
