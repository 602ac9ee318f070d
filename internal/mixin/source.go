package mixin

import (
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
)

// Source describes what to compile: a class, a composite or an array of sources.
type Source interface {
	isSource()
	String() string
}

// ClassSource references one shader class, optionally with generic arguments.
type ClassSource struct {
	Class       string
	GenericArgs []string
}

// Composition assigns a source to a compose field of a composite's root.
type Composition struct {
	Key    string
	Source Source
}

// CompositeSource mixes several classes, fills named compose fields and
// overrides macros for everything below it.
type CompositeSource struct {
	Name         string
	Mixins       []*ClassSource
	Compositions []Composition
	Macros       Macros
}

// ArraySource fills an array compose field, one element per source.
type ArraySource struct {
	Values []Source
}

func (*ClassSource) isSource()     {}
func (*CompositeSource) isSource() {}
func (*ArraySource) isSource()     {}

func Class(name string, args ...string) *ClassSource {
	return &ClassSource{Class: name, GenericArgs: args}
}

func Array(values ...Source) *ArraySource {
	return &ArraySource{Values: values}
}

// Composite builds a composite of the given mixins.
func Composite(mixins ...*ClassSource) *CompositeSource {
	return &CompositeSource{Mixins: mixins}
}

// ParseClass reads `Name` or `Name<a, b>`. Arguments split on top-level commas.
func ParseClass(text string) *ClassSource {
	text = strings.TrimSpace(text)
	open := strings.IndexByte(text, '<')
	if open < 0 || !strings.HasSuffix(text, ">") {
		return Class(text)
	}
	var args []string
	depth, start := 0, open+1
	inner := text[:len(text)-1]
	for i := start; i < len(inner); i++ {
		switch inner[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(inner[start:]); last != "" || len(args) > 0 {
		args = append(args, last)
	}
	return Class(strings.TrimSpace(text[:open]), args...)
}

// Compose returns a copy with one more composition.
func (c *CompositeSource) Compose(key string, src Source) *CompositeSource {
	out := *c
	out.Compositions = append(append([]Composition(nil), c.Compositions...), Composition{Key: key, Source: src})
	return &out
}

// WithMacros returns a copy whose macros are overridden by macros.
func (c *CompositeSource) WithMacros(macros ...Macro) *CompositeSource {
	out := *c
	out.Macros = c.Macros.Merge(macros)
	return &out
}

// Name is the instantiated class name.
func (c *ClassSource) Name() string { return ast.InstanceName(c.Class, c.GenericArgs) }

func (c *ClassSource) String() string { return c.Name() }

// RootName names the class a composite compiles to: its only mixin, or the
// mixins joined with '+' when several classes are mixed together.
func (c *CompositeSource) RootName() string {
	if c.Name != "" {
		return c.Name
	}
	names := make([]string, len(c.Mixins))
	for i, m := range c.Mixins {
		names[i] = m.Name()
	}
	return strings.Join(names, "+")
}

func (c *CompositeSource) String() string {
	var sb strings.Builder
	sb.WriteString("mixin(")
	for i, m := range c.Mixins {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(m.String())
	}
	sb.WriteByte(')')
	if len(c.Compositions) > 0 {
		sb.WriteString(" {")
		for i, comp := range c.Compositions {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(comp.Key)
			sb.WriteString(" = ")
			sb.WriteString(comp.Source.String())
		}
		sb.WriteByte('}')
	}
	if key := c.Macros.Key(); key != "" {
		sb.WriteString(" #")
		sb.WriteString(key)
	}
	return sb.String()
}

func (a *ArraySource) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
