// Package project reads the sdslmix.toml effect manifest and hashes shader sources.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/stride3d/stride-sub014/internal/mixin"
)

var (
	// ErrNoEffects indicates a manifest without any [[effect]] table.
	ErrNoEffects = errors.New("no [[effect]] declared")
	// ErrEffectNotFound is returned by Manifest.Effect for an unknown name.
	ErrEffectNotFound = errors.New("effect not found")
)

// Manifest is a decoded sdslmix.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Shaders ShadersConfig  `toml:"shaders"`
	Effects []EffectConfig `toml:"effect"`
}

type ShadersConfig struct {
	// Paths are searched in order for `<Class>.sdsl`, relative to the manifest.
	Paths  []string          `toml:"paths"`
	Macros map[string]string `toml:"macros"`
}

// EffectConfig names a root: a single class, or several mixins with
// compositions and macros.
type EffectConfig struct {
	Name    string            `toml:"name"`
	Class   string            `toml:"class"`
	Mixins  []string          `toml:"mixins"`
	Macros  map[string]string `toml:"macros"`
	Compose []ComposeConfig   `toml:"compose"`
}

// ComposeConfig fills one compose field with a class or, with Array, an array of classes.
type ComposeConfig struct {
	Key   string   `toml:"key"`
	Class string   `toml:"class"`
	Array []string `toml:"array"`
}

// LoadManifest finds sdslmix.toml from startDir upwards and decodes it.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := ReadManifest(path)
	return m, true, err
}

// ReadManifest decodes and validates the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if !meta.IsDefined("shaders", "paths") {
		cfg.Shaders.Paths = []string{"."}
	}
	seen := make(map[string]bool, len(cfg.Effects))
	for i := range cfg.Effects {
		e := &cfg.Effects[i]
		e.Name = strings.TrimSpace(e.Name)
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("%s: effect %d: %w", path, i+1, err)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("%s: duplicate effect %q", path, e.Name)
		}
		seen[e.Name] = true
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

func (e *EffectConfig) validate() error {
	if e.Name == "" {
		return errors.New("missing name")
	}
	hasClass := strings.TrimSpace(e.Class) != ""
	if hasClass == (len(e.Mixins) > 0) {
		return fmt.Errorf("%s: exactly one of class and mixins is required", e.Name)
	}
	for _, c := range e.Compose {
		if strings.TrimSpace(c.Key) == "" {
			return fmt.Errorf("%s: compose entry without key", e.Name)
		}
		if (strings.TrimSpace(c.Class) != "") == (len(c.Array) > 0) {
			return fmt.Errorf("%s: compose %q needs exactly one of class and array", e.Name, c.Key)
		}
	}
	return nil
}

// SearchPaths returns the shader directories as absolute paths.
func (m *Manifest) SearchPaths() []string {
	out := make([]string, 0, len(m.Config.Shaders.Paths))
	for _, p := range m.Config.Shaders.Paths {
		p = filepath.FromSlash(strings.TrimSpace(p))
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Root, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// Macros are the global macros, sorted by name.
func (m *Manifest) Macros() mixin.Macros { return macros(m.Config.Shaders.Macros) }

// Effects lists the declared effects; a batch needs at least one.
func (m *Manifest) Effects() ([]EffectConfig, error) {
	if len(m.Config.Effects) == 0 {
		return nil, fmt.Errorf("%s: %w", m.Path, ErrNoEffects)
	}
	return m.Config.Effects, nil
}

// Effect returns the effect called name.
func (m *Manifest) Effect(name string) (*EffectConfig, error) {
	for i := range m.Config.Effects {
		if m.Config.Effects[i].Name == name {
			return &m.Config.Effects[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrEffectNotFound)
}

// Source converts the effect to a mixin source. A lone class without
// compositions or macros stays a plain class source.
func (e *EffectConfig) Source() mixin.Source {
	if e.Class != "" && len(e.Compose) == 0 && len(e.Macros) == 0 {
		return mixin.ParseClass(e.Class)
	}
	comp := &mixin.CompositeSource{Macros: macros(e.Macros)}
	if e.Class != "" {
		comp.Mixins = []*mixin.ClassSource{mixin.ParseClass(e.Class)}
	}
	for _, name := range e.Mixins {
		comp.Mixins = append(comp.Mixins, mixin.ParseClass(name))
	}
	for _, c := range e.Compose {
		var src mixin.Source
		if len(c.Array) > 0 {
			arr := &mixin.ArraySource{}
			for _, name := range c.Array {
				arr.Values = append(arr.Values, mixin.ParseClass(name))
			}
			src = arr
		} else {
			src = mixin.ParseClass(c.Class)
		}
		comp.Compositions = append(comp.Compositions, mixin.Composition{Key: strings.TrimSpace(c.Key), Source: src})
	}
	return comp
}

func macros(defs map[string]string) mixin.Macros {
	if len(defs) == 0 {
		return nil
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(mixin.Macros, len(names))
	for i, name := range names {
		out[i] = mixin.Macro{Name: name, Definition: defs[name]}
	}
	return out
}
