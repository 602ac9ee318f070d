package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound is returned by a SourceProvider that does not know a class.
var ErrNotFound = errors.New("shader class not found")

// Ext is the file extension of shader sources.
const Ext = ".sdsl"

// SourceProvider resolves a class name to its source text.
type SourceProvider interface {
	Open(class string) (path string, content []byte, err error)
	Exists(class string) bool
}

// DirProvider looks classes up as `<Class>.sdsl` in a list of directories,
// first match wins. Subdirectories are indexed once on first use.
type DirProvider struct {
	Dirs []string

	once  sync.Once
	index map[string]string
}

func NewDirProvider(dirs ...string) *DirProvider {
	return &DirProvider{Dirs: dirs}
}

func (p *DirProvider) build() {
	p.index = make(map[string]string)
	for _, dir := range p.Dirs {
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != Ext {
				return nil
			}
			class := filepath.Base(path)
			class = class[:len(class)-len(Ext)]
			if _, seen := p.index[class]; !seen {
				p.index[class] = path
			}
			return nil
		})
	}
}

func (p *DirProvider) Exists(class string) bool {
	p.once.Do(p.build)
	_, ok := p.index[class]
	return ok
}

func (p *DirProvider) Open(class string) (string, []byte, error) {
	p.once.Do(p.build)
	path, ok := p.index[class]
	if !ok {
		return "", nil, fmt.Errorf("%s: %w", class, ErrNotFound)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return path, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return path, content, nil
}

// Classes lists every indexed class, sorted.
func (p *DirProvider) Classes() []string {
	p.once.Do(p.build)
	out := make([]string, 0, len(p.index))
	for c := range p.index {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// MapProvider serves sources from memory; used by tests and embedders.
type MapProvider struct {
	mu      sync.RWMutex
	sources map[string]string
}

func NewMapProvider(sources map[string]string) *MapProvider {
	m := &MapProvider{sources: make(map[string]string, len(sources))}
	for k, v := range sources {
		m.sources[k] = v
	}
	return m
}

// Set adds or replaces the source of class.
func (m *MapProvider) Set(class, text string) {
	m.mu.Lock()
	m.sources[class] = text
	m.mu.Unlock()
}

func (m *MapProvider) Exists(class string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sources[class]
	return ok
}

func (m *MapProvider) Open(class string) (string, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.sources[class]
	if !ok {
		return "", nil, fmt.Errorf("%s: %w", class, ErrNotFound)
	}
	return class + Ext, []byte(text), nil
}
