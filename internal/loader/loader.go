// Package loader resolves (class, generic arguments, macros) to a parsed and
// instantiated shader AST, caching parses and instantiations.
package loader

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/parser"
	"github.com/stride3d/stride-sub014/internal/source"
)

// DefaultCacheSize bounds each of the two loader caches.
const DefaultCacheSize = 1024

// Request asks for one class instantiation.
type Request struct {
	Class  string
	Args   []string
	Macros mixin.Macros
	// AutoInstantiate fills missing generic arguments with defaults.
	AutoInstantiate bool
}

func (r Request) Key() mixin.Key { return mixin.KeyOf(r.Class, r.Args, r.Macros) }

// Result is a private copy of a cached load; callers may mutate Shader.
type Result struct {
	Shader       *ast.Shader
	Hash         [32]byte
	Instantiated bool
	Deps         []Dep
}

type parseKey struct {
	class  string
	macros string
}

type parsed struct {
	shader *ast.Shader
	hash   [32]byte
	diags  []diag.Diagnostic
}

type instance struct {
	shader *ast.Shader
	hash   [32]byte
	deps   []Dep
	diags  []diag.Diagnostic
}

type Loader struct {
	provider SourceProvider
	files    *source.FileSet

	parses    *lru.Cache[parseKey, *parsed]
	instances *lru.Cache[mixin.Key, *instance]

	parseLocks    keyLocks[parseKey]
	instanceLocks keyLocks[mixin.Key]
}

func New(provider SourceProvider, files *source.FileSet, size int) *Loader {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if files == nil {
		files = source.NewFileSet()
	}
	parses, err := lru.New[parseKey, *parsed](size)
	if err != nil {
		panic(err)
	}
	instances, err := lru.New[mixin.Key, *instance](size)
	if err != nil {
		panic(err)
	}
	return &Loader{
		provider:  provider,
		files:     files,
		parses:    parses,
		instances: instances,
	}
}

func (l *Loader) Files() *source.FileSet { return l.files }

// Known reports whether the provider can load class.
func (l *Loader) Known(class string) bool { return l.provider.Exists(class) }

// Load returns the instantiated shader, or a Result with a nil Shader after
// reporting why it could not be loaded.
func (l *Loader) Load(req Request, r diag.Reporter) *Result {
	if r == nil {
		r = diag.NopReporter{}
	}
	key := req.Key()
	unlock := l.instanceLocks.lock(key)
	inst, ok := l.instances.Get(key)
	if !ok {
		inst = l.instantiate(req)
		l.instances.Add(key, inst)
	}
	unlock()

	for _, d := range inst.diags {
		r.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
	}
	res := &Result{Hash: inst.hash, Deps: inst.deps}
	if inst.shader != nil {
		res.Shader = inst.shader.Clone()
		res.Instantiated = res.Shader.Instantiated()
	}
	return res
}

func (l *Loader) instantiate(req Request) *instance {
	raw := l.parse(req.Class, req.Macros)
	bag := diag.NewBag(0)
	for _, d := range raw.diags {
		bag.Add(d)
	}
	inst := &instance{hash: raw.hash}
	defer func() { inst.diags = bag.Items() }()
	if raw.shader == nil {
		return inst
	}
	sh := raw.shader.Clone()
	rep := diag.BagReporter{Bag: bag}

	args := req.Args
	if len(args) == 0 && len(sh.Generics) > 0 && req.AutoInstantiate {
		args = DefaultArgs(sh.Generics)
	}
	if len(sh.Generics) > 0 || len(args) > 0 {
		if !checkGenerics(sh, args, rep) {
			return inst
		}
		instantiate(sh, args)
	}
	inst.shader = sh
	inst.deps = scanDeps(sh, l.Known)
	return inst
}

func (l *Loader) parse(class string, macros mixin.Macros) *parsed {
	key := parseKey{class: class, macros: macros.Key()}
	unlock := l.parseLocks.lock(key)
	defer unlock()
	if p, ok := l.parses.Get(key); ok {
		return p
	}
	p := l.parseSource(class, macros)
	l.parses.Add(key, p)
	return p
}

func (l *Loader) parseSource(class string, macros mixin.Macros) *parsed {
	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag, Fragment: class}
	p := &parsed{}
	defer func() { p.diags = bag.Items() }()

	path, content, err := l.provider.Open(class)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			diag.Errorf(rep, diag.GraClassNotFound, source.Span{}, "shader class %q not found", class)
		} else {
			diag.Errorf(rep, diag.IOLoadFailed, source.Span{}, "%v", err)
		}
		return p
	}
	id := l.files.Add(path, content, source.FileVirtual)
	file := l.files.Get(id)
	p.hash = file.Hash

	sh := parser.Parse(file, macros, rep)
	if sh == nil {
		return p
	}
	if sh.ClassName != class {
		diag.Errorf(rep, diag.GraClassNameMismatch, sh.Span, "%s declares shader %q, expected %q", path, sh.ClassName, class)
		return p
	}
	p.shader = sh
	return p
}

// Digest hashes the current source of class, bypassing the caches.
func (l *Loader) Digest(class string) ([32]byte, error) {
	_, content, err := l.provider.Open(class)
	if err != nil {
		return [32]byte{}, fmt.Errorf("digest %s: %w", class, err)
	}
	return sha256.Sum256(normalize(content)), nil
}

// Invalidate drops every cached parse and instantiation of the given classes.
// It returns how many entries were removed.
func (l *Loader) Invalidate(classes map[string]struct{}) int {
	n := 0
	for _, k := range l.parses.Keys() {
		if _, ok := classes[k.class]; ok && l.parses.Remove(k) {
			n++
		}
	}
	for _, k := range l.instances.Keys() {
		if _, ok := classes[k.Class]; ok && l.instances.Remove(k) {
			n++
		}
	}
	return n
}

// normalize mirrors the FileSet normalization so digests match file hashes.
func normalize(content []byte) []byte {
	fs := source.NewFileSet()
	return fs.Get(fs.AddVirtual("", content)).Content
}

type keyLocks[K comparable] struct {
	mu sync.Mutex
	m  map[K]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex of key and returns its release. The entry is
// dropped once no caller holds or waits for it.
func (k *keyLocks[K]) lock(key K) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[K]*keyLock)
	}
	kl, ok := k.m[key]
	if !ok {
		kl = &keyLock{}
		k.m[key] = kl
	}
	kl.refs++
	k.mu.Unlock()
	kl.Lock()
	return func() {
		kl.Unlock()
		k.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

// Len reports how many keys currently have a lock entry.
func (k *keyLocks[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
