package driver

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/project"
)

// Increment when the Payload layout changes; old buckets are then ignored.
const storeSchemaVersion uint16 = 1

const storeFile = "results.db"

var resultsBucket = []byte(fmt.Sprintf("results.v%d", storeSchemaVersion))

// ErrStoreClosed is returned by every Store method after Close.
var ErrStoreClosed = errors.New("result store is closed")

// Store persists successful compile results across processes. A stored
// result is reused only while every source it was built from is unchanged.
type Store struct {
	db   *bolt.DB
	path string
}

// Payload is one stored compile result. Spans are not kept: they index a
// file set that does not outlive the process.
type Payload struct {
	Schema      uint16
	Name        string
	Text        []byte
	Reflection  Reflection
	Diagnostics []StoredDiagnostic
	Sources     []SourceDigest
}

type StoredDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Fragment string
}

// SourceDigest is the hash of a class source when the result was built.
type SourceDigest struct {
	Class  string
	Digest project.Digest
}

// DefaultCacheDir is $XDG_CACHE_HOME/app, or ~/.cache/app.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenStore opens (creating if needed) the store under dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}
	path := filepath.Join(dir, storeFile)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("result store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("result store %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Put stores p under key, replacing any previous entry.
func (s *Store) Put(key string, p *Payload) error {
	if s == nil {
		return nil
	}
	if s.db == nil {
		return ErrStoreClosed
	}
	p.Schema = storeSchemaVersion
	data, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(key), data)
	})
}

// Get returns the entry of key. An entry written by another schema is a miss.
func (s *Store) Get(key string) (*Payload, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	if s.db == nil {
		return nil, false, ErrStoreClosed
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(resultsBucket).Get([]byte(key)); v != nil {
			data = bytes.Clone(v)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	var p Payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if p.Schema != storeSchemaVersion {
		return nil, false, nil
	}
	return &p, true, nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	if s == nil {
		return nil
	}
	if s.db == nil {
		return ErrStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Delete([]byte(key))
	})
}

// Invalidate deletes every entry built from one of classes and returns how
// many were deleted. Entries that fail to decode go too.
func (s *Store) Invalidate(classes map[string]struct{}) (int, error) {
	if s == nil {
		return 0, nil
	}
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(resultsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var p Payload
			if err := msgpack.Unmarshal(v, &p); err != nil {
				stale = append(stale, bytes.Clone(k))
				return nil
			}
			for _, src := range p.Sources {
				if _, hit := classes[src.Class]; hit {
					stale = append(stale, bytes.Clone(k))
					break
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(stale)
		return nil
	})
	return n, err
}

// Len counts the stored entries.
func (s *Store) Len() (int, error) {
	if s == nil {
		return 0, nil
	}
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(resultsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// DropAll empties the store, entries of older schemas included.
func (s *Store) DropAll() error {
	if s == nil {
		return nil
	}
	if s.db == nil {
		return ErrStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		var names [][]byte
		err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, bytes.Clone(name))
			return nil
		})
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		_, err = tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
}

func storeDiagnostics(bag *diag.Bag) []StoredDiagnostic {
	items := bag.Items()
	out := make([]StoredDiagnostic, 0, len(items))
	for _, d := range items {
		out = append(out, StoredDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Fragment: d.Fragment,
		})
	}
	return out
}

func restoreDiagnostics(items []StoredDiagnostic, max int) *diag.Bag {
	bag := diag.NewBag(max)
	for _, d := range items {
		bag.Add(diag.Diagnostic{
			Severity: diag.Severity(d.Severity),
			Code:     diag.Code(d.Code),
			Message:  d.Message,
			Fragment: d.Fragment,
		})
	}
	return bag
}
