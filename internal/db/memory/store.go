// Package memory is an in-process db.Store. It evaluates the same
// SearchQuery contract as the Redis driver against JSON documents held in
// memory and backs local runs, the embedded SDK and end-to-end tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/venuedex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type document struct {
	raw    []byte
	parsed any
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]document
	kv      map[string][]byte
	indexes map[string]*db.IndexDefinition
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		docs:    make(map[string]document),
		kv:      make(map[string][]byte),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// --- JSON ---

// JSONSet stores a document. Only the root path is supported.
func (s *Store) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err, Temporary: true}
	}
	if path != db.JSONRootField {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("unsupported path %q", path)}
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = document{raw: append([]byte(nil), data...), parsed: parsed}
	return nil
}

// JSONSetMulti stores each item independently.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error {
	errs := make([]error, len(items))
	for i, item := range items {
		errs[i] = s.JSONSet(ctx, item.Key, item.Path, item.Data)
	}
	return errs
}

// JSONGet returns the stored document. Paths are ignored.
func (s *Store) JSONGet(ctx context.Context, key string, _ ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpJSONGet, Err: err, Temporary: true}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), d.raw...), nil
}

// Del removes a document or KV entry.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err, Temporary: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	delete(s.kv, key)
	return nil
}

// Exists reports whether a document or KV entry is stored under key.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, doc := s.docs[key]
	_, kv := s.kv[key]
	return doc || kv, nil
}

// --- KV ---

// Get returns a KV value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a KV value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = append([]byte(nil), value...)
	return nil
}

// --- Indexes ---

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	s.indexes[def.Name] = &cp
	return nil
}

// DropIndex removes an index definition. Documents are kept.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether the index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// IndexInfo reports the number of documents covered by the index and the
// bytes they occupy.
func (s *Store) IndexInfo(_ context.Context, name string) (*db.IndexInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.indexes[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	info := &db.IndexInfo{Name: name}
	for _, key := range s.keysLocked(def) {
		info.NumDocs++
		info.NumRecords += len(def.Fields)
		info.MemoryBytes += int64(len(s.docs[key].raw))
	}
	return info, nil
}

// keysLocked returns the sorted keys covered by def. Caller holds mu.
func (s *Store) keysLocked(def *db.IndexDefinition) []string {
	var keys []string
	for key := range s.docs {
		if covered(def, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func covered(def *db.IndexDefinition, key string) bool {
	if len(def.Prefixes) == 0 {
		return true
	}
	for _, p := range def.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
