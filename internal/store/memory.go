package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// MemoryStore implements Store in process memory. It backs tests and
// the dev driver; semantics match the SQL drivers.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]Document
	watchers map[string][]chan Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]Document),
		watchers: make(map[string][]chan Document),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := doc
	cp.Data = append([]byte(nil), doc.Data...)
	return &cp, nil
}

func (s *MemoryStore) Create(_ context.Context, key string, doc any) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; ok {
		return ErrExists
	}
	s.write(key, data, 1)
	return nil
}

func (s *MemoryStore) Put(_ context.Context, key string, doc any) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(key, data, s.docs[key].Version+1)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, key string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[key]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergePatch(cur.Data, patch)
	if err != nil {
		return err
	}
	s.write(key, merged, cur.Version+1)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

func (s *MemoryStore) Scan(_ context.Context, prefix string, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]Document, 0, len(keys))
	for _, k := range keys {
		doc := s.docs[k]
		doc.Data = append([]byte(nil), doc.Data...)
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryStore) Increment(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[key]
	if !ok {
		return 0, ErrNotFound
	}
	var obj map[string]any
	if err := json.Unmarshal(cur.Data, &obj); err != nil {
		return 0, eris.Wrapf(err, "store: decode %s for increment", key)
	}
	n, err := incrementPath(obj, field, delta)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return 0, eris.Wrap(err, "store: encode incremented document")
	}
	s.write(key, data, cur.Version+1)
	return n, nil
}

func (s *MemoryStore) Watch(ctx context.Context, key string) (<-chan Document, func(), error) {
	ch := make(chan Document, 16)
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.watchers[key]
		for i, c := range subs {
			if c == ch {
				s.watchers[key] = append(subs[:i], subs[i+1:]...)
				close(c)
				return
			}
		}
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// write stores the document and notifies watchers. Callers hold mu.
func (s *MemoryStore) write(key string, data []byte, version int64) {
	doc := Document{
		Key:       key,
		Data:      data,
		Version:   version,
		UpdatedAt: time.Now().UTC(),
	}
	s.docs[key] = doc
	for _, ch := range s.watchers[key] {
		select {
		case ch <- doc:
		default: // slow subscriber drops intermediate versions
		}
	}
}
