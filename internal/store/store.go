// Package store provides the document-store abstraction the engine
// persists into: JSON documents addressed by key, with partial-merge
// updates, bounded prefix scans, atomic numeric increments, and a
// single-key change subscription.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when no document exists at the given key.
var ErrNotFound = eris.New("store: document not found")

// ErrExists is returned by Create when the key is already taken.
var ErrExists = eris.New("store: document already exists")

// Key prefixes. One document per entity, addressed as <prefix><id>.
const (
	LeadsetPrefix = "leadset:"
	RunPrefix     = "run:"
	ItemPrefix    = "item:"
	JobPrefix     = "job:"
	FeedKey       = "feed:snapshot"
)

// LeadsetKey returns the document key for a leadset id.
func LeadsetKey(id string) string { return LeadsetPrefix + id }

// RunKey returns the document key for a run id.
func RunKey(id string) string { return RunPrefix + id }

// ItemKey returns the document key for a provider item id.
func ItemKey(itemID string) string { return ItemPrefix + itemID }

// JobKey returns the document key for an enrichment job id.
func JobKey(id string) string { return JobPrefix + id }

// Document is one stored JSON document.
type Document struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence interface for the engine. All writes are
// keyed by natural identity so concurrent poll and webhook writers
// converge without coordination.
type Store interface {
	// Get returns the document at key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Document, error)
	// Create inserts a new document; ErrExists if the key is taken.
	Create(ctx context.Context, key string, doc any) error
	// Put replaces (or inserts) the document at key wholesale.
	Put(ctx context.Context, key string, doc any) error
	// Update shallow-merges patch into the JSON object at key.
	Update(ctx context.Context, key string, patch map[string]any) error
	// Delete removes the document at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Scan returns up to limit documents whose key has the prefix,
	// ordered by key.
	Scan(ctx context.Context, prefix string, limit int) ([]Document, error)
	// Increment atomically adds delta to a numeric field of the JSON
	// object at key and returns the new value. field is a dot-separated
	// path into nested objects, e.g. "counters.found".
	Increment(ctx context.Context, key, field string, delta int64) (int64, error)
	// Watch delivers the document at key after each change until ctx is
	// done. The returned cancel func releases the subscription.
	Watch(ctx context.Context, key string) (<-chan Document, func(), error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// GetAs fetches the document at key and unmarshals it into T.
func GetAs[T any](ctx context.Context, s Store, key string) (*T, error) {
	doc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(doc.Data, &out); err != nil {
		return nil, eris.Wrapf(err, "store: decode %s", key)
	}
	return &out, nil
}

// DecodeAll unmarshals each scanned document into T, skipping none:
// a decode failure aborts, since documents under one prefix share a
// single schema.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, eris.Wrapf(err, "store: decode %s", d.Key)
		}
		out = append(out, v)
	}
	return out, nil
}

func marshal(doc any) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal document")
	}
	return data, nil
}

// incrementPath adds delta to the numeric value at a dot-separated
// path inside the decoded JSON object, creating intermediate objects
// as needed, and returns the new value.
func incrementPath(obj map[string]any, path string, delta int64) (int64, error) {
	segs := strings.Split(path, ".")
	cur := obj
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			child := map[string]any{}
			cur[seg] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return 0, eris.Errorf("store: path %s crosses a non-object", path)
		}
		cur = child
	}
	leaf := segs[len(segs)-1]
	var n int64
	if v, ok := cur[leaf]; ok {
		f, ok := v.(float64)
		if !ok {
			return 0, eris.Errorf("store: field %s is not numeric", path)
		}
		n = int64(f)
	}
	n += delta
	cur[leaf] = n
	return n, nil
}

// mergePatch applies a shallow JSON-object merge of patch over data.
func mergePatch(data []byte, patch map[string]any) ([]byte, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, eris.Wrap(err, "store: decode for merge")
	}
	for k, v := range patch {
		if v == nil {
			delete(obj, k)
			continue
		}
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode merged document")
	}
	return merged, nil
}
