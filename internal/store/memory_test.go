package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, "leadset:a", map[string]any{"name": "alpha"}))
	assert.True(t, eris.Is(s.Create(ctx, "leadset:a", map[string]any{"name": "dup"}), ErrExists))

	doc, err := s.Get(ctx, "leadset:a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.JSONEq(t, `{"name":"alpha"}`, string(doc.Data))

	require.NoError(t, s.Put(ctx, "leadset:a", map[string]any{"name": "beta"}))
	doc, err = s.Get(ctx, "leadset:a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)
	assert.JSONEq(t, `{"name":"beta"}`, string(doc.Data))
}

func TestMemory_GetMissing(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), "run:missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestMemory_UpdateMergesShallow(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Put(ctx, "item:x", map[string]any{"a": 1, "b": "keep"}))
	require.NoError(t, s.Update(ctx, "item:x", map[string]any{"a": 2, "c": true}))

	doc, err := s.Get(ctx, "item:x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2,"b":"keep","c":true}`, string(doc.Data))

	assert.True(t, eris.Is(s.Update(ctx, "item:none", map[string]any{"a": 1}), ErrNotFound))
}

func TestMemory_ScanPrefixOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Put(ctx, "item:b", map[string]any{"n": 2}))
	require.NoError(t, s.Put(ctx, "item:a", map[string]any{"n": 1}))
	require.NoError(t, s.Put(ctx, "run:z", map[string]any{"n": 3}))

	docs, err := s.Scan(ctx, "item:", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "item:a", docs[0].Key)
	assert.Equal(t, "item:b", docs[1].Key)

	docs, err = s.Scan(ctx, "item:", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestMemory_IncrementNestedPath(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Put(ctx, "run:r1", map[string]any{
		"counters": map[string]any{"found": 3},
	}))

	n, err := s.Increment(ctx, "run:r1", "counters.found", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Missing intermediate objects are created.
	n, err = s.Increment(ctx, "run:r1", "counters.enriched", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	doc, err := s.Get(ctx, "run:r1")
	require.NoError(t, err)
	var obj map[string]map[string]int64
	require.NoError(t, json.Unmarshal(doc.Data, &obj))
	assert.Equal(t, int64(5), obj["counters"]["found"])
	assert.Equal(t, int64(1), obj["counters"]["enriched"])

	_, err = s.Increment(ctx, "run:missing", "counters.found", 1)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Put(ctx, "job:j", map[string]any{"x": 1}))
	require.NoError(t, s.Delete(ctx, "job:j"))
	require.NoError(t, s.Delete(ctx, "job:j"))

	_, err := s.Get(ctx, "job:j")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestMemory_WatchDeliversChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemory()

	ch, stop, err := s.Watch(ctx, FeedKey)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, s.Put(ctx, FeedKey, map[string]any{"version": 1}))

	select {
	case doc := <-ch:
		assert.Equal(t, FeedKey, doc.Key)
	case <-time.After(time.Second):
		t.Fatal("no watch delivery")
	}
}

func TestGetAs(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, s.Put(ctx, "leadset:a", payload{Name: "alpha"}))

	got, err := GetAs[payload](ctx, s, "leadset:a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)

	_, err = GetAs[payload](ctx, s, "leadset:b")
	assert.True(t, eris.Is(err, ErrNotFound))
}
