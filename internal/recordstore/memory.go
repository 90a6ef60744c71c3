// internal/recordstore/memory.go
package recordstore

import (
	"bytes"
	"context"
	"reflect"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediatheque/internal/recordid"
)

// MemoryBackend keeps collections in process memory. It is used by tests and by
// STORE_BACKEND=memory for local runs.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

func (b *MemoryBackend) Collection(name string) Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[primitive.ObjectID]Record)}
		b.collections[name] = c
	}
	return c
}

func (b *MemoryBackend) Close(context.Context) error { return nil }

type memoryCollection struct {
	mu   sync.RWMutex
	docs map[primitive.ObjectID]Record
}

func (c *memoryCollection) List(_ context.Context, projection []string) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]primitive.ObjectID, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b primitive.ObjectID) int {
		return bytes.Compare(a[:], b[:])
	})

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, render(id, project(c.docs[id], projection)))
	}
	return out, nil
}

func (c *memoryCollection) Get(_ context.Context, id primitive.ObjectID) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return render(id, doc), nil
}

func (c *memoryCollection) Insert(_ context.Context, fields Record) (primitive.ObjectID, error) {
	id := recordid.New()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = cloneRecord(withoutID(fields))
	return id, nil
}

func (c *memoryCollection) UpdatePartial(_ context.Context, id primitive.ObjectID, fields Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range withoutID(fields) {
		doc[k] = cloneValue(v)
	}
	return nil
}

func (c *memoryCollection) Delete(_ context.Context, id primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	return nil
}

func (c *memoryCollection) DeleteMany(_ context.Context, filter Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for id, doc := range c.docs {
		if matches(doc, filter) {
			delete(c.docs, id)
			n++
		}
	}
	return n, nil
}

func matches(doc Record, filter Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func project(doc Record, fields []string) Record {
	if len(fields) == 0 {
		return doc
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

// render copies doc and attaches the display identifier.
func render(id primitive.ObjectID, doc Record) Record {
	out := cloneRecord(doc)
	out[IDField] = recordid.String(id)
	return out
}

func cloneRecord(doc Record) Record {
	out := make(Record, len(doc)+1)
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Record:
		return map[string]any(cloneRecord(t))
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}
