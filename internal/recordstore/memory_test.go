package recordstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCollection(t *testing.T) {
	runCollectionContract(t, func(t *testing.T) Collection {
		return NewMemoryBackend().Collection(LoansCollection)
	})
}

func TestMemoryCollectionReturnsCopies(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryBackend().Collection(DocumentsCollection)
	id, err := coll.Insert(ctx, Record{"title": "Dune", "tags": []any{"sf"}})
	require.NoError(t, err)

	rec, err := coll.Get(ctx, id)
	require.NoError(t, err)
	rec["title"] = "mutated"
	rec["tags"].([]any)[0] = "mutated"

	again, err := coll.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Dune", again["title"])
	assert.Equal(t, []any{"sf"}, again["tags"])
}

func TestStoreBindsCollections(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend)

	assert.NotNil(t, store.Subscribers())
	assert.NotNil(t, store.Documents())
	assert.NotNil(t, store.Loans())
	assert.Same(t, store.Loans(), store.Collection(LoansCollection))
	assert.Nil(t, store.Collection("unknown"))
	assert.NoError(t, store.Close(context.Background()))
}
