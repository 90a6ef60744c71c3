package recordstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatheque/internal/recordid"
)

// runCollectionContract exercises the behavior every backend has to share.
func runCollectionContract(t *testing.T, newCollection func(t *testing.T) Collection) {
	ctx := context.Background()

	t.Run("insert then get renders display id", func(t *testing.T) {
		coll := newCollection(t)
		id, err := coll.Insert(ctx, Record{"title": "Dune", "annee": int64(1965)})
		require.NoError(t, err)

		rec, err := coll.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, recordid.String(id), rec[IDField])
		assert.Equal(t, "Dune", rec["title"])
	})

	t.Run("insert ignores client id", func(t *testing.T) {
		coll := newCollection(t)
		forged := recordid.New()
		id, err := coll.Insert(ctx, Record{IDField: forged.Hex(), "title": "Forged"})
		require.NoError(t, err)
		assert.NotEqual(t, forged, id)

		_, err = coll.Get(ctx, forged)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get unknown id", func(t *testing.T) {
		coll := newCollection(t)
		_, err := coll.Get(ctx, recordid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list applies projection", func(t *testing.T) {
		coll := newCollection(t)
		_, err := coll.Insert(ctx, Record{"nom": "Curie", "prenom": "Marie", "secret": "x"})
		require.NoError(t, err)

		recs, err := coll.List(ctx, []string{"nom", "prenom"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Curie", recs[0]["nom"])
		assert.Contains(t, recs[0], IDField)
		assert.NotContains(t, recs[0], "secret")
		_, isString := recs[0][IDField].(string)
		assert.True(t, isString)
	})

	t.Run("update merges fields", func(t *testing.T) {
		coll := newCollection(t)
		id, err := coll.Insert(ctx, Record{"nom": "Curie", "prenom": "Marie"})
		require.NoError(t, err)

		require.NoError(t, coll.UpdatePartial(ctx, id, Record{"adresse": "Paris"}))
		rec, err := coll.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Curie", rec["nom"])
		assert.Equal(t, "Paris", rec["adresse"])
	})

	t.Run("update unknown id", func(t *testing.T) {
		coll := newCollection(t)
		err := coll.UpdatePartial(ctx, recordid.New(), Record{"nom": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		coll := newCollection(t)
		id, err := coll.Insert(ctx, Record{"title": "Gone"})
		require.NoError(t, err)

		require.NoError(t, coll.Delete(ctx, id))
		assert.ErrorIs(t, coll.Delete(ctx, id), ErrNotFound)
	})

	t.Run("delete many matches by equality", func(t *testing.T) {
		coll := newCollection(t)
		for _, d := range []string{"2024-06-01", "2026-10-17", "2026-10-17"} {
			_, err := coll.Insert(ctx, Record{"date_retour": d})
			require.NoError(t, err)
		}
		_, err := coll.Insert(ctx, Record{"date_emprunt": "2026-10-17"})
		require.NoError(t, err)

		n, err := coll.DeleteMany(ctx, Filter{"date_retour": "2026-10-17"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		recs, err := coll.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})
}
