// internal/recordstore/store.go
package recordstore

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Collection,Backend

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the key under which every record carries its identifier.
const IDField = "_id"

// Collection names used by the original deployment; existing databases keep working.
const (
	SubscribersCollection = "abonnés"
	DocumentsCollection   = "documents"
	LoansCollection       = "emprunts"
)

var ErrNotFound = errors.New("record not found")

// Record is a schemaless document. Records returned by a Collection always carry
// IDField as the display string of their identifier.
type Record map[string]any

// Filter selects records whose fields equal the given values.
type Filter map[string]any

// Collection is the document-store capability for a single collection.
type Collection interface {
	List(ctx context.Context, projection []string) ([]Record, error)
	Get(ctx context.Context, id primitive.ObjectID) (Record, error)
	Insert(ctx context.Context, fields Record) (primitive.ObjectID, error)
	UpdatePartial(ctx context.Context, id primitive.ObjectID, fields Record) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

// Backend hands out collections of one database.
type Backend interface {
	Collection(name string) Collection
	Close(ctx context.Context) error
}

// Store groups the three collections of the service.
type Store struct {
	backend     Backend
	collections map[string]Collection
}

// NewStore binds the service collections on the given backend.
func NewStore(backend Backend) *Store {
	s := &Store{
		backend:     backend,
		collections: make(map[string]Collection, 3),
	}
	for _, name := range []string{SubscribersCollection, DocumentsCollection, LoansCollection} {
		s.collections[name] = backend.Collection(name)
	}
	return s
}

func (s *Store) Subscribers() Collection { return s.collections[SubscribersCollection] }
func (s *Store) Documents() Collection   { return s.collections[DocumentsCollection] }
func (s *Store) Loans() Collection       { return s.collections[LoansCollection] }

// Collection returns the named collection, or nil if the store does not serve it.
func (s *Store) Collection(name string) Collection {
	return s.collections[name]
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

// withoutID returns a shallow copy of fields with any client supplied identifier removed.
func withoutID(fields Record) Record {
	out := make(Record, len(fields))
	for k, v := range fields {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
