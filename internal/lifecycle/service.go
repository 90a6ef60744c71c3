// internal/lifecycle/service.go
package lifecycle

import (
	"context"

	"mediatheque/internal/journal"
	"mediatheque/internal/recordstore"
)

// Service defines the record lifecycle operations behind the HTTP API.
type Service interface {
	List(ctx context.Context, kind Kind) ([]recordstore.Record, error)
	Get(ctx context.Context, kind Kind, rawID string) (recordstore.Record, error)
	Create(ctx context.Context, kind Kind, payload recordstore.Record) (recordstore.Record, error)
	Update(ctx context.Context, kind Kind, rawID string, payload recordstore.Record) error
	Delete(ctx context.Context, kind Kind, rawID string) error
	History(ctx context.Context, kind Kind, rawID string) ([]journal.Entry, error)
	DeleteExpiredToday(ctx context.Context) (int64, error)
}

// Journal records mutations for later inspection.
type Journal interface {
	Append(ctx context.Context, entries ...journal.Entry) error
	History(ctx context.Context, collection, recordID string) ([]journal.Entry, error)
}

type nopJournal struct{}

func (nopJournal) Append(context.Context, ...journal.Entry) error { return nil }

func (nopJournal) History(context.Context, string, string) ([]journal.Entry, error) {
	return []journal.Entry{}, nil
}
