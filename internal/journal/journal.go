// internal/journal/journal.go
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrSchemaMissing = errors.New("journal table does not exist")

// Actions recorded for a record.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionExpired = "expired"
)

const undefinedTable = "42P01"

// Entry is one mutation of one record.
type Entry struct {
	ID         int64           `json:"id"`
	Collection string          `json:"collection"`
	RecordID   string          `json:"record_id"`
	Action     string          `json:"action"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Journal is an append-only log of record mutations kept in PostgreSQL.
type Journal struct {
	db     *sql.DB
	tracer trace.Tracer
	now    func() time.Time
}

func New(db *sql.DB) *Journal {
	return &Journal{
		db:     db,
		tracer: otel.Tracer("mediatheque/journal"),
		now:    time.Now,
	}
}

const schema = `
	CREATE TABLE IF NOT EXISTS record_journal (
		id BIGSERIAL PRIMARY KEY,
		collection TEXT NOT NULL,
		record_id TEXT NOT NULL,
		action TEXT NOT NULL,
		payload JSONB,
		request_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS record_journal_record_idx ON record_journal (collection, record_id, id);
`

// EnsureSchema creates the journal table when it does not exist yet.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Append writes entries atomically.
func (j *Journal) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("collection", entries[0].Collection),
			attribute.Int("entry.count", len(entries)),
		),
	)
	defer span.End()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO record_journal (collection, record_id, action, payload, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`)
	if err != nil {
		return translate(fmt.Errorf("prepare statement: %w", err))
	}
	defer stmt.Close()

	for i, entry := range entries {
		var payload any
		if len(entry.Payload) > 0 {
			payload = []byte(entry.Payload)
		}
		var id int64
		err := stmt.QueryRowContext(ctx,
			entry.Collection,
			entry.RecordID,
			entry.Action,
			payload,
			entry.RequestID,
			j.now().UTC(),
		).Scan(&id)
		if err != nil {
			return translate(fmt.Errorf("insert entry %d: %w", i, err))
		}
		span.AddEvent("entry.appended", trace.WithAttributes(
			attribute.Int64("entry.id", id),
			attribute.String("record.id", entry.RecordID),
			attribute.String("action", entry.Action),
		))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// History returns the entries of one record, oldest first.
func (j *Journal) History(ctx context.Context, collection, recordID string) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.history",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("record.id", recordID),
		),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, collection, record_id, action, payload, request_id, created_at
		FROM record_journal
		WHERE collection = $1 AND record_id = $2
		ORDER BY id ASC
	`, collection, recordID)
	if err != nil {
		return nil, translate(fmt.Errorf("query history: %w", err))
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("entries.loaded", len(entries)))
	return entries, nil
}

// Stream returns up to batchSize entries with an id greater than fromID, for
// consumers that tail the journal.
func (j *Journal) Stream(ctx context.Context, fromID int64, batchSize int) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, collection, record_id, action, payload, request_id, created_at
		FROM record_journal
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, fromID, batchSize)
	if err != nil {
		return nil, translate(fmt.Errorf("query journal stream: %w", err))
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("entries.streamed", len(entries)))
	return entries, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.Collection, &e.RecordID, &e.Action, &payload, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(payload) > 0 {
			e.Payload = json.RawMessage(payload)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	}
	return err
}
