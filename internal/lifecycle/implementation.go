// internal/lifecycle/implementation.go
package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"mediatheque/internal/journal"
	"mediatheque/internal/platform/requestid"
	"mediatheque/internal/recordid"
	"mediatheque/internal/recordstore"
)

// service implements the Service interface.
type service struct {
	store   *recordstore.Store
	journal Journal
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*service)

// WithClock replaces time.Now, which decides both the registration date and
// the day swept by DeleteExpiredToday.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithJournal(j Journal) Option {
	return func(s *service) { s.journal = j }
}

func WithMetrics(m *Metrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

// NewService creates a lifecycle service over store.
func NewService(store *recordstore.Store, opts ...Option) Service {
	s := &service{
		store:   store,
		journal: nopJournal{},
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

func (s *service) resolve(kind Kind) (Policy, recordstore.Collection, error) {
	p, err := PolicyFor(kind)
	if err != nil {
		return Policy{}, nil, err
	}
	return p, s.store.Collection(p.Collection), nil
}

// List returns every record of kind restricted to the kind's projection.
func (s *service) List(ctx context.Context, kind Kind) ([]recordstore.Record, error) {
	p, coll, err := s.resolve(kind)
	if err != nil {
		return nil, err
	}
	recs, err := coll.List(ctx, p.Projection)
	if err != nil {
		return nil, storeErr("list "+p.Collection, err)
	}
	return recs, nil
}

func (s *service) Get(ctx context.Context, kind Kind, rawID string) (recordstore.Record, error) {
	p, coll, err := s.resolve(kind)
	if err != nil {
		return nil, err
	}
	id, err := recordid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	rec, err := coll.Get(ctx, id)
	if err != nil {
		return nil, storeErr("get "+p.Collection, err)
	}
	return rec, nil
}

// Create validates payload, adds derived fields and returns the persisted record.
func (s *service) Create(ctx context.Context, kind Kind, payload recordstore.Record) (recordstore.Record, error) {
	p, coll, err := s.resolve(kind)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequired(kind, payload); err != nil {
		return nil, err
	}

	rec := make(recordstore.Record, len(payload)+1)
	for k, v := range payload {
		if k != recordstore.IDField {
			rec[k] = v
		}
	}
	if p.prepare != nil {
		if err := p.prepare(rec, s.now()); err != nil {
			return nil, err
		}
	}

	id, err := coll.Insert(ctx, rec)
	if err != nil {
		return nil, storeErr("insert into "+p.Collection, err)
	}
	created, err := coll.Get(ctx, id)
	if err != nil {
		return nil, storeErr("read back "+p.Collection, err)
	}

	s.metrics.RecordsCreated.WithLabelValues(string(kind)).Inc()
	s.record(ctx, p, recordid.String(id), journal.ActionCreated, created)
	return created, nil
}

// Update applies the fields of payload allowed by the kind's policy.
func (s *service) Update(ctx context.Context, kind Kind, rawID string, payload recordstore.Record) error {
	p, coll, err := s.resolve(kind)
	if err != nil {
		return err
	}
	id, err := recordid.Parse(rawID)
	if err != nil {
		return err
	}
	fields, err := FilterUpdate(kind, payload)
	if err != nil {
		return err
	}

	if err := coll.UpdatePartial(ctx, id, fields); err != nil {
		return storeErr("update "+p.Collection, err)
	}

	s.metrics.RecordsUpdated.WithLabelValues(string(kind)).Inc()
	s.record(ctx, p, recordid.String(id), journal.ActionUpdated, fields)
	return nil
}

func (s *service) Delete(ctx context.Context, kind Kind, rawID string) error {
	p, coll, err := s.resolve(kind)
	if err != nil {
		return err
	}
	id, err := recordid.Parse(rawID)
	if err != nil {
		return err
	}
	if err := coll.Delete(ctx, id); err != nil {
		return storeErr("delete from "+p.Collection, err)
	}

	s.metrics.RecordsDeleted.WithLabelValues(string(kind)).Inc()
	s.record(ctx, p, recordid.String(id), journal.ActionDeleted, nil)
	return nil
}

// History returns the journal entries of one record.
func (s *service) History(ctx context.Context, kind Kind, rawID string) ([]journal.Entry, error) {
	p, _, err := s.resolve(kind)
	if err != nil {
		return nil, err
	}
	id, err := recordid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	entries, err := s.journal.History(ctx, p.Collection, recordid.String(id))
	if err != nil {
		return nil, &StoreError{Op: "read journal", Err: err}
	}
	return entries, nil
}

// record appends a journal entry. The document store is authoritative, so a
// journal failure is logged and otherwise ignored.
func (s *service) record(ctx context.Context, p Policy, recordID, action string, payload any) {
	entry := journal.Entry{
		Collection: p.Collection,
		RecordID:   recordID,
		Action:     action,
		RequestID:  requestid.FromContext(ctx),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.WarnContext(ctx, "journal payload not encodable", "kind", p.Kind, "record_id", recordID, "error", err)
		} else {
			entry.Payload = data
		}
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "journal append failed", "kind", p.Kind, "record_id", recordID, "action", action, "error", err)
	}
}
