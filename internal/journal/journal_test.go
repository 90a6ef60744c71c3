package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	j := New(db)
	j.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return j, mock
}

func TestEnsureSchema(t *testing.T) {
	j, mock := newTestJournal(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS record_journal").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, j.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendWritesAllEntriesInOneTransaction(t *testing.T) {
	j, mock := newTestJournal(t)
	now := j.now().UTC()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO record_journal")
	prep.ExpectQuery().
		WithArgs("emprunts", "507f1f77bcf86cd799439011", ActionCreated, []byte(`{"abonnee":"a"}`), "req-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	prep.ExpectQuery().
		WithArgs("emprunts", "507f1f77bcf86cd799439012", ActionDeleted, nil, "req-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	err := j.Append(context.Background(),
		Entry{Collection: "emprunts", RecordID: "507f1f77bcf86cd799439011", Action: ActionCreated, Payload: json.RawMessage(`{"abonnee":"a"}`), RequestID: "req-1"},
		Entry{Collection: "emprunts", RecordID: "507f1f77bcf86cd799439012", Action: ActionDeleted, RequestID: "req-1"},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendNothingIsANoop(t *testing.T) {
	j, mock := newTestJournal(t)
	require.NoError(t, j.Append(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRollsBackOnInsertFailure(t *testing.T) {
	j, mock := newTestJournal(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO record_journal")
	prep.ExpectQuery().WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := j.Append(context.Background(), Entry{Collection: "documents", RecordID: "x", Action: ActionUpdated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendReportsMissingSchema(t *testing.T) {
	j, mock := newTestJournal(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO record_journal").WillReturnError(&pq.Error{Code: "42P01", Message: `relation "record_journal" does not exist`})
	mock.ExpectRollback()

	err := j.Append(context.Background(), Entry{Collection: "documents", RecordID: "x", Action: ActionUpdated})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMissing)
}

func TestHistory(t *testing.T) {
	j, mock := newTestJournal(t)
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "collection", "record_id", "action", "payload", "request_id", "created_at"}).
		AddRow(int64(1), "emprunts", "abc", ActionCreated, []byte(`{"date_retour":"2026-10-17"}`), "req-1", created).
		AddRow(int64(5), "emprunts", "abc", ActionUpdated, nil, "", created.Add(time.Hour))
	mock.ExpectQuery("FROM record_journal").WithArgs("emprunts", "abc").WillReturnRows(rows)

	entries, err := j.History(context.Background(), "emprunts", "abc")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCreated, entries[0].Action)
	assert.JSONEq(t, `{"date_retour":"2026-10-17"}`, string(entries[0].Payload))
	assert.Equal(t, int64(5), entries[1].ID)
	assert.Nil(t, entries[1].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryWithoutEntriesIsEmptyList(t *testing.T) {
	j, mock := newTestJournal(t)
	rows := sqlmock.NewRows([]string{"id", "collection", "record_id", "action", "payload", "request_id", "created_at"})
	mock.ExpectQuery("FROM record_journal").WithArgs("emprunts", "abc").WillReturnRows(rows)

	entries, err := j.History(context.Background(), "emprunts", "abc")
	require.NoError(t, err)

	raw, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestStream(t *testing.T) {
	j, mock := newTestJournal(t)

	rows := sqlmock.NewRows([]string{"id", "collection", "record_id", "action", "payload", "request_id", "created_at"}).
		AddRow(int64(11), "abonnés", "s1", ActionDeleted, nil, "", time.Now())
	mock.ExpectQuery("FROM record_journal").WithArgs(int64(10), 50).WillReturnRows(rows)

	entries, err := j.Stream(context.Background(), 10, 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abonnés", entries[0].Collection)
}

func TestHistoryQueryError(t *testing.T) {
	j, mock := newTestJournal(t)
	mock.ExpectQuery("FROM record_journal").WillReturnError(sql.ErrConnDone)

	_, err := j.History(context.Background(), "emprunts", "abc")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
