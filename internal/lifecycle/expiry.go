// internal/lifecycle/expiry.go
package lifecycle

import (
	"context"

	"mediatheque/internal/journal"
	"mediatheque/internal/recordstore"
)

// ExpiredRecordID marks journal entries that cover a bulk expiry rather than a single loan.
const ExpiredRecordID = "*"

// DeleteExpiredToday removes every loan whose return date is today's
// YYYY-MM-DD string. Matching is string equality on the stored value; a loan
// stored with another date format is never swept. Zero deletions is a
// successful run.
func (s *service) DeleteExpiredToday(ctx context.Context) (int64, error) {
	p, coll, err := s.resolve(KindLoan)
	if err != nil {
		return 0, err
	}
	today := s.now().Format(ReturnDateLayout)

	n, err := coll.DeleteMany(ctx, recordstore.Filter{FieldReturnDate: today})
	if err != nil {
		s.logger.ErrorContext(ctx, "expired loan cleanup failed", "date", today, "error", err)
		return 0, &StoreError{Op: "delete expired loans", Err: err}
	}

	s.logger.InfoContext(ctx, "expired loan cleanup", "date", today, "deleted", n)
	if n > 0 {
		s.metrics.LoansExpired.Add(float64(n))
		s.record(ctx, p, ExpiredRecordID, journal.ActionExpired, map[string]any{
			FieldReturnDate: today,
			"deleted_count": n,
		})
	}
	return n, nil
}
