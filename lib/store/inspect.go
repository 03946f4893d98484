package store

import (
	"context"
	"fmt"
)

// DataTables are the destination tables the pipelines write to, in
// display order. job_runs is deliberately excluded: the run log is
// never reset by tooling that clears scraped data.
var DataTables = []string{
	"booking_customers",
	"booking_appointments",
	"booking_payments",
	"leads",
}

// Count returns the number of rows in a destination table.
func (s Store) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from %s`, quoteIdent(table)),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Reset empties every destination data table. Manual tooling only;
// the pipelines never call this.
func (s Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range DataTables {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`delete from %s`, quoteIdent(table)))
		if err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
