package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TimeFormat is the single normalized textual timestamp format used
// across the destination schema.
const TimeFormat = "2006-01-02 15:04:05"

func nowUTC() string {
	return time.Now().UTC().Format(TimeFormat)
}

// JobRun is one row of the job_runs log table; it is the only place
// operators observe run outcomes.
type JobRun struct {
	ID         int64
	JobName    string
	Status     string
	StartedAt  string
	FinishedAt sql.NullString
	RowCount   sql.NullInt64
	Error      sql.NullString
}

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// StartRun records the beginning of a job run and returns its id.
func (s Store) StartRun(ctx context.Context, jobName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`insert into job_runs (job_name, status, started_at) values (?, ?, ?)`,
		jobName, StatusRunning, nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("record job start: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun marks a run successful with its final row count.
func (s Store) FinishRun(ctx context.Context, id int64, rowCount int) error {
	_, err := s.db.ExecContext(ctx,
		`update job_runs set status = ?, finished_at = ?, row_count = ? where id = ?`,
		StatusSuccess, nowUTC(), rowCount, id,
	)
	return err
}

// FailRun marks a run failed, capturing the error type, message and
// stack for later inspection.
func (s Store) FailRun(ctx context.Context, id int64, jobErr error) error {
	detail := fmt.Sprintf("%T: %v\n%s", jobErr, jobErr, debug.Stack())
	_, err := s.db.ExecContext(ctx,
		`update job_runs set status = ?, finished_at = ?, error = ? where id = ?`,
		StatusError, nowUTC(), detail, id,
	)
	return err
}

// RunJob wraps one pipeline pass with run metadata: a running row is
// written up front and mutated exactly once at the end to success or
// error. Job failures are recorded and then returned to the caller;
// they are never swallowed.
func (s Store) RunJob(ctx context.Context, jobName string, fn func(ctx context.Context) (int, error)) error {
	ctx, span := tracer.Start(ctx, "RunJob")
	defer span.End()
	span.SetAttributes(attribute.String("job", jobName))

	runID, err := s.StartRun(ctx, jobName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	rowCount, jobErr := fn(ctx)
	if jobErr != nil {
		span.RecordError(jobErr)
		span.SetStatus(codes.Error, jobErr.Error())
		if recErr := s.FailRun(ctx, runID, jobErr); recErr != nil {
			slog.ErrorContext(ctx, "failed to record job error", "job", jobName, "err", recErr)
		}
		slog.ErrorContext(ctx, "job failed", "job", jobName, "err", jobErr)
		return jobErr
	}

	err = s.FinishRun(ctx, runID, rowCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	slog.InfoContext(ctx, "job succeeded", "job", jobName, "rows", rowCount)
	return nil
}

// RecentRuns returns the newest job runs, most recent first.
func (s Store) RecentRuns(ctx context.Context, limit int) ([]JobRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, job_name, status, started_at, finished_at, row_count, error
		 from job_runs order by id desc limit ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var r JobRun
		err := rows.Scan(&r.ID, &r.JobName, &r.Status, &r.StartedAt, &r.FinishedAt, &r.RowCount, &r.Error)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
