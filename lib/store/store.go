// Package store is the destination side of the pipeline: schema
// bootstrap, the two load strategies (incremental upsert and
// full-snapshot replace) and job-run metadata.
//
// Rows arrive as generic column->value maps because every extraction
// strategy produces a slightly different column set; the store derives
// one consistent column list per batch and binds everything through
// placeholders.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "embed"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("lib/store")

//go:embed schema.sql
var Schema string

// ChunkSize bounds the number of rows bound into a single insert
// statement, keeping parameter counts well under the driver limit.
const ChunkSize = 500

// Row is one destination row keyed by column name. nil values insert
// NULL; map and slice values are JSON-encoded.
type Row = map[string]any

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) Store {
	return Store{db: db}
}

// DB exposes the underlying handle for callers that need raw reads
// (the inspection CLI).
func (s Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates tables, indexes and updated_at triggers if they
// do not exist yet. Safe to call on every process start.
func (s Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert applies a batch of rows to table with insert-or-update
// semantics keyed on the conflict columns.
//
// Empty rows are dropped. Rows sharing a conflict-key tuple are
// deduplicated, the later occurrence winning; rows missing any
// conflict-key value cannot be upserted safely and are dropped too.
// The surviving batch is written in chunks, each chunk one statement
// in its own committed transaction, so a failure partway leaves
// earlier chunks applied. Returns the post-dedup row count.
func (s Store) Upsert(ctx context.Context, table string, rows []Row, conflict, update []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", table),
		attribute.Int("input_rows", len(rows)),
	)

	batch := dedup(rows, conflict)
	if len(batch) == 0 {
		return 0, nil
	}
	span.SetAttributes(attribute.Int("deduped_rows", len(batch)))

	columns := columnUnion(batch, conflict, update)

	for _, chunk := range chunks(batch, ChunkSize) {
		query, args := buildInsert(table, columns, chunk, conflict, update)
		err := s.execInTx(ctx, query, args)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("upsert %s: %w", table, err)
		}
	}
	return len(batch), nil
}

// ReplaceAll swaps the entire contents of table for the given
// snapshot. An empty snapshot is skipped rather than emptying the
// table, so a transient extraction failure cannot wipe data. The
// delete and all chunk inserts run in one transaction: readers never
// observe the table mid-load.
func (s Store) ReplaceAll(ctx context.Context, table string, rows []Row) (int, error) {
	ctx, span := tracer.Start(ctx, "ReplaceAll")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", table),
		attribute.Int("rows", len(rows)),
	)

	batch := make([]Row, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		batch = append(batch, r)
	}
	if len(batch) == 0 {
		span.SetAttributes(attribute.Bool("empty_guard", true))
		return 0, nil
	}

	columns := columnUnion(batch, nil, nil)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`delete from %s`, quoteIdent(table)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("replace %s: %w", table, err)
	}

	for _, chunk := range chunks(batch, ChunkSize) {
		query, args := buildInsert(table, columns, chunk, nil, nil)
		_, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("replace %s: %w", table, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return len(batch), nil
}

func (s Store) execInTx(ctx context.Context, query string, args []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// dedup drops empty rows and rows missing a conflict-key value, then
// keeps only the last row per conflict tuple, preserving first-seen
// order of the surviving keys.
func dedup(rows []Row, conflict []string) []Row {
	var order []string
	byKey := map[string]Row{}

	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		key, ok := conflictKey(r, conflict)
		if !ok {
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = r
	}

	out := make([]Row, len(order))
	for i, key := range order {
		out[i] = byKey[key]
	}
	return out
}

func conflictKey(r Row, conflict []string) (string, bool) {
	parts := make([]string, len(conflict))
	for i, c := range conflict {
		v, ok := r[c]
		if !ok || v == nil {
			return "", false
		}
		s := fmt.Sprintf("%v", v)
		if s == "" {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, "\x00"), true
}

// columnUnion derives one consistent column list for a whole batch:
// the union of every row's fields plus any declared conflict/update
// columns not naturally present. Sorted so generated SQL is stable.
func columnUnion(rows []Row, conflict, update []string) []string {
	set := map[string]bool{}
	for _, r := range rows {
		for c := range r {
			set[c] = true
		}
	}
	for _, c := range conflict {
		set[c] = true
	}
	for _, c := range update {
		set[c] = true
	}

	columns := make([]string, 0, len(set))
	for c := range set {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

func chunks(rows []Row, size int) [][]Row {
	var out [][]Row
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

// buildInsert renders one set-based insert over the batch column list.
// With conflict columns it appends an upsert clause updating exactly
// the declared update columns from the incoming row; other columns are
// untouched on conflict.
func buildInsert(table string, columns []string, chunk []Row, conflict, update []string) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}

	placeholderRow := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	valueRows := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*len(columns))
	for i, r := range chunk {
		valueRows[i] = placeholderRow
		for _, c := range columns {
			args = append(args, encodeValue(r[c]))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "insert into %s (%s) values %s",
		quoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(valueRows, ", "),
	)

	if len(conflict) > 0 {
		quotedConflict := make([]string, len(conflict))
		for i, c := range conflict {
			quotedConflict[i] = quoteIdent(c)
		}
		fmt.Fprintf(&b, " on conflict (%s)", strings.Join(quotedConflict, ", "))

		if len(update) == 0 {
			b.WriteString(" do nothing")
		} else {
			sets := make([]string, len(update))
			for i, c := range update {
				sets[i] = fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c))
			}
			fmt.Fprintf(&b, " do update set %s", strings.Join(sets, ", "))
		}
	}

	return b.String(), args
}

// encodeValue converts structured values (the raw column) into the
// destination's JSON encoding; scalars pass through for the driver to
// bind.
func encodeValue(v any) any {
	switch v.(type) {
	case nil, string, []byte, bool,
		int, int32, int64, float32, float64:
		return v
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
