// Package leads imports lead rows from a shared spreadsheet into the
// relational store. Column headers vary by sheet owner, so the import
// accepts an alias map and falls back to positional columns when the
// sheet carries no header row at all.
package leads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"booksync-backend/lib/identity"
	"booksync-backend/lib/normalize"
	"booksync-backend/lib/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/leads")

var leadUpdate = []string{"name", "email", "phone", "source", "raw"}

type Config struct {
	Sheets SheetsConfig `json:"sheets"`
	// Aliases maps a sheet header to the canonical column name, e.g.
	// {"marca temporal": "created_at"}. Applied before normalization.
	Aliases map[string]string `json:"aliases"`
	// Columns assigns names positionally for headerless sheets. When
	// set, the first row is treated as data.
	Columns []string `json:"columns"`
	// KeyFields feed the identity digest. Defaults to
	// email + marca_temporal.
	KeyFields []string `json:"key_fields"`
	// UseEmailAsId takes the email verbatim as the row id instead of
	// hashing. Only safe when the sheet dedups on email upstream.
	UseEmailAsId bool `json:"use_email_as_id"`
}

var defaultKeyFields = []string{"email", "marca_temporal"}

type Service struct {
	store  store.Store
	source Source
	cfg    Config
}

func NewService(st store.Store, source Source, cfg Config) *Service {
	if len(cfg.KeyFields) == 0 {
		cfg.KeyFields = defaultKeyFields
	}
	return &Service{store: st, source: source, cfg: cfg}
}

// Import pulls the configured range and upserts every lead row.
func (s *Service) Import(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "leads:Import")
	defer span.End()

	grid, err := s.source.Values(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	rows := s.toRows(grid)
	if len(rows) == 0 {
		slog.InfoContext(ctx, "sheet produced no lead rows")
		return 0, nil
	}

	records := make([]store.Row, 0, len(rows))
	for _, raw := range rows {
		rec := normalize.Lead(raw, "sheets")
		s.ensureId(rec, raw)
		records = append(records, rec)
	}

	n, err := s.store.Upsert(ctx, "leads", records, []string{"id"}, leadUpdate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	slog.InfoContext(ctx, "imported leads", "rows", n)
	return n, nil
}

// toRows converts the sheet grid into keyed rows, resolving headers
// through the alias map. Rows with every cell blank are dropped.
func (s *Service) toRows(grid [][]any) []normalize.Row {
	if len(grid) == 0 {
		return nil
	}

	header := s.cfg.Columns
	data := grid
	if len(header) == 0 {
		header = make([]string, len(grid[0]))
		for i, cell := range grid[0] {
			header[i] = cellString(cell)
		}
		data = grid[1:]
	}

	out := make([]normalize.Row, 0, len(data))
	for _, cells := range data {
		row := make(normalize.Row, len(header))
		blank := true
		for i, name := range header {
			if name == "" {
				continue
			}
			if alias, ok := s.cfg.Aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
				name = alias
			}
			var v string
			if i < len(cells) {
				v = cellString(cells[i])
			}
			if v != "" {
				blank = false
			}
			row[name] = v
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}

// ensureId mints the row id. Hashed ids use the full digest: sheet
// rows are numerous and long-lived, so the short prefix is too tight.
func (s *Service) ensureId(rec map[string]any, raw normalize.Row) {
	if s.cfg.UseEmailAsId {
		if email, _ := rec["email"].(string); email != "" {
			rec["id"] = email
			return
		}
	}
	norm := normalize.Keys(raw)
	parts := make([]string, len(s.cfg.KeyFields))
	for i, field := range s.cfg.KeyFields {
		switch v := rec[field].(type) {
		case string:
			parts[i] = v
		default:
			parts[i] = norm[normalize.Key(field)]
		}
	}
	if existing, _ := rec["id"].(string); existing == "" {
		rec["id"] = identity.Hash(parts...)
	}
}

func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
