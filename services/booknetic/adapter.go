// Package booknetic syncs appointment, customer and payment records
// out of a Booknetic-style booking plugin into the destination store.
//
// Several extraction strategies can produce the same data (the HTTP
// CSV export, a directory of files dropped by an external export run,
// the documented REST API); they all implement Adapter and are tried
// in preference order until one yields rows.
package booknetic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"booksync-backend/lib/normalize"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/booknetic")

// Batch is one extraction result. A strategy that cannot produce a
// record type leaves its slice empty; absence means "no records this
// run", not an error.
type Batch struct {
	Appointments []normalize.Row
	Customers    []normalize.Row
	Payments     []normalize.Row
}

func (b Batch) Empty() bool {
	return len(b.Appointments) == 0 && len(b.Customers) == 0 && len(b.Payments) == 0
}

func (b Batch) Size() int {
	return len(b.Appointments) + len(b.Customers) + len(b.Payments)
}

// Adapter is any strategy that can pull raw rows from the source
// system.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) (Batch, error)
}

// Chain tries adapters in ranked order; the first non-empty batch
// wins. A failing adapter is logged and skipped, but if every adapter
// fails or comes back empty the extraction as a whole fails: the
// caller must not treat "nothing scraped" as an empty source.
type Chain struct {
	Adapters []Adapter
}

func (c Chain) Fetch(ctx context.Context) (Batch, error) {
	ctx, span := tracer.Start(ctx, "chain:Fetch")
	defer span.End()

	var errlist []error
	for _, adapter := range c.Adapters {
		batch, err := adapter.Fetch(ctx)
		if err != nil {
			slog.WarnContext(ctx, "extraction adapter failed", "adapter", adapter.Name(), "err", err)
			errlist = append(errlist, fmt.Errorf("%s: %w", adapter.Name(), err))
			continue
		}
		if batch.Empty() {
			slog.DebugContext(ctx, "extraction adapter produced no rows", "adapter", adapter.Name())
			continue
		}
		span.SetAttributes(
			attribute.String("adapter", adapter.Name()),
			attribute.Int("rows", batch.Size()),
		)
		return batch, nil
	}

	err := errors.New("all extraction adapters exhausted")
	if len(errlist) > 0 {
		err = fmt.Errorf("all extraction adapters exhausted: %w", errors.Join(errlist...))
	}
	span.SetStatus(codes.Error, err.Error())
	return Batch{}, err
}
