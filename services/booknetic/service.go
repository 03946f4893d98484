package booknetic

import (
	"context"
	"log/slog"

	"booksync-backend/lib/identity"
	"booksync-backend/lib/normalize"
	"booksync-backend/lib/store"

	"go.opentelemetry.io/otel/codes"
)

// Composite keys used to mint stable ids when the source rows carry
// no usable id of their own.
var (
	customerKey    = []string{"email", "name", "phone"}
	appointmentKey = []string{"customer_email", "starts_at", "service_name"}
	paymentKey     = []string{"appointment_id", "amount", "paid_at"}
)

// Columns refreshed on conflict. The id and created_at never move.
var (
	customerUpdate    = []string{"name", "email", "phone", "status", "raw"}
	appointmentUpdate = []string{"customer_name", "customer_email", "service_name", "starts_at", "status", "raw"}
	paymentUpdate     = []string{"appointment_id", "amount", "currency", "status", "method", "paid_at", "raw"}
)

type Service struct {
	store store.Store
	chain Chain
}

func NewService(st store.Store, adapters ...Adapter) *Service {
	return &Service{store: st, chain: Chain{Adapters: adapters}}
}

// Sync fetches one batch through the adapter chain and upserts every
// entity. Returns the total number of rows written across tables.
func (s *Service) Sync(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "booknetic:Sync")
	defer span.End()

	batch, err := s.chain.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	total := 0
	for _, part := range s.prepare(batch) {
		n, err := s.store.Upsert(ctx, part.table, part.rows, []string{"id"}, part.update)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
		slog.InfoContext(ctx, "upserted rows", "table", part.table, "rows", n)
		total += n
	}
	return total, nil
}

// SyncSnapshot treats the batch as the full current state and swaps
// each table's contents for it. Empty batches leave tables untouched.
func (s *Service) SyncSnapshot(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "booknetic:SyncSnapshot")
	defer span.End()

	batch, err := s.chain.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	total := 0
	for _, part := range s.prepare(batch) {
		n, err := s.store.ReplaceAll(ctx, part.table, part.rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
		slog.InfoContext(ctx, "replaced table", "table", part.table, "rows", n)
		total += n
	}
	return total, nil
}

type tablePart struct {
	table  string
	rows   []store.Row
	update []string
}

func (s *Service) prepare(batch Batch) []tablePart {
	customers := make([]store.Row, 0, len(batch.Customers))
	for _, raw := range batch.Customers {
		rec := normalize.Customer(raw)
		identity.Ensure(rec, customerKey, false)
		customers = append(customers, rec)
	}

	appointments := make([]store.Row, 0, len(batch.Appointments))
	for _, raw := range batch.Appointments {
		rec := normalize.Appointment(raw)
		identity.Ensure(rec, appointmentKey, false)
		appointments = append(appointments, rec)
	}

	payments := make([]store.Row, 0, len(batch.Payments))
	for _, raw := range batch.Payments {
		rec := normalize.Payment(raw)
		identity.Ensure(rec, paymentKey, false)
		payments = append(payments, rec)
	}

	return []tablePart{
		{table: "booking_customers", rows: customers, update: customerUpdate},
		{table: "booking_appointments", rows: appointments, update: appointmentUpdate},
		{table: "booking_payments", rows: payments, update: paymentUpdate},
	}
}
