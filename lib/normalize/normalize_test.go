package normalize_test

import (
	"testing"

	"booksync-backend/lib/normalize"

	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "correo_electronico", normalize.Key("  Correo Electronico "))
	require.Equal(t, "start_date_time", normalize.Key("Start date-time"))
	require.Equal(t, "nombre", normalize.Key("NOMBRE"))
}

func TestPickPrefersExactMatch(t *testing.T) {
	norm := normalize.Row{
		"id":      "42",
		"paid_at": "2024-01-01",
	}
	// "id" is a substring of "paid_at"; the exact key must win
	require.Equal(t, "42", normalize.Pick(norm, []string{"id"}))
}

func TestKeysCollisionDeterministic(t *testing.T) {
	raw := normalize.Row{"Email": "upper", "email": "lower"}
	require.Equal(t, "lower", normalize.Keys(raw)["email"])
}

func TestPickExact(t *testing.T) {
	norm := normalize.Row{"payment_id": "p7", "paid_at": "2024-08-31"}
	require.Equal(t, "p7", normalize.PickExact(norm, []string{"payment_id", "id"}))
	require.Equal(t, "", normalize.PickExact(norm, []string{"id"}))
}

func TestPickSubstring(t *testing.T) {
	norm := normalize.Row{
		"correo_electronico": "a@b.cl",
	}
	require.Equal(t, "a@b.cl", normalize.Pick(norm, []string{"email", "correo"}))
	require.Equal(t, "", normalize.Pick(norm, []string{"phone"}))
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"31/08/2024 13:00", "2024-08-31 13:00:00", true},
		{"31-08-2024 13:00", "2024-08-31 13:00:00", true},
		{"2024-08-31 13:00:05", "2024-08-31 13:00:05", true},
		{"2024-08-31 13:00", "2024-08-31 13:00:00", true},
		{"2024-08-31", "2024-08-31 00:00:00", true},
		{"31/08/2024", "2024-08-31 00:00:00", true},
		{"31-08-2024", "2024-08-31 00:00:00", true},
		{"not-a-date", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := normalize.ParseDate(c.in)
		require.Equal(t, c.ok, ok, "input %q", c.in)
		require.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestCustomerSpanishHeaders(t *testing.T) {
	rec := normalize.Customer(normalize.Row{
		"Nombre":             "Ana Soto",
		"Correo Electronico": "ana@example.cl",
		"Telefono":           "+56 9 1234 5678",
	})
	require.Equal(t, "Ana Soto", rec["name"])
	require.Equal(t, "ana@example.cl", rec["email"])
	require.Equal(t, "+56 9 1234 5678", rec["phone"])
	require.Equal(t, "active", rec["status"])
	require.NotNil(t, rec["raw"])
}

func TestAppointmentDates(t *testing.T) {
	rec := normalize.Appointment(normalize.Row{
		"Cliente":         "Ana Soto",
		"Email":           "ana@example.cl",
		"Servicio":        "Corte",
		"Fecha de inicio": "31/08/2024 13:00",
		"Estado":          "approved",
	})
	require.Equal(t, "2024-08-31 13:00:00", rec["starts_at"])
	require.Equal(t, "approved", rec["status"])
}

func TestAppointmentUnparseableDate(t *testing.T) {
	rec := normalize.Appointment(normalize.Row{
		"Fecha": "pronto",
	})
	require.Nil(t, rec["starts_at"])
}

func TestPaymentIdOnlyFromIdColumns(t *testing.T) {
	// a row with no id column must not adopt one from a header that
	// merely contains "id", like paid_at
	rec := normalize.Payment(normalize.Row{
		"Customer": "Ana",
		"Amount":   "100",
		"Paid At":  "31/08/2024 13:00",
	})
	require.Nil(t, rec["id"])
	require.Equal(t, "2024-08-31 13:00:00", rec["paid_at"])

	rec = normalize.Payment(normalize.Row{"Payment ID": "p7"})
	require.Equal(t, "p7", rec["id"])
}

func TestAppointmentIdIgnoresServiceId(t *testing.T) {
	rec := normalize.Appointment(normalize.Row{
		"Service ID": "svc-9",
		"Email":      "ana@example.cl",
	})
	require.Nil(t, rec["id"])
}

func TestPaymentDefaults(t *testing.T) {
	rec := normalize.Payment(normalize.Row{
		"Monto": "15.000",
	})
	require.Equal(t, "CLP", rec["currency"])
}

func TestLead(t *testing.T) {
	rec := normalize.Lead(normalize.Row{
		"Nombre": "Ana",
		"Correo": "ana@example.cl",
	}, "sheets")
	require.Equal(t, "sheets", rec["source"])
	require.Equal(t, "ana@example.cl", rec["email"])
}

func TestDecimal(t *testing.T) {
	v, ok := normalize.Decimal("15000.50")
	require.True(t, ok)
	require.Equal(t, 15000.50, v)

	_, ok = normalize.Decimal("gratis")
	require.False(t, ok)
}
