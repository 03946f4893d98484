package leads_test

import (
	"context"
	"testing"

	"booksync-backend/lib/identity"
	"booksync-backend/lib/store"
	"booksync-backend/lib/testutil"
	"booksync-backend/services/leads"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	grid [][]any
	err  error
}

func (f *fakeSource) Values(ctx context.Context) ([][]any, error) {
	return f.grid, f.err
}

func setup(t *testing.T) store.Store {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "leads",
		DbSchema: store.Schema,
	})
	t.Cleanup(cleanup)
	return store.New(res.DB)
}

func TestImport(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"Marca temporal", "Nombre", "Correo", "Telefono"},
		{"31/08/2024 13:00", "Ana Soto", "ana@example.cl", "+56912345678"},
		{"31/08/2024 14:00", "Beto Rojas", "beto@example.cl", ""},
	}}
	service := leads.NewService(st, source, leads.Config{})

	n, err := service.Import(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var email, src string
	err = st.DB().QueryRow(
		`select email, source from leads where name = 'Ana Soto'`,
	).Scan(&email, &src)
	require.NoError(t, err)
	require.Equal(t, "ana@example.cl", email)
	require.Equal(t, "sheets", src)
}

func TestImportIsIdempotent(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"Correo", "Nombre"},
		{"ana@example.cl", "Ana"},
	}}
	service := leads.NewService(st, source, leads.Config{})

	_, err := service.Import(context.Background())
	require.NoError(t, err)
	_, err = service.Import(context.Background())
	require.NoError(t, err)

	count, err := st.Count(context.Background(), "leads")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestImportFullDigestId(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"Marca temporal", "Correo"},
		{"31/08/2024 13:00", "ana@example.cl"},
	}}
	service := leads.NewService(st, source, leads.Config{})

	_, err := service.Import(context.Background())
	require.NoError(t, err)

	var id string
	err = st.DB().QueryRow(`select id from leads`).Scan(&id)
	require.NoError(t, err)
	require.Equal(t, identity.Hash("ana@example.cl", "31/08/2024 13:00"), id)
}

func TestImportUseEmailAsId(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"Correo", "Nombre"},
		{"ana@example.cl", "Ana"},
	}}
	service := leads.NewService(st, source, leads.Config{UseEmailAsId: true})

	_, err := service.Import(context.Background())
	require.NoError(t, err)

	var id string
	err = st.DB().QueryRow(`select id from leads`).Scan(&id)
	require.NoError(t, err)
	require.Equal(t, "ana@example.cl", id)
}

func TestImportAliases(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"Dirección de correo", "Como te llamas"},
		{"ana@example.cl", "Ana"},
	}}
	service := leads.NewService(st, source, leads.Config{
		Aliases: map[string]string{
			"dirección de correo": "email",
			"como te llamas":      "nombre",
		},
	})

	_, err := service.Import(context.Background())
	require.NoError(t, err)

	var email, name string
	err = st.DB().QueryRow(`select email, name from leads`).Scan(&email, &name)
	require.NoError(t, err)
	require.Equal(t, "ana@example.cl", email)
	require.Equal(t, "Ana", name)
}

func TestImportHeaderlessColumns(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"ana@example.cl", "Ana", "+56912345678"},
	}}
	service := leads.NewService(st, source, leads.Config{
		Columns: []string{"email", "nombre", "telefono"},
	})

	n, err := service.Import(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var phone string
	err = st.DB().QueryRow(`select phone from leads`).Scan(&phone)
	require.NoError(t, err)
	require.Equal(t, "+56912345678", phone)
}

func TestImportSkipsBlankRows(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: [][]any{
		{"Correo", "Nombre"},
		{"", ""},
		{"ana@example.cl", "Ana"},
		{nil, nil},
	}}
	service := leads.NewService(st, source, leads.Config{})

	n, err := service.Import(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestImportEmptySheet(t *testing.T) {
	st := setup(t)
	source := &fakeSource{grid: nil}
	service := leads.NewService(st, source, leads.Config{})

	n, err := service.Import(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
