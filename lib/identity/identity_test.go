package identity_test

import (
	"testing"

	"booksync-backend/lib/identity"

	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	a := identity.Hash("ana@example.cl", "2024-08-31 13:00:00", "Corte")
	b := identity.Hash("ana@example.cl", "2024-08-31 13:00:00", "Corte")
	require.Equal(t, a, b)
	require.Len(t, a, 40)
}

func TestHashOrderMatters(t *testing.T) {
	require.NotEqual(t,
		identity.Hash("a", "b"),
		identity.Hash("b", "a"),
	)
}

func TestShortWidth(t *testing.T) {
	short := identity.Short("ana@example.cl", "2024-08-31 13:00:00")
	require.Len(t, short, identity.HexWidth)
}

func TestEnsureKeepsExplicitId(t *testing.T) {
	rec := map[string]any{"id": "worker-assigned-7", "email": "a@b.cl"}
	identity.Ensure(rec, []string{"email"}, false)
	require.Equal(t, "worker-assigned-7", rec["id"])
}

func TestEnsureMintsFromKeyFields(t *testing.T) {
	rec := map[string]any{"email": "a@b.cl", "name": "Ana"}
	identity.Ensure(rec, []string{"email", "name"}, false)
	require.Equal(t, identity.Short("a@b.cl", "Ana"), rec["id"])
}

func TestEnsureMissingPartsAreEmpty(t *testing.T) {
	rec := map[string]any{"email": "a@b.cl"}
	identity.Ensure(rec, []string{"email", "name"}, false)
	require.Equal(t, identity.Short("a@b.cl", ""), rec["id"])
}

func TestEnsureFullDigest(t *testing.T) {
	rec := map[string]any{"email": "a@b.cl"}
	identity.Ensure(rec, []string{"email"}, true)
	require.Equal(t, identity.Hash("a@b.cl"), rec["id"])
}
