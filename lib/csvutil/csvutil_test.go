package csvutil_test

import (
	"testing"

	"booksync-backend/lib/csvutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	rows, err := csvutil.DecodeString("Name,Email\nAna,ana@example.cl\nBeto,beto@example.cl\n")
	require.NoError(t, err)

	expected := []map[string]string{
		{"Name": "Ana", "Email": "ana@example.cl"},
		{"Name": "Beto", "Email": "beto@example.cl"},
	}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Fatal(diff)
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	rows, err := csvutil.DecodeString("\ufeffName,Email\nAna,ana@example.cl\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, hasBOMKey := rows[0]["\ufeffName"]
	require.False(t, hasBOMKey)
	require.Equal(t, "Ana", rows[0]["Name"])
}

func TestDecodeShortRowsPad(t *testing.T) {
	rows, err := csvutil.DecodeString("Name,Email,Phone\nAna,ana@example.cl\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "", rows[0]["Phone"])
}

func TestDecodeEmpty(t *testing.T) {
	rows, err := csvutil.DecodeString("")
	require.NoError(t, err)
	require.Empty(t, rows)
}
