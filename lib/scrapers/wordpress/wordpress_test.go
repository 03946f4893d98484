package wordpress_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"booksync-backend/lib/scrapers/wordpress"
	"booksync-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func newFakeWordpress(t *testing.T, validPassword string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-login.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "wordpress_test_cookie", Value: "WP Cookie check"})
			w.Write([]byte("<html><form id=loginform></form></html>"))
			return
		}
		if r.FormValue("pwd") == validPassword {
			http.SetCookie(w, &http.Cookie{
				Name:  "wordpress_logged_in_abc123",
				Value: "admin|token",
				Path:  "/",
			})
			w.Write([]byte("<html>welcome</html>"))
			return
		}
		w.Write([]byte(`<html><div id="login_error">Invalid password.</div></html>`))
	})
	mux.HandleFunc("/wp-admin/admin.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "export" {
			w.Write([]byte("<html>dashboard</html>"))
			return
		}
		switch r.URL.Query().Get("module") {
		case "customers":
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("Nombre,Correo Electronico\nAna,ana@example.cl\n"))
		default:
			// expired sessions answer with the login page
			w.Write([]byte("<html><form id=loginform></form></html>"))
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setup(t *testing.T, server *httptest.Server) *wordpress.Client {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "wordpress"})
	t.Cleanup(cleanup)

	client, err := wordpress.NewClient(wordpress.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	server := newFakeWordpress(t, "hunter2")
	client := setup(t, server)

	require.False(t, client.IsLoggedIn())
	err := client.Login(context.Background(), "admin", "hunter2")
	require.NoError(t, err)
	require.True(t, client.IsLoggedIn())
}

func TestLoginBadPassword(t *testing.T) {
	server := newFakeWordpress(t, "hunter2")
	client := setup(t, server)

	err := client.Login(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, wordpress.LoginFailed)
	require.Contains(t, err.Error(), "Invalid password")
	require.False(t, client.IsLoggedIn())
}

func TestExportCSV(t *testing.T) {
	server := newFakeWordpress(t, "hunter2")
	client := setup(t, server)

	rows, err := client.ExportCSV(context.Background(), "customers")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Ana", rows[0]["Nombre"])
}

func TestExportCSVRejectsHTML(t *testing.T) {
	server := newFakeWordpress(t, "hunter2")
	client := setup(t, server)

	_, err := client.ExportCSV(context.Background(), "payments")
	require.Error(t, err)
}
