package booknetic

import (
	"context"
	"fmt"
	"log/slog"

	"booksync-backend/lib/normalize"
	"booksync-backend/lib/scrapers/wordpress"
)

// Modules are the plugin modules exported per run, matching the
// wp-admin export endpoints.
var Modules = []string{"appointments", "customers", "payments"}

// ExportAdapter logs in to the WordPress admin and downloads the
// plugin's CSV exports over plain HTTP. This replaced the original
// browser-automation export: same endpoints, no browser.
type ExportAdapter struct {
	Client   *wordpress.Client
	Username string
	Password string
}

func (a *ExportAdapter) Name() string { return "export" }

func (a *ExportAdapter) Fetch(ctx context.Context) (Batch, error) {
	if a.Username == "" || a.Password == "" {
		return Batch{}, fmt.Errorf("wordpress credentials are not configured")
	}

	if !a.Client.IsLoggedIn() {
		err := a.Client.Login(ctx, a.Username, a.Password)
		if err != nil {
			return Batch{}, err
		}
	}

	var batch Batch
	for _, module := range Modules {
		rows, err := a.fetchModule(ctx, module)
		if err != nil {
			// one module failing should not lose the others; the
			// empty-guard on the load side protects the table
			slog.WarnContext(ctx, "module export failed", "module", module, "err", err)
			continue
		}
		slog.InfoContext(ctx, "module exported", "module", module, "rows", len(rows))
		batch = batch.with(module, rows)
	}
	return batch, nil
}

// fetchModule hits the canonical export url first; when the plugin
// answers with an admin page instead of CSV, fall back to whatever
// export links the module page itself advertises.
func (a *ExportAdapter) fetchModule(ctx context.Context, module string) ([]normalize.Row, error) {
	raw, err := a.Client.ExportCSV(ctx, module)
	if err == nil {
		return toRows(raw), nil
	}
	firstErr := err

	links, err := a.Client.DiscoverExportLinks(ctx, module)
	if err != nil || len(links) == 0 {
		return nil, firstErr
	}
	for _, link := range links {
		raw, err := a.Client.ExportCSVFrom(ctx, module, link)
		if err != nil {
			continue
		}
		return toRows(raw), nil
	}
	return nil, firstErr
}

func (b Batch) with(module string, rows []normalize.Row) Batch {
	switch module {
	case "appointments":
		b.Appointments = append(b.Appointments, rows...)
	case "customers":
		b.Customers = append(b.Customers, rows...)
	case "payments":
		b.Payments = append(b.Payments, rows...)
	}
	return b
}

func toRows(raw []map[string]string) []normalize.Row {
	rows := make([]normalize.Row, len(raw))
	for i, r := range raw {
		rows[i] = normalize.Row(r)
	}
	return rows
}
