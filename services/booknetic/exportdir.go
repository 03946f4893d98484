package booknetic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"booksync-backend/lib/csvutil"
	"booksync-backend/lib/normalize"
)

// ExportDirAdapter reads the newest CSV per module out of a local
// directory. An operator-driven export (including one produced by a
// browser) drops files like appointments_2024Aug31.csv there; this
// adapter makes those runs indistinguishable from a live scrape.
type ExportDirAdapter struct {
	Dir string
}

func (a *ExportDirAdapter) Name() string { return "exportdir" }

func (a *ExportDirAdapter) Fetch(ctx context.Context) (Batch, error) {
	info, err := os.Stat(a.Dir)
	if err != nil {
		return Batch{}, fmt.Errorf("export dir: %w", err)
	}
	if !info.IsDir() {
		return Batch{}, fmt.Errorf("export dir: %s is not a directory", a.Dir)
	}

	var batch Batch
	for _, module := range Modules {
		path := a.newestCSV(module+"_*.csv", nil)
		if path == "" && module == "appointments" {
			// older export scripts dropped a single unnamed csv
			// holding appointments
			path = a.newestCSV("*.csv", Modules)
		}
		if path == "" {
			continue
		}
		rows, err := a.readCSV(path)
		if err != nil {
			return Batch{}, fmt.Errorf("read %s: %w", path, err)
		}
		batch = batch.with(module, rows)
	}
	return batch, nil
}

// newestCSV returns the most recently modified match, skipping files
// whose name claims one of the excluded module prefixes.
func (a *ExportDirAdapter) newestCSV(pattern string, excludePrefixes []string) string {
	matches, err := filepath.Glob(filepath.Join(a.Dir, pattern))
	if err != nil {
		return ""
	}
	filtered := matches[:0]
	for _, m := range matches {
		name := filepath.Base(m)
		claimed := false
		for _, prefix := range excludePrefixes {
			if strings.HasPrefix(name, prefix+"_") {
				claimed = true
				break
			}
		}
		if !claimed {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	sort.Slice(filtered, func(i, j int) bool {
		return mtime(filtered[i]) > mtime(filtered[j])
	})
	return filtered[0]
}

func mtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}

func (a *ExportDirAdapter) readCSV(path string) ([]normalize.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := csvutil.Decode(f)
	if err != nil {
		return nil, err
	}
	return toRows(raw), nil
}
