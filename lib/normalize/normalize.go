// Package normalize maps raw CSV/spreadsheet rows with arbitrary,
// inconsistently-named columns onto the canonical record shapes the
// destination store expects. Export headers vary by export method,
// plugin version and language (English/Spanish), so field extraction
// is heuristic: each canonical field owns an ordered list of candidate
// substrings and the first matching normalized key wins.
package normalize

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is a raw record as parsed from a CSV or spreadsheet: original-case
// string keys, string values.
type Row map[string]string

// Key normalizes a column name for comparison: trim, lowercase,
// spaces and hyphens to underscores.
func Key(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	return k
}

// Keys returns a copy of the row with every key normalized. When two
// source keys collapse onto the same normalized key, the one sorting
// last wins, so the outcome is the same on every run.
func Keys(raw Row) Row {
	sourceKeys := make([]string, 0, len(raw))
	for k := range raw {
		sourceKeys = append(sourceKeys, k)
	}
	sort.Strings(sourceKeys)

	out := make(Row, len(raw))
	for _, k := range sourceKeys {
		out[Key(k)] = raw[k]
	}
	return out
}

// FieldRule binds one canonical field to the ordered candidate
// substrings that identify it in a normalized header. The rule tables
// below are the single source of truth for the matching heuristic;
// change them here, not inline.
type FieldRule struct {
	Field      string
	Candidates []string
	// Exact restricts matching to whole normalized keys. Ids must
	// never be guessed from a substring: "id" occurs inside harmless
	// headers like paid_at or service_id, and a wrongly adopted
	// "explicit" id collapses distinct rows on load.
	Exact bool
}

var customerRules = []FieldRule{
	{"id", []string{"customer_id", "id"}, true},
	{"name", []string{"full_name", "name", "nombre", "customer", "cliente"}, false},
	{"email", []string{"email", "correo"}, false},
	{"phone", []string{"phone", "telefono", "tel"}, false},
	{"status", []string{"status", "estado"}, false},
}

var appointmentRules = []FieldRule{
	{"id", []string{"appointment_id", "appointmentid", "booking_id", "bookingid", "id"}, true},
	{"customer_name", []string{"customer_name", "customer", "cliente", "name", "nombre"}, false},
	{"customer_email", []string{"email", "correo"}, false},
	{"service_name", []string{"service", "servicio"}, false},
	{"starts_at", []string{"start", "fecha", "date", "hora"}, false},
	{"status", []string{"status", "estado"}, false},
}

var paymentRules = []FieldRule{
	{"id", []string{"payment_id", "id"}, true},
	{"appointment_id", []string{"appointment_id", "appointmentid", "booking_id", "bookingid", "appointment"}, false},
	{"amount", []string{"amount", "price", "total", "monto"}, false},
	{"currency", []string{"currency", "moneda"}, false},
	{"status", []string{"payment_status", "status", "estado"}, false},
	{"method", []string{"method", "metodo"}, false},
	{"paid_at", []string{"paid_at", "payment_date", "date", "fecha"}, false},
}

var leadRules = []FieldRule{
	{"id", []string{"lead_id", "id"}, true},
	{"name", []string{"name", "nombre", "cliente"}, false},
	{"email", []string{"email", "correo"}, false},
	{"phone", []string{"phone", "telefono", "tel"}, false},
}

// Pick returns the value of the first normalized key containing any of
// the candidate substrings, in candidate order. Keys are scanned in
// sorted order so ties resolve the same way on every run. Missing
// field -> "".
func Pick(norm Row, candidates []string) string {
	keys := make([]string, 0, len(norm))
	for k := range norm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, c := range candidates {
		// exact key beats substring scan
		if v, ok := norm[c]; ok {
			return v
		}
		for _, k := range keys {
			if strings.Contains(k, c) {
				return norm[k]
			}
		}
	}
	return ""
}

// PickExact returns the value of the first candidate present as a
// whole normalized key. Missing field -> "".
func PickExact(norm Row, candidates []string) string {
	for _, c := range candidates {
		if v, ok := norm[c]; ok {
			return v
		}
	}
	return ""
}

func apply(norm Row, rules []FieldRule) map[string]any {
	out := make(map[string]any, len(rules)+1)
	for _, rule := range rules {
		var v string
		if rule.Exact {
			v = strings.TrimSpace(PickExact(norm, rule.Candidates))
		} else {
			v = strings.TrimSpace(Pick(norm, rule.Candidates))
		}
		if v == "" {
			out[rule.Field] = nil
			continue
		}
		out[rule.Field] = v
	}
	out["raw"] = norm
	return out
}

// Customer builds a canonical customer record from a raw export row.
// Fields with no matching header are nil, never an error.
func Customer(raw Row) map[string]any {
	rec := apply(Keys(raw), customerRules)
	if rec["status"] == nil {
		rec["status"] = "active"
	}
	return rec
}

// Appointment builds a canonical appointment record from a raw export
// row. The start date is normalized; unparseable input degrades to nil.
func Appointment(raw Row) map[string]any {
	rec := apply(Keys(raw), appointmentRules)
	rec["starts_at"] = normalizeDateField(rec["starts_at"])
	return rec
}

// Payment builds a canonical payment record from a raw export row.
// The amount is coerced only when it looks like a plain decimal.
func Payment(raw Row) map[string]any {
	rec := apply(Keys(raw), paymentRules)
	rec["paid_at"] = normalizeDateField(rec["paid_at"])
	if s, ok := rec["amount"].(string); ok {
		if f, ok := Decimal(s); ok {
			rec["amount"] = f
		} else {
			rec["amount"] = nil
		}
	}
	if rec["currency"] == nil {
		rec["currency"] = "CLP"
	}
	return rec
}

// Lead builds a canonical lead record from a normalized spreadsheet
// row. The source tag identifies the origin pipeline.
func Lead(raw Row, source string) map[string]any {
	rec := apply(Keys(raw), leadRules)
	rec["source"] = source
	return rec
}

func normalizeDateField(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	parsed, ok := ParseDate(s)
	if !ok {
		slog.Warn("unparseable date, storing null", "value", s)
		return nil
	}
	return parsed
}

// dateLayouts is the fixed ordered list of accepted input formats.
// Day-first variants come first because that is what the plugin's
// Spanish-locale exports produce.
var dateLayouts = []string{
	"02/01/2006 15:04",
	"02-01-2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// ParseDate parses a source date against the accepted layouts and
// returns it in the single normalized storage format
// "2006-01-02 15:04:05". Empty, "-" or unrecognized input reports
// ok=false; callers store null rather than failing the batch.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Format("2006-01-02 15:04:05"), true
		}
	}
	return "", false
}

var decimalRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Decimal coerces a value to a float only when it matches a simple
// decimal pattern. Currency symbols, thousands separators and the like
// report ok=false so the field degrades to null instead of a bad parse.
func Decimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimalRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
