// Package identity derives stable identifiers for records whose source
// data carries none. The id is a SHA-1 over the record's composite
// natural key, so re-ingesting the same source row on a later run maps
// onto the same destination row.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// HexWidth is the hex-prefix length used for generated booking ids.
// Truncation trades collision resistance for brevity; at this domain's
// cardinality (thousands of rows) 64 bits of prefix is plenty.
// Lead ids imported from spreadsheets keep the full digest.
const HexWidth = 16

// Delimiter joins composite-key parts before hashing. Fixed forever:
// changing it changes every generated id.
const Delimiter = "|"

// Hash returns the full hex SHA-1 digest of the composite key parts
// joined in order. Missing parts must be passed as empty strings so
// the same logical key always produces the same digest.
func Hash(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, Delimiter)))
	return hex.EncodeToString(sum[:])
}

// Short returns the HexWidth-character prefix of Hash.
func Short(parts ...string) string {
	return Hash(parts...)[:HexWidth]
}

// Ensure fills rec["id"] when the source provided none. An explicit id
// always wins and is kept verbatim as a string; hashing only fills
// gaps. keyFields are read from rec in order, nil and absent values
// contribute empty strings. full selects the untruncated digest.
func Ensure(rec map[string]any, keyFields []string, full bool) {
	if id, ok := rec["id"]; ok && id != nil {
		if s := strings.TrimSpace(fmt.Sprintf("%v", id)); s != "" {
			rec["id"] = s
			return
		}
	}

	parts := make([]string, len(keyFields))
	for i, f := range keyFields {
		v, ok := rec[f]
		if !ok || v == nil {
			continue
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	if full {
		rec["id"] = Hash(parts...)
		return
	}
	rec["id"] = Short(parts...)
}
