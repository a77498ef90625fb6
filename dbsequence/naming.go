package dbsequence

import "strings"

const (
	// Prefix namespaces every store object managed by this package
	Prefix = "cs_"
	// MaxIdentifierLength is the PostgreSQL identifier limit in bytes
	MaxIdentifierLength = 63
	// maxPartLength caps the table and attribute parts so both stay visible
	maxPartLength = 30
)

// SequenceName derives the store object name for a table attribute. It is deterministic:
// every process computes the same name for the same pair.
func SequenceName(table, attribute string) string {
	name := Prefix + sanitize(table, maxPartLength) + "_" + sanitize(attribute, maxPartLength)
	if len(name) > MaxIdentifierLength {
		name = name[:MaxIdentifierLength]
	}
	return name
}

// sanitize cuts s to limit characters and replaces every character outside
// [A-Za-z0-9_] with '_', so the result is ASCII
func sanitize(s string, limit int) string {
	var b strings.Builder
	b.Grow(min(len(s), limit))
	n := 0
	for _, r := range s {
		if n == limit {
			break
		}
		n++
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
