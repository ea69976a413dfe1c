package validate

import "time"

// Timestamp layouts seen in the wild. Git's %ai emits "+0000" style offsets
// while hand-edited documents and ISO tooling use "+00:00"; both must parse.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
}

// ParseTimestamp normalizes the offset notation variants at the parsing
// boundary and returns the instant in UTC. Layouts without an offset are
// taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
