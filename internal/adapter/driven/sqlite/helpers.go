package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// timeFormat is the canonical stored timestamp format: UTC, millisecond
// precision, fixed width. Fixed width keeps lexicographic comparison and
// SQLite's date functions both correct on the stored strings.
const timeFormat = "2006-01-02T15:04:05.000Z"

// fmtTime renders a timestamp in the canonical stored format.
func fmtTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// fmtNullTime renders an optional timestamp, mapping nil to NULL.
func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

// parseTime tries the canonical format first, then other SQLite datetime
// spellings.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeFormat,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

// parseNullTime converts a nullable stored timestamp.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullableString maps nil to NULL.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullableInt maps nil to NULL.
func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

// boolToInt stores booleans as 0/1.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
