package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
)

// Column encodings: timestamps are RFC3339 UTC strings, civil dates are
// YYYY-MM-DD, times of day are HH:MM. Lexical order matches chronological
// order for all three, so range scans work on the raw columns.

func encodeTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp column %q: %w", value, err)
	}
	return t, nil
}

func encodeNullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTimestamp(*t), Valid: true}
}

func decodeNullTimestamp(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := decodeTimestamp(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeDate(d calendar.Date) string {
	return d.String()
}

func decodeDate(value string) (calendar.Date, error) {
	d, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("invalid date column %q: %w", value, err)
	}
	return d, nil
}

func encodeTimeOfDay(t calendar.TimeOfDay) string {
	return t.String()
}

func decodeTimeOfDay(value string) (calendar.TimeOfDay, error) {
	t, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		return calendar.TimeOfDay{}, fmt.Errorf("invalid time column %q: %w", value, err)
	}
	return t, nil
}

func encodeNullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func decodeNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
