package postgres

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// toPgText converts an optional string to pgtype.Text.
// nil and blank values become NULL.
func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: v, Valid: true}
}

// fromPgText is the inverse of toPgText.
func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// toPgUUID parses s. ok is false for anything that is not a UUID, which
// callers treat as an unknown id.
func toPgUUID(s string) (u pgtype.UUID, ok bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return pgtype.UUID{Valid: false}, false
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, true
}

// newPgUUID returns a fresh random id.
func newPgUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

// uuidToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
