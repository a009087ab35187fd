// Package routine holds the routine-completion record consumed by the
// progression engine. Records are append-only: the engine reads the log to
// derive streaks and statistics but never mutates past entries.
package routine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// Record is a single completed stretch routine.
type Record struct {
	// ID is a unique identifier for the record.
	ID string `json:"id"`

	// Area is the body area the routine targeted.
	Area shared.Area `json:"area"`

	// DurationMinutes is the routine length in whole minutes.
	DurationMinutes Minutes `json:"duration"`

	// CompletedAt is when the routine finished.
	CompletedAt time.Time `json:"completed_at"`
}

// NewRecord creates a validated routine record.
func NewRecord(area string, durationMinutes int, completedAt time.Time) (*Record, error) {
	a := shared.NormalizeArea(area)
	if !a.IsValid() {
		return nil, shared.NewDomainError("routine", "NewRecord", shared.ErrEmptyValue, "area is required")
	}
	if durationMinutes <= 0 {
		return nil, shared.NewDomainError("routine", "NewRecord", shared.ErrNegativeValue, "duration must be positive")
	}
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	return &Record{
		ID:              uuid.NewString(),
		Area:            a,
		DurationMinutes: Minutes(durationMinutes),
		CompletedAt:     completedAt,
	}, nil
}

// Validate checks record invariants.
func (r *Record) Validate() error {
	if r.ID == "" {
		return shared.NewDomainError("routine", "Validate", shared.ErrEmptyValue, "id is required")
	}
	if !r.Area.IsValid() {
		return shared.NewDomainError("routine", "Validate", shared.ErrEmptyValue, "area is required")
	}
	if r.DurationMinutes <= 0 {
		return shared.NewDomainError("routine", "Validate", shared.ErrNegativeValue, "duration must be positive")
	}
	return nil
}

// Minutes is a duration in whole minutes. Upstream clients historically send
// it either as a JSON number or as a string ("10" or "10 min"), so it accepts
// both on the wire.
type Minutes int

// Int returns the underlying int value.
func (m Minutes) Int() int { return int(m) }

// UnmarshalJSON accepts numbers, numeric strings, and "<n> min" strings.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*m = Minutes(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return shared.NewDomainError("routine", "UnmarshalJSON", shared.ErrInvalidInput, "duration must be a number or string")
	}

	parsed, err := ParseMinutes(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMinutes parses a textual duration like "10", "10 min", or "10m".
func ParseMinutes(s string) (Minutes, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "minutes")
	s = strings.TrimSuffix(s, "mins")
	s = strings.TrimSuffix(s, "min")
	s = strings.TrimSuffix(s, "m")
	s = strings.TrimSpace(s)

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, shared.WrapError("routine", "ParseMinutes", shared.ErrInvalidInput, "unparseable duration", err)
	}
	return Minutes(n), nil
}
