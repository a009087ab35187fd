// Package challenge implements the time-boxed challenge engine: catalog-driven
// generation per category cycle, per-type progress tracking, claim rules with
// redemption windows and anti-abuse limits, and the expiration sweep.
//
// Each challenge is a small state machine:
//
//	Active → Completed → Claimed   (terminal, success)
//	Active | Completed → Expired   (terminal, failure)
//
// No transition ever leaves Claimed or Expired.
package challenge

import (
	"fmt"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// Category groups challenges by their cycle length.
type Category string

const (
	CategoryDaily   Category = "daily"
	CategoryWeekly  Category = "weekly"
	CategoryMonthly Category = "monthly"
	CategorySpecial Category = "special"
)

// Categories lists all categories in generation order.
func Categories() []Category {
	return []Category{CategoryDaily, CategoryWeekly, CategoryMonthly, CategorySpecial}
}

// IsValid checks the category value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryDaily, CategoryWeekly, CategoryMonthly, CategorySpecial:
		return true
	}
	return false
}

// Type determines how a challenge's progress is computed.
type Type string

const (
	TypeRoutineCount Type = "routine_count"
	TypeTotalMinutes Type = "total_minutes"
	TypeDailyMinutes Type = "daily_minutes"
	TypeAreaVariety  Type = "area_variety"
	TypeSpecificArea Type = "specific_area"
	TypeTimeOfDay    Type = "time_of_day"
	TypeWeekendDays  Type = "weekend_days"
	TypeStreak       Type = "streak"
)

// IsValid checks the type value.
func (t Type) IsValid() bool {
	switch t {
	case TypeRoutineCount, TypeTotalMinutes, TypeDailyMinutes, TypeAreaVariety,
		TypeSpecificArea, TypeTimeOfDay, TypeWeekendDays, TypeStreak:
		return true
	}
	return false
}

// Status is the lifecycle state of a challenge.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusClaimed   Status = "claimed"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusClaimed || s == StatusExpired
}

// Challenge is one generated challenge instance owned by the UserProgress
// aggregate. Title and Description are display data the engine carries but
// never interprets.
type Challenge struct {
	ID          string   `json:"id"`
	TemplateID  string   `json:"templateId"`
	Type        Type     `json:"type"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`

	Requirement int  `json:"requirement"`
	Progress    int  `json:"progress"`
	Completed   bool `json:"completed"`
	Claimed     bool `json:"claimed"`

	Status    Status    `json:"status"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
	DateClaimed   *time.Time `json:"dateClaimed,omitempty"`

	XP int `json:"xp"`

	// Area pins specific_area challenges to one body area.
	Area shared.Area `json:"area,omitempty"`

	// StartHour/EndHour bound time_of_day challenges to [StartHour, EndHour).
	StartHour int `json:"startHour,omitempty"`
	EndHour   int `json:"endHour,omitempty"`

	// ExpiryWarning is a UI hint set when the challenge enters the last
	// quarter of its lifetime while still unresolved.
	ExpiryWarning bool `json:"expiryWarning,omitempty"`
}

// IsActive reports whether the challenge still accumulates progress.
func (c *Challenge) IsActive() bool {
	return c.Status == StatusActive
}

// IsClaimable reports whether the challenge is completed but not yet claimed
// or expired. The redemption window is checked separately at claim time.
func (c *Challenge) IsClaimable() bool {
	return c.Status == StatusCompleted && !c.Claimed
}

// ClaimDetails renders the "category:type:id" detail string recorded in the
// XP history on a claim, so history entries stay self-describing.
func (c *Challenge) ClaimDetails() string {
	return fmt.Sprintf("%s:%s:%s", c.Category, c.Type, c.ID)
}

// SetProgress clamps and records progress, transitioning to Completed the
// first time the requirement is reached. Returns true on that first
// transition.
func (c *Challenge) SetProgress(value int, now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if value < 0 {
		value = 0
	}
	if value > c.Requirement {
		value = c.Requirement
	}
	c.Progress = value

	if c.Progress >= c.Requirement && !c.Completed {
		c.Completed = true
		c.Status = StatusCompleted
		at := now
		c.DateCompleted = &at
		return true
	}
	return false
}

// ResetProgress zeroes progress on a still-active challenge. Used when a
// streak break invalidates streak-type progress.
func (c *Challenge) ResetProgress() {
	if c.Status == StatusActive {
		c.Progress = 0
	}
}

// MarkClaimed records a successful claim.
func (c *Challenge) MarkClaimed(now time.Time) error {
	if c.Claimed || c.Status == StatusClaimed {
		return shared.ErrAlreadyClaimed
	}
	if c.Status != StatusCompleted {
		return shared.NewDomainError("challenge", "MarkClaimed", shared.ErrStateTransition, "only completed challenges can be claimed")
	}
	c.Claimed = true
	c.Status = StatusClaimed
	at := now
	c.DateClaimed = &at
	return nil
}

// MarkExpired transitions the challenge to Expired. No-op on terminal states.
func (c *Challenge) MarkExpired() bool {
	if c.Status.IsTerminal() {
		return false
	}
	c.Status = StatusExpired
	return true
}

// RefreshExpiryWarning flips the ExpiryWarning hint once the challenge is in
// the final quarter of its window and still unresolved.
func (c *Challenge) RefreshExpiryWarning(now time.Time) {
	if c.Status.IsTerminal() || c.ExpiryWarning {
		return
	}
	lifetime := c.EndDate.Sub(c.StartDate)
	if lifetime <= 0 {
		return
	}
	remaining := c.EndDate.Sub(now)
	if remaining > 0 && remaining < lifetime/4 {
		c.ExpiryWarning = true
	}
}
