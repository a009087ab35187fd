package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. The UI layer subscribes to these; emission is
// fire-and-forget and best-effort ordered.
const (
	// Progress events
	EventXPUpdated EventType = "progress.xp_updated"
	EventLevelUp   EventType = "progress.level_up"

	// Streak events
	EventStreakUpdated EventType = "streak.updated"
	EventStreakBroken  EventType = "streak.broken"
	EventStreakSaved   EventType = "streak.saved"

	// Achievement events
	EventAchievementCompleted EventType = "achievement.completed"

	// Challenge events
	EventChallengeCompleted EventType = "challenge.completed"
	EventChallengeClaimed   EventType = "challenge.claimed"
	EventChallengeExpired   EventType = "challenge.expired"
	EventChallengeGenerated EventType = "challenge.generated"

	// Reward events
	EventRewardUnlocked EventType = "reward.unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// Payload returns the event data as a map for serialization.
	Payload() map[string]any
}

// EventHandler processes a domain event. Handlers must not block for long;
// the bus may run them on a bounded worker pool.
type EventHandler func(event Event)

// EventBus publishes domain events to subscribers.
type EventBus interface {
	// Publish delivers the event to all matching subscribers.
	Publish(event Event)

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType implements Event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a new base event stamped at the given time.
func NewBaseEvent(eventType EventType, at time.Time) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: at}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPUpdatedEvent is emitted whenever XP is applied to the balance.
type XPUpdatedEvent struct {
	BaseEvent
	Amount  int    `json:"amount"`
	TotalXP int    `json:"total_xp"`
	Source  string `json:"source"`
	Details string `json:"details,omitempty"`
}

// Payload implements Event.
func (e XPUpdatedEvent) Payload() map[string]any {
	return map[string]any{
		"amount":   e.Amount,
		"total_xp": e.TotalXP,
		"source":   e.Source,
		"details":  e.Details,
	}
}

// LevelUpEvent is emitted when the computed level increases.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
	TotalXP  int `json:"total_xp"`
}

// Payload implements Event.
func (e LevelUpEvent) Payload() map[string]any {
	return map[string]any{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when the current streak length changes.
type StreakUpdatedEvent struct {
	BaseEvent
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
}

// Payload implements Event.
func (e StreakUpdatedEvent) Payload() map[string]any {
	return map[string]any{
		"current_streak": e.CurrentStreak,
		"best_streak":    e.BestStreak,
	}
}

// StreakBrokenEvent is emitted when a streak resets without a flex save.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements Event.
func (e StreakBrokenEvent) Payload() map[string]any {
	return map[string]any{"previous_streak": e.PreviousStreak}
}

// StreakSavedEvent is emitted when a flex save absorbs a streak break.
type StreakSavedEvent struct {
	BaseEvent
	PreservedStreak    int `json:"preserved_streak"`
	FlexSavesRemaining int `json:"flex_saves_remaining"`
}

// Payload implements Event.
func (e StreakSavedEvent) Payload() map[string]any {
	return map[string]any{
		"preserved_streak":     e.PreservedStreak,
		"flex_saves_remaining": e.FlexSavesRemaining,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement / Challenge / Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementCompletedEvent is emitted exactly once per achievement.
type AchievementCompletedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	XPEarned      int    `json:"xp_earned"`
}

// Payload implements Event.
func (e AchievementCompletedEvent) Payload() map[string]any {
	return map[string]any{
		"achievement_id": e.AchievementID,
		"title":          e.Title,
		"xp_earned":      e.XPEarned,
	}
}

// ChallengeCompletedEvent is emitted when a challenge first reaches its
// requirement. XP is not granted until the challenge is claimed.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	Category    string `json:"category"`
	XPValue     int    `json:"xp_value"`
}

// Payload implements Event.
func (e ChallengeCompletedEvent) Payload() map[string]any {
	return map[string]any{
		"challenge_id": e.ChallengeID,
		"category":     e.Category,
		"xp_value":     e.XPValue,
	}
}

// ChallengeClaimedEvent is emitted on a successful claim.
type ChallengeClaimedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	Category    string `json:"category"`
	XPEarned    int    `json:"xp_earned"`
	LateClaim   bool   `json:"late_claim"`
}

// Payload implements Event.
func (e ChallengeClaimedEvent) Payload() map[string]any {
	return map[string]any{
		"challenge_id": e.ChallengeID,
		"category":     e.Category,
		"xp_earned":    e.XPEarned,
		"late_claim":   e.LateClaim,
	}
}

// ChallengeExpiredEvent is emitted when a sweep expires a challenge.
type ChallengeExpiredEvent struct {
	BaseEvent
	ChallengeID  string `json:"challenge_id"`
	Category     string `json:"category"`
	WasCompleted bool   `json:"was_completed"`
}

// Payload implements Event.
func (e ChallengeExpiredEvent) Payload() map[string]any {
	return map[string]any{
		"challenge_id":  e.ChallengeID,
		"category":      e.Category,
		"was_completed": e.WasCompleted,
	}
}

// ChallengeGeneratedEvent is emitted when a cycle rollover creates a new
// challenge.
type ChallengeGeneratedEvent struct {
	BaseEvent
	ChallengeID string `json:"challenge_id"`
	Category    string `json:"category"`
	Title       string `json:"title"`
}

// Payload implements Event.
func (e ChallengeGeneratedEvent) Payload() map[string]any {
	return map[string]any{
		"challenge_id": e.ChallengeID,
		"category":     e.Category,
		"title":        e.Title,
	}
}

// RewardUnlockedEvent is emitted when a level-up unlocks a reward.
type RewardUnlockedEvent struct {
	BaseEvent
	RewardID    string `json:"reward_id"`
	UnlockLevel int    `json:"unlock_level"`
}

// Payload implements Event.
func (e RewardUnlockedEvent) Payload() map[string]any {
	return map[string]any{
		"reward_id":    e.RewardID,
		"unlock_level": e.UnlockLevel,
	}
}
