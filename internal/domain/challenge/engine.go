package challenge

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// Config carries the tunable rules of the challenge engine. Every figure here
// is tunable per deployment; DefaultConfig holds the production values.
type Config struct {
	// PopulationTargets is the number of live challenges kept per category.
	PopulationTargets map[Category]int

	// RedemptionPeriods is how long after completion a claim is accepted.
	RedemptionPeriods map[Category]time.Duration

	// CooldownPeriods is how long an expired challenge blocks its slot
	// before removal and regeneration.
	CooldownPeriods map[Category]time.Duration

	// SpecialDuration is the lifetime of a special challenge.
	SpecialDuration time.Duration

	// RecentExclusion is how many recently used template ids per category
	// are excluded from new draws.
	RecentExclusion map[Category]int

	// MaxDailyClaims caps successful challenge claims per rolling 24h.
	MaxDailyClaims int

	// MaxDailyClaimXP caps challenge XP earned per rolling 24h.
	MaxDailyClaimXP int

	// LateStreakClaimFactor scales XP for streak claims outside the
	// redemption window. This grace path is a deliberate asymmetry for
	// streak challenges only.
	LateStreakClaimFactor float64
}

// DefaultConfig returns the production rule set.
func DefaultConfig() Config {
	return Config{
		PopulationTargets: map[Category]int{
			CategoryDaily:   2,
			CategoryWeekly:  2,
			CategoryMonthly: 2,
			CategorySpecial: 1,
		},
		RedemptionPeriods: map[Category]time.Duration{
			CategoryDaily:   12 * time.Hour,
			CategoryWeekly:  48 * time.Hour,
			CategoryMonthly: 72 * time.Hour,
			CategorySpecial: 48 * time.Hour,
		},
		CooldownPeriods: map[Category]time.Duration{
			CategoryDaily:   24 * time.Hour,
			CategoryWeekly:  3 * 24 * time.Hour,
			CategoryMonthly: 7 * 24 * time.Hour,
			CategorySpecial: 3 * 24 * time.Hour,
		},
		SpecialDuration: 14 * 24 * time.Hour,
		RecentExclusion: map[Category]int{
			CategoryDaily:  3,
			CategoryWeekly: 2,
		},
		MaxDailyClaims:        3,
		MaxDailyClaimXP:       150,
		LateStreakClaimFactor: 0.5,
	}
}

// Engine owns the challenge rule set, the template pool, and the per-process
// draw history. It is constructed once per engine instance rather than held
// in package globals so tests stay hermetic.
type Engine struct {
	cfg   Config
	cal   *timeutil.Calendar
	rng   *rand.Rand
	pools map[Category][]Template

	// recent tracks the last template ids drawn per category to reduce
	// repetition across cycles.
	recent map[Category][]string
}

// NewEngine creates a challenge engine over the given template pool.
// A nil rng seeds from the clock.
func NewEngine(cfg Config, cal *timeutil.Calendar, pool []Template, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		cfg:    cfg,
		cal:    cal,
		rng:    rng,
		pools:  poolByCategory(pool),
		recent: make(map[Category][]string),
	}
}

// Config returns the engine's rule set.
func (e *Engine) Config() Config { return e.cfg }

// cycleEnd returns the end of the category cycle containing t.
func (e *Engine) cycleEnd(cat Category, t time.Time) time.Time {
	switch cat {
	case CategoryDaily:
		return e.cal.EndOfDay(t)
	case CategoryWeekly:
		return e.cal.EndOfWeek(t)
	case CategoryMonthly:
		return e.cal.EndOfMonth(t)
	default:
		return t.Add(e.cfg.SpecialDuration)
	}
}

// redemptionDeadline returns the last instant a completed challenge can be
// claimed at full XP.
func (e *Engine) redemptionDeadline(c *Challenge) time.Time {
	if c.DateCompleted == nil {
		return c.EndDate.Add(e.cfg.RedemptionPeriods[c.Category])
	}
	return c.DateCompleted.Add(e.cfg.RedemptionPeriods[c.Category])
}

// Sweep runs the expiration pass and must be called before any progress or
// claim operation. Active challenges past their end date expire; completed
// unclaimed challenges past their redemption deadline expire, except
// streak-type ones, which stay claimable (at reduced XP) until their end date
// plus redemption period. Returns the challenges expired by this pass.
func (e *Engine) Sweep(challenges map[string]*Challenge, now time.Time) []*Challenge {
	var expired []*Challenge
	for _, c := range challenges {
		switch c.Status {
		case StatusActive:
			if now.After(c.EndDate) {
				if c.MarkExpired() {
					expired = append(expired, c)
				}
			} else {
				c.RefreshExpiryWarning(now)
			}
		case StatusCompleted:
			deadline := e.redemptionDeadline(c)
			if c.Type == TypeStreak {
				// Late streak claims are still honored; only give up
				// once the whole cycle plus the window is behind us.
				deadline = c.EndDate.Add(e.cfg.RedemptionPeriods[c.Category])
			}
			if now.After(deadline) {
				if c.MarkExpired() {
					expired = append(expired, c)
				}
			}
		}
	}
	return expired
}

// RemoveStale deletes challenges whose slot is free again: claimed ones whose
// cycle has ended, and expired ones past their category cooldown. The
// cooldown keeps a just-expired slot vacant so the same cycle cannot
// immediately re-offer it.
func (e *Engine) RemoveStale(challenges map[string]*Challenge, now time.Time) []string {
	var removed []string
	for id, c := range challenges {
		switch c.Status {
		case StatusClaimed:
			if now.After(c.EndDate) {
				removed = append(removed, id)
			}
		case StatusExpired:
			if now.After(c.EndDate.Add(e.cfg.CooldownPeriods[c.Category])) {
				removed = append(removed, id)
			}
		}
	}
	for _, id := range removed {
		delete(challenges, id)
	}
	return removed
}

// EnsurePopulation tops categories up to their population target, but only
// for categories whose cycle has rolled over since the last check. A merely
// empty slot mid-cycle never triggers generation; that is what prevents
// challenge churn. lastChecks is mutated with the check time per category.
// Returns the newly generated challenges.
func (e *Engine) EnsurePopulation(
	challenges map[string]*Challenge,
	lastChecks map[Category]time.Time,
	now time.Time,
) []*Challenge {
	var generated []*Challenge

	for _, cat := range Categories() {
		last, checked := lastChecks[cat]
		if checked && !now.After(e.cycleEnd(cat, last)) {
			// Still inside the cycle we last checked.
			continue
		}
		lastChecks[cat] = now

		target := e.cfg.PopulationTargets[cat]
		live := e.countLive(challenges, cat, now)
		for live < target {
			c := e.draw(challenges, cat, now)
			if c == nil {
				break // pool exhausted for this category
			}
			challenges[c.ID] = c
			generated = append(generated, c)
			live++
		}
	}
	return generated
}

// countLive counts challenges occupying a slot: anything not yet removable,
// including expired ones still inside their cooldown.
func (e *Engine) countLive(challenges map[string]*Challenge, cat Category, now time.Time) int {
	n := 0
	for _, c := range challenges {
		if c.Category != cat {
			continue
		}
		if c.Status == StatusExpired && now.After(c.EndDate.Add(e.cfg.CooldownPeriods[cat])) {
			continue
		}
		n++
	}
	return n
}

// draw picks a random template for the category, excluding recently used ids
// and templates already instantiated, and stamps an instance.
func (e *Engine) draw(challenges map[string]*Challenge, cat Category, now time.Time) *Challenge {
	inUse := make(map[string]bool)
	for _, c := range challenges {
		inUse[c.TemplateID] = true
	}
	excluded := make(map[string]bool)
	for _, id := range e.recent[cat] {
		excluded[id] = true
	}

	var candidates []Template
	for _, t := range e.pools[cat] {
		if !inUse[t.ID] && !excluded[t.ID] {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		// Relax the recency exclusion rather than starving the slot.
		for _, t := range e.pools[cat] {
			if !inUse[t.ID] {
				candidates = append(candidates, t)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	tpl := candidates[e.rng.Intn(len(candidates))]
	e.recordDraw(cat, tpl.ID)

	return &Challenge{
		ID:          uuid.NewString(),
		TemplateID:  tpl.ID,
		Type:        Type(tpl.Type),
		Category:    cat,
		Title:       tpl.Title,
		Description: tpl.Description,
		Requirement: tpl.Requirement,
		Status:      StatusActive,
		StartDate:   now,
		EndDate:     e.cycleEnd(cat, now),
		XP:          tpl.XP,
		Area:        shared.NormalizeArea(tpl.Area),
		StartHour:   tpl.StartHour,
		EndHour:     tpl.EndHour,
	}
}

// recordDraw appends to the per-category recency window.
func (e *Engine) recordDraw(cat Category, templateID string) {
	limit := e.cfg.RecentExclusion[cat]
	if limit <= 0 {
		return
	}
	e.recent[cat] = append(e.recent[cat], templateID)
	if len(e.recent[cat]) > limit {
		e.recent[cat] = e.recent[cat][len(e.recent[cat])-limit:]
	}
}
