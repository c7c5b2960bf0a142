// Package engagement implements the CodeForge engagement engine.
// XP ledger, achievements, the synthetic leaderboard, and simulated
// social verification. Services are thin wrappers over SQLite state;
// interaction guards live in ActivityService so the ledger itself
// stays a plain accumulator.
package engagement

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// LedgerService manages the XP ledger and the local profile.
// XP only ever increases; daily_xp_earned resets on the first award of
// each local calendar day.
type LedgerService struct {
	db *sqlite.DB
}

// NewLedgerService creates a ledger service.
func NewLedgerService(db *sqlite.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Snapshot loads the current ledger state.
func (l *LedgerService) Snapshot() (domain.LedgerSnapshot, error) {
	var snap domain.LedgerSnapshot
	var err error

	if snap.CurrentXP, err = l.getInt("current_xp"); err != nil {
		return snap, err
	}
	if snap.DailyXPEarned, err = l.getInt("daily_xp_earned"); err != nil {
		return snap, err
	}
	if snap.TotalVisits, err = l.getInt("total_visits"); err != nil {
		return snap, err
	}
	if snap.AdClickCount, err = l.getInt("ad_click_count"); err != nil {
		return snap, err
	}

	rank, err := l.getInt("current_rank")
	if err != nil {
		return snap, err
	}
	snap.CurrentRank = int(rank)

	streak, err := l.getInt("visit_streak")
	if err != nil {
		return snap, err
	}
	snap.VisitStreak = int(streak)

	if snap.LastXPDate, err = l.db.GetEngagement("last_xp_date"); err != nil {
		return snap, fmt.Errorf("get last_xp_date: %w", err)
	}
	return snap, nil
}

// AwardXP adds a positive XP amount and returns the new total.
// The first award of a new local day resets the daily counter first.
func (l *LedgerService) AwardXP(amount int64, now time.Time) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrNonPositiveXP
	}

	today := domain.DateOf(now)
	lastDate, err := l.db.GetEngagement("last_xp_date")
	if err != nil {
		return 0, fmt.Errorf("get last_xp_date: %w", err)
	}

	daily, err := l.getInt("daily_xp_earned")
	if err != nil {
		return 0, err
	}
	if lastDate != today {
		daily = 0
		if err := l.db.SetEngagement("last_xp_date", today); err != nil {
			return 0, fmt.Errorf("set last_xp_date: %w", err)
		}
	}

	total, err := l.getInt("current_xp")
	if err != nil {
		return 0, err
	}
	total += amount
	daily += amount

	if err := l.setInt("current_xp", total); err != nil {
		return 0, err
	}
	if err := l.setInt("daily_xp_earned", daily); err != nil {
		return 0, err
	}
	return total, nil
}

// CurrentXP returns the lifetime XP total.
func (l *LedgerService) CurrentXP() (int64, error) {
	return l.getInt("current_xp")
}

// RecordVisit bumps the visit counter at most once per local calendar
// day. Returns whether this call counted and the resulting streak.
// A missed day resets the streak to 1 with no penalty beyond that.
func (l *LedgerService) RecordVisit(now time.Time) (bool, int, error) {
	today := domain.DateOf(now)

	lastVisit, err := l.db.GetEngagement("last_visit_date")
	if err != nil {
		return false, 0, fmt.Errorf("get last_visit_date: %w", err)
	}

	streak64, err := l.getInt("visit_streak")
	if err != nil {
		return false, 0, err
	}
	streak := int(streak64)

	if lastVisit == today {
		return false, streak, nil
	}

	yesterday := domain.DateOf(now.AddDate(0, 0, -1))
	if lastVisit == yesterday {
		streak++
	} else {
		streak = 1
	}

	visits, err := l.getInt("total_visits")
	if err != nil {
		return false, 0, err
	}

	if err := l.db.SetEngagement("last_visit_date", today); err != nil {
		return false, 0, fmt.Errorf("set last_visit_date: %w", err)
	}
	if err := l.setInt("visit_streak", int64(streak)); err != nil {
		return false, 0, err
	}
	if err := l.setInt("total_visits", visits+1); err != nil {
		return false, 0, err
	}
	return true, streak, nil
}

// ─── Profile ────────────────────────────────────────────────────────────────

// Profile loads the local profile, minting a stable ID on first call.
func (l *LedgerService) Profile() (domain.Profile, error) {
	id, err := l.db.GetEngagement("profile_id")
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile_id: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
		if err := l.db.SetEngagement("profile_id", id); err != nil {
			return domain.Profile{}, fmt.Errorf("set profile_id: %w", err)
		}
	}

	name, err := l.db.GetEngagement("profile_name")
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile_name: %w", err)
	}
	if name == "" {
		name = domain.AnonymousName
	}
	return domain.Profile{ID: id, Name: name}, nil
}

// setName stores a validated display name. Guarded by ActivityService.
func (l *LedgerService) setName(name string) error {
	return l.db.SetEngagement("profile_name", name)
}

// ─── Counters ───────────────────────────────────────────────────────────────

// IncrementAdClicks bumps the lifetime ad-click counter and returns it.
func (l *LedgerService) IncrementAdClicks() (int64, error) {
	n, err := l.getInt("ad_click_count")
	if err != nil {
		return 0, err
	}
	n++
	if err := l.setInt("ad_click_count", n); err != nil {
		return 0, err
	}
	return n, nil
}

// AdClicks returns the lifetime ad-click counter.
func (l *LedgerService) AdClicks() (int64, error) {
	return l.getInt("ad_click_count")
}

func (l *LedgerService) getInt(key string) (int64, error) {
	v, err := l.db.GetEngagement(key)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func (l *LedgerService) setInt(key string, n int64) error {
	if err := l.db.SetEngagement(key, strconv.FormatInt(n, 10)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
