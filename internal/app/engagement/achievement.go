package engagement

import (
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// AchievementService manages the one-shot achievement set.
// Threshold achievements unlock on an XP sweep; action achievements are
// unlocked explicitly by their triggering interaction; claim achievements
// need an explicit claim once their counter requirement is met.
type AchievementService struct {
	db          *sqlite.DB
	definitions []domain.AchievementDef
	byID        map[string]domain.AchievementDef
}

// NewAchievementService creates an achievement service with all definitions.
func NewAchievementService(db *sqlite.DB) *AchievementService {
	defs := AllAchievements()
	byID := make(map[string]domain.AchievementDef, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return &AchievementService{db: db, definitions: defs, byID: byID}
}

// Sweep unlocks every threshold achievement whose XPThreshold the total
// has reached. Returns newly unlocked definitions; already-unlocked are
// skipped, so sweeping repeatedly is idempotent.
func (a *AchievementService) Sweep(currentXP int64, now time.Time) ([]domain.AchievementDef, error) {
	var newlyUnlocked []domain.AchievementDef

	for _, def := range a.definitions {
		if def.Kind != domain.KindThreshold || currentXP < def.XPThreshold {
			continue
		}
		isNew, err := a.db.UnlockAchievement(def.ID, now)
		if err != nil {
			return nil, err
		}
		if isNew {
			newlyUnlocked = append(newlyUnlocked, def)
		}
	}
	return newlyUnlocked, nil
}

// Unlock unlocks an achievement by ID. Returns the definition and
// whether this call actually unlocked it.
func (a *AchievementService) Unlock(id string, now time.Time) (domain.AchievementDef, bool, error) {
	def, ok := a.byID[id]
	if !ok {
		return domain.AchievementDef{}, false, domain.ErrAchievementUnknown
	}
	isNew, err := a.db.UnlockAchievement(id, now)
	if err != nil {
		return def, false, err
	}
	return def, isNew, nil
}

// Claim unlocks a claim-kind achievement once its counter requirement is
// met. The caller supplies the relevant counter value and awards the
// definition's RewardXP when the claim succeeds.
func (a *AchievementService) Claim(id string, counter int64, now time.Time) (domain.AchievementDef, error) {
	def, ok := a.byID[id]
	if !ok {
		return domain.AchievementDef{}, domain.ErrAchievementUnknown
	}
	if def.Kind != domain.KindClaim {
		return def, domain.ErrNotClaimable
	}
	if counter < def.ClaimThreshold {
		return def, domain.ErrClaimRequirement
	}
	isNew, err := a.db.UnlockAchievement(id, now)
	if err != nil {
		return def, err
	}
	if !isNew {
		return def, domain.ErrAlreadyClaimed
	}
	return def, nil
}

// Get returns the definition for an ID.
func (a *AchievementService) Get(id string) (domain.AchievementDef, bool) {
	def, ok := a.byID[id]
	return def, ok
}

// IsUnlocked reports whether the achievement is unlocked.
func (a *AchievementService) IsUnlocked(id string) (bool, error) {
	return a.db.IsAchievementUnlocked(id)
}

// ListUnlocked returns all earned achievements, oldest first.
func (a *AchievementService) ListUnlocked() ([]domain.UnlockedAchievement, error) {
	return a.db.ListUnlockedAchievements()
}

// UnlockedCount returns how many achievements are unlocked.
func (a *AchievementService) UnlockedCount() (int, error) {
	return a.db.UnlockedAchievementCount()
}

// Definitions returns all achievement definitions in display order.
func (a *AchievementService) Definitions() []domain.AchievementDef {
	return a.definitions
}

// ─── Achievement Definitions ────────────────────────────────────────────────

// DailyVisitorStreak is the consecutive-day requirement for daily_visitor.
const DailyVisitorStreak = 7

// AllAchievements returns the full achievement catalog.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// XP milestones
		{
			ID: "first_100", Title: "Getting Started", Kind: domain.KindThreshold,
			Description: "Earned your first 100 XP!", Icon: "star", XPThreshold: 100,
		},
		{
			ID: "first_500", Title: "Code Hunter", Kind: domain.KindThreshold,
			Description: "Reached 500 XP milestone!", Icon: "search", XPThreshold: 500,
		},
		{
			ID: "first_1000", Title: "Dedicated User", Kind: domain.KindThreshold,
			Description: "Achieved 1,000 XP!", Icon: "medal", XPThreshold: 1000,
		},
		{
			ID: "first_5000", Title: "XP Master", Kind: domain.KindThreshold,
			Description: "Incredible milestone at 5,000 XP!", Icon: "crown", XPThreshold: 5000,
		},

		// Interaction milestones
		{
			ID: "code_collector", Title: "Code Collector", Kind: domain.KindAction,
			Description: "Copied your first code!", Icon: "clipboard",
		},
		{
			ID: "game_explorer", Title: "Game Explorer", Kind: domain.KindAction,
			Description: "Explored all three games!", Icon: "gamepad",
		},
		{
			ID: "daily_visitor", Title: "Daily Visitor", Kind: domain.KindAction,
			Description: "Visited for 7 consecutive days!", Icon: "calendar-check",
		},
		{
			ID: "social_supporter", Title: "Social Supporter", Kind: domain.KindAction,
			Description: "Clicked on an advertisement!", Icon: "heart",
		},

		// Social platform memberships, unlocked by verification
		{
			ID: "telegram_member", Title: "Telegram Member", Kind: domain.KindAction,
			Description: "Join our Telegram group and get 50 XP!", Icon: "telegram", RewardXP: 50,
		},
		{
			ID: "youtube_subscriber", Title: "YouTube Subscriber", Kind: domain.KindAction,
			Description: "Subscribe to our YouTube channel and get 50 XP!", Icon: "youtube", RewardXP: 50,
		},
		{
			ID: "hoyolab_follower", Title: "HoYoLAB Follower", Kind: domain.KindAction,
			Description: "Follow us on HoYoLAB and get 45 XP!", Icon: "globe", RewardXP: 45,
		},

		// Claimable grind
		{
			ID: "ad_clicker", Title: "Ad Clicker", Kind: domain.KindClaim,
			Description: "Click on 200 ads and get 500 XP!", Icon: "mouse-pointer",
			ClaimThreshold: 200, RewardXP: 500,
		},
	}
}
