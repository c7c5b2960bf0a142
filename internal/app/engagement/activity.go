package engagement

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/metrics"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// ActivityService is the guarded entry point for user interactions.
// Every XP-earning action routes through here so the anti-farming rules
// (once per code, once per vote, once per game per day, once per day)
// sit in one place and the ledger stays a plain accumulator.
type ActivityService struct {
	db           *sqlite.DB
	ledger       *LedgerService
	achievements *AchievementService
	rank         *RankService

	// rngMu guards rng; handlers roll awards concurrently.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewActivityService creates an activity service.
func NewActivityService(db *sqlite.DB, ledger *LedgerService, ach *AchievementService, rank *RankService) *ActivityService {
	return &ActivityService{
		db:           db,
		ledger:       ledger,
		achievements: ach,
		rank:         rank,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ActivityResult reports what one interaction earned.
type ActivityResult struct {
	AwardedXP int64                   `json:"awarded_xp"`
	TotalXP   int64                   `json:"total_xp"`
	Unlocked  []domain.AchievementDef `json:"unlocked,omitempty"`
	Counted   bool                    `json:"counted"`
}

// Visit records a daily visit. The first visit of each local day earns
// XP and advances the streak; a seven-day streak unlocks daily_visitor.
func (s *ActivityService) Visit(now time.Time) (ActivityResult, error) {
	counted, streak, err := s.ledger.RecordVisit(now)
	if err != nil {
		return ActivityResult{}, err
	}
	if !counted {
		total, err := s.ledger.CurrentXP()
		return ActivityResult{TotalXP: total}, err
	}

	res, err := s.award("visit", domain.XPDailyVisit, now, "Daily visit")
	if err != nil {
		return res, err
	}

	if streak >= DailyVisitorStreak {
		if err := s.unlockAction("daily_visitor", now, &res); err != nil {
			return res, err
		}
	}
	res.Counted = true
	return res, nil
}

// SetDisplayName validates and stores the display name. The first real
// name earns the welcome bonus and makes the profile rankable.
func (s *ActivityService) SetDisplayName(name string, now time.Time) (ActivityResult, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < domain.MinDisplayNameLen {
		return ActivityResult{}, domain.ErrNameTooShort
	}

	if err := s.ledger.setName(name); err != nil {
		return ActivityResult{}, fmt.Errorf("set display name: %w", err)
	}

	profile, err := s.ledger.Profile()
	if err != nil {
		return ActivityResult{}, err
	}
	if _, err := s.rank.Refresh(profile); err != nil {
		return ActivityResult{}, err
	}

	// Welcome bonus pays once, even if the name changes later.
	welcomed, err := s.db.GetEngagement("welcome_awarded")
	if err != nil {
		return ActivityResult{}, fmt.Errorf("get welcome_awarded: %w", err)
	}
	if welcomed != "" {
		total, err := s.ledger.CurrentXP()
		return ActivityResult{TotalXP: total, Counted: true}, err
	}
	if err := s.db.SetEngagement("welcome_awarded", "1"); err != nil {
		return ActivityResult{}, fmt.Errorf("set welcome_awarded: %w", err)
	}

	res, err := s.award("welcome", domain.XPWelcome, now, "Welcome aboard")
	res.Counted = true
	return res, err
}

// RecordCopy rewards copying a code, once per (game, code) forever.
// Copies of a favorite game's codes earn a small bonus on top of the
// random base award.
func (s *ActivityService) RecordCopy(game domain.Game, code string, now time.Time) (ActivityResult, error) {
	if !domain.ValidGame(game) {
		return ActivityResult{}, domain.ErrUnknownGame
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ActivityResult{}, domain.ErrNoCodesForGame
	}

	fresh, err := s.db.MarkCodeRedeemed(game, code, now)
	if err != nil {
		return ActivityResult{}, err
	}
	if !fresh {
		total, err := s.ledger.CurrentXP()
		return ActivityResult{TotalXP: total}, err
	}

	amount := s.roll(domain.XPCopyMin, domain.XPCopyMax)
	prefs, err := s.db.GetPreferences()
	if err != nil {
		return ActivityResult{}, err
	}
	if prefs.IsFavorite(game) {
		amount += domain.XPFavoriteBonus
	}

	res, err := s.award("copy", amount, now, "Code copied")
	if err != nil {
		return res, err
	}
	if err := s.unlockAction("code_collector", now, &res); err != nil {
		return res, err
	}
	res.Counted = true
	return res, nil
}

// RecordVote rewards voting on a code card, once per (card, direction).
func (s *ActivityService) RecordVote(game domain.Game, code string, dir domain.VoteDirection, now time.Time) (ActivityResult, error) {
	if !domain.ValidGame(game) {
		return ActivityResult{}, domain.ErrUnknownGame
	}
	if dir != domain.VoteUp && dir != domain.VoteDown {
		return ActivityResult{}, fmt.Errorf("bad vote direction %q", dir)
	}

	fresh, err := s.db.MarkVote(domain.CodeKey(game, code), dir, now)
	if err != nil {
		return ActivityResult{}, err
	}
	if !fresh {
		total, err := s.ledger.CurrentXP()
		return ActivityResult{TotalXP: total}, err
	}

	res, err := s.award("vote", s.roll(domain.XPInteractMin, domain.XPInteractMax), now, "Vote recorded")
	res.Counted = err == nil
	return res, err
}

// SelectGame rewards switching the game tab, once per game per day.
// Having selected all games ever unlocks game_explorer.
func (s *ActivityService) SelectGame(game domain.Game, now time.Time) (ActivityResult, error) {
	if !domain.ValidGame(game) {
		return ActivityResult{}, domain.ErrUnknownGame
	}

	fresh, err := s.db.MarkGameSelected(game, domain.DateOf(now))
	if err != nil {
		return ActivityResult{}, err
	}
	if !fresh {
		total, err := s.ledger.CurrentXP()
		return ActivityResult{TotalXP: total}, err
	}

	res, err := s.award("select", domain.XPSelectGame, now, game.DisplayName()+" selected")
	if err != nil {
		return res, err
	}

	distinct, err := s.db.DistinctGamesSelected()
	if err != nil {
		return res, err
	}
	if distinct >= len(domain.Games()) {
		if err := s.unlockAction("game_explorer", now, &res); err != nil {
			return res, err
		}
	}
	res.Counted = true
	return res, nil
}

// RecordAdClick rewards an ad click and bumps the lifetime counter that
// feeds the ad_clicker claim. Deliberately uncapped.
func (s *ActivityService) RecordAdClick(now time.Time) (ActivityResult, error) {
	if _, err := s.ledger.IncrementAdClicks(); err != nil {
		return ActivityResult{}, err
	}

	res, err := s.award("ad_click", domain.XPAdClick, now, "Thanks for the support")
	if err != nil {
		return res, err
	}
	if err := s.unlockAction("social_supporter", now, &res); err != nil {
		return res, err
	}
	res.Counted = true
	return res, nil
}

// ClaimAchievement claims a claim-kind achievement and pays its reward.
func (s *ActivityService) ClaimAchievement(id string, now time.Time) (ActivityResult, error) {
	clicks, err := s.ledger.AdClicks()
	if err != nil {
		return ActivityResult{}, err
	}

	def, err := s.achievements.Claim(id, clicks, now)
	if err != nil {
		return ActivityResult{}, err
	}

	res, err := s.award("claim", def.RewardXP, now, def.Title+" claimed")
	if err != nil {
		return res, err
	}
	res.Unlocked = append([]domain.AchievementDef{def}, res.Unlocked...)
	res.Counted = true

	_, err = s.db.InsertNotification(domain.Notification{
		Type:      domain.NotifyAchievement,
		Title:     def.Title,
		Body:      fmt.Sprintf("Claimed for %d XP", def.RewardXP),
		CreatedAt: now,
	})
	return res, err
}

// award adds XP, sweeps threshold achievements, and queues notifications
// for the XP gain and any new unlocks.
func (s *ActivityService) award(kind string, amount int64, now time.Time, reason string) (ActivityResult, error) {
	total, err := s.ledger.AwardXP(amount, now)
	if err != nil {
		return ActivityResult{}, err
	}
	metrics.XPAwarded.WithLabelValues(kind).Add(float64(amount))

	unlocked, err := s.achievements.Sweep(total, now)
	if err != nil {
		return ActivityResult{}, err
	}
	metrics.AchievementsUnlocked.Add(float64(len(unlocked)))

	res := ActivityResult{AwardedXP: amount, TotalXP: total, Unlocked: unlocked}

	_, err = s.db.InsertNotification(domain.Notification{
		Type:      domain.NotifyXP,
		Title:     fmt.Sprintf("+%d XP", amount),
		Body:      reason,
		CreatedAt: now,
	})
	if err != nil {
		return res, err
	}
	for _, def := range unlocked {
		_, err := s.db.InsertNotification(domain.Notification{
			Type:      domain.NotifyAchievement,
			Title:     def.Title,
			Body:      def.Description,
			CreatedAt: now,
		})
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// unlockAction unlocks an action achievement if it is still locked and
// appends it to the result with a notification.
func (s *ActivityService) unlockAction(id string, now time.Time, res *ActivityResult) error {
	def, isNew, err := s.achievements.Unlock(id, now)
	if err != nil {
		return err
	}
	if !isNew {
		return nil
	}
	metrics.AchievementsUnlocked.Inc()
	res.Unlocked = append(res.Unlocked, def)

	_, err = s.db.InsertNotification(domain.Notification{
		Type:      domain.NotifyAchievement,
		Title:     def.Title,
		Body:      def.Description,
		CreatedAt: now,
	})
	return err
}

// roll draws a uniform award from [min, max].
func (s *ActivityService) roll(min, max int64) int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return min + s.rng.Int63n(max-min+1)
}
