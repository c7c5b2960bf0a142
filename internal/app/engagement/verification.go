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

// Verification timing. Outcomes are decided at submission time and
// applied later by the due-sweep, so a restart never loses a scheduled
// transition and a reset cancels it cleanly.
const (
	// HoYoLAB has no real membership check, so it "verifies" almost
	// immediately to keep at least one platform rewarding.
	hoyolabDelay = 2 * time.Second

	firstAttemptFailMin = 4 * time.Hour
	firstAttemptFailMax = 6 * time.Hour

	retrySuccessMin = 2 * time.Hour
	retrySuccessMax = 5 * time.Hour
)

// VerificationService simulates social platform membership checks.
// There is no real API behind any platform: the first telegram/youtube
// attempt is scheduled to fail hours later, the retry to succeed, and
// hoyolab succeeds right away. Completion unlocks the platform
// achievement and pays its XP reward exactly once.
type VerificationService struct {
	db           *sqlite.DB
	ledger       *LedgerService
	achievements *AchievementService

	// rngMu guards rng; submissions can arrive concurrently.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewVerificationService creates a verification service.
func NewVerificationService(db *sqlite.DB, ledger *LedgerService, ach *AchievementService) *VerificationService {
	return &VerificationService{
		db:           db,
		ledger:       ledger,
		achievements: ach,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Get returns the record for one platform.
func (v *VerificationService) Get(p domain.Platform) (domain.VerificationRecord, error) {
	if _, ok := domain.PlatformCatalog()[p]; !ok {
		return domain.VerificationRecord{}, domain.ErrUnknownPlatform
	}
	return v.db.GetVerification(p)
}

// List returns records for all platforms.
func (v *VerificationService) List() ([]domain.VerificationRecord, error) {
	return v.db.ListVerifications()
}

// Submit starts a verification attempt. The outcome and its due time
// are fixed here; ResolveDue applies them once the due time passes.
func (v *VerificationService) Submit(p domain.Platform, username string, now time.Time) (domain.VerificationRecord, error) {
	if _, ok := domain.PlatformCatalog()[p]; !ok {
		return domain.VerificationRecord{}, domain.ErrUnknownPlatform
	}
	if strings.TrimSpace(username) == "" {
		return domain.VerificationRecord{}, domain.ErrEmptyUsername
	}

	rec, err := v.db.GetVerification(p)
	if err != nil {
		return rec, err
	}
	switch rec.Status {
	case domain.VerificationPending:
		return rec, domain.ErrAlreadyPending
	case domain.VerificationCompleted:
		return rec, domain.ErrAlreadyVerified
	}

	rec.Username = strings.TrimSpace(username)
	rec.Status = domain.VerificationPending
	rec.SubmitTime = now
	rec.Attempts++

	switch {
	case p == domain.PlatformHoyolab:
		rec.Outcome = domain.VerificationCompleted
		rec.DueAt = now.Add(hoyolabDelay)
	case rec.Attempts == 1:
		rec.Outcome = domain.VerificationFailed
		rec.DueAt = now.Add(v.between(firstAttemptFailMin, firstAttemptFailMax))
	default:
		rec.Outcome = domain.VerificationCompleted
		rec.DueAt = now.Add(v.between(retrySuccessMin, retrySuccessMax))
	}

	if err := v.db.PutVerification(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Reset clears a failed or stuck verification back to none so the user
// can retry. The scheduled outcome is wiped, which cancels any pending
// transition; the attempt counter survives so the retry path applies.
func (v *VerificationService) Reset(p domain.Platform) (domain.VerificationRecord, error) {
	rec, err := v.db.GetVerification(p)
	if err != nil {
		return rec, err
	}
	if rec.Status == domain.VerificationCompleted {
		return rec, domain.ErrAlreadyVerified
	}

	rec.Status = domain.VerificationNone
	rec.DueAt = time.Time{}
	rec.Outcome = ""
	if err := v.db.PutVerification(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Transition is one verification state change applied by a sweep.
type Transition struct {
	Platform  domain.Platform
	Status    domain.VerificationStatus
	AwardedXP int64
}

// ResolveDue applies every scheduled outcome whose due time has passed.
// Only still-pending records transition, so a reset between submit and
// sweep is honored. Completions unlock the platform achievement, pay
// its reward, and queue a notification.
func (v *VerificationService) ResolveDue(now time.Time) ([]Transition, error) {
	recs, err := v.db.ListVerifications()
	if err != nil {
		return nil, err
	}

	var transitions []Transition
	for _, rec := range recs {
		if rec.Status != domain.VerificationPending {
			continue
		}
		if rec.DueAt.IsZero() || now.Before(rec.DueAt) {
			continue
		}

		rec.Status = rec.Outcome
		rec.DueAt = time.Time{}
		rec.Outcome = ""
		if err := v.db.PutVerification(rec); err != nil {
			return transitions, err
		}

		tr := Transition{Platform: rec.Platform, Status: rec.Status}
		if rec.Status == domain.VerificationCompleted {
			awarded, err := v.reward(rec.Platform, now)
			if err != nil {
				return transitions, err
			}
			tr.AwardedXP = awarded
		}
		transitions = append(transitions, tr)
	}
	return transitions, nil
}

// reward unlocks the platform achievement and pays its XP. The unlock
// is the once-guard: a platform verified, reset, and verified again
// pays nothing the second time.
func (v *VerificationService) reward(p domain.Platform, now time.Time) (int64, error) {
	info := domain.PlatformCatalog()[p]

	def, isNew, err := v.achievements.Unlock(info.AchievementID, now)
	if err != nil {
		return 0, err
	}
	if !isNew {
		return 0, nil
	}
	metrics.AchievementsUnlocked.Inc()
	metrics.XPAwarded.WithLabelValues("verification").Add(float64(def.RewardXP))

	total, err := v.ledger.AwardXP(def.RewardXP, now)
	if err != nil {
		return 0, fmt.Errorf("award verification xp: %w", err)
	}
	if _, err := v.achievements.Sweep(total, now); err != nil {
		return 0, err
	}

	_, err = v.db.InsertNotification(domain.Notification{
		Type:      domain.NotifyAchievement,
		Title:     def.Title,
		Body:      fmt.Sprintf("%s verified, +%d XP", info.Name, def.RewardXP),
		CreatedAt: now,
	})
	if err != nil {
		return 0, err
	}
	return def.RewardXP, nil
}

func (v *VerificationService) between(min, max time.Duration) time.Duration {
	v.rngMu.Lock()
	defer v.rngMu.Unlock()
	return min + time.Duration(v.rng.Int63n(int64(max-min)))
}
