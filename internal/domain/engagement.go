// Package domain holds the pure types of the CodeForge engagement engine.
// The engagement engine drives retention for the redemption-code tracker:
// an XP ledger, one-shot achievements, a synthetic leaderboard, and
// simulated social-media verification. No infrastructure dependencies.
package domain

import "time"

// ─── XP Ledger Types ────────────────────────────────────────────────────────

// Profile identifies the local user. The ID is minted once per data
// directory; the display name is optional and gates leaderboard ranking.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AnonymousName is stored when the user skips display-name setup.
const AnonymousName = "Anonymous"

// MinDisplayNameLen is the shortest accepted display name.
const MinDisplayNameLen = 2

// Named reports whether a usable display name has been configured.
func (p Profile) Named() bool {
	return p.Name != "" && p.Name != AnonymousName
}

// LedgerSnapshot is a read-only view of the XP ledger state.
type LedgerSnapshot struct {
	CurrentXP     int64  `json:"current_xp"`
	DailyXPEarned int64  `json:"daily_xp_earned"`
	LastXPDate    string `json:"last_xp_date"` // local calendar date, "2006-01-02"
	TotalVisits   int64  `json:"total_visits"`
	VisitStreak   int    `json:"visit_streak"` // consecutive calendar days with a visit
	AdClickCount  int64  `json:"ad_click_count"`
	CurrentRank   int    `json:"current_rank"` // 0 until a display name is set
}

// XP award amounts. Interaction awards are drawn uniformly from a range,
// matching the "awarded randomly to keep things exciting" product copy.
const (
	XPDailyVisit    int64 = 5
	XPAdClick       int64 = 10
	XPFavoriteBonus int64 = 5
	XPSelectGame    int64 = 5
	XPWelcome       int64 = 25

	XPCopyMin int64 = 3
	XPCopyMax int64 = 10

	XPInteractMin int64 = 2
	XPInteractMax int64 = 8
)

// VoteDirection is the polarity of a code vote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementKind determines how an achievement unlocks.
type AchievementKind string

const (
	// KindThreshold unlocks automatically when currentXP crosses XPThreshold.
	KindThreshold AchievementKind = "threshold"
	// KindAction is unlocked explicitly by its triggering interaction.
	KindAction AchievementKind = "action"
	// KindClaim requires an explicit claim step once ClaimThreshold is met;
	// claiming both unlocks and grants RewardXP.
	KindClaim AchievementKind = "claim"
)

// AchievementDef defines a single achievement.
type AchievementDef struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Icon           string          `json:"icon"`
	Kind           AchievementKind `json:"kind"`
	XPThreshold    int64           `json:"xp_threshold,omitempty"`    // threshold kind
	ClaimThreshold int64           `json:"claim_threshold,omitempty"` // claim kind (ad clicks)
	RewardXP       int64           `json:"reward_xp"`                 // 0 for pure milestones
}

// UnlockedAchievement records when an achievement was earned.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
	Notified   bool      `json:"notified"`
}

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// LeaderboardEntry is one row of the synthetic top-10 board.
type LeaderboardEntry struct {
	Name string `json:"name"`
	XP   int64  `json:"xp"`
	You  bool   `json:"you"`
}

// VoteCounts is the fabricated like/dislike pair shown on a code card.
type VoteCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ─── Social Verification Types ──────────────────────────────────────────────

// Platform is a social platform with a simulated membership check.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformYouTube  Platform = "youtube"
	PlatformHoyolab  Platform = "hoyolab"
)

// Platforms returns all supported platforms in display order.
func Platforms() []Platform {
	return []Platform{PlatformTelegram, PlatformYouTube, PlatformHoyolab}
}

// VerificationStatus is the state of a platform verification.
type VerificationStatus string

const (
	VerificationNone      VerificationStatus = "none"
	VerificationPending   VerificationStatus = "pending"
	VerificationFailed    VerificationStatus = "failed"
	VerificationCompleted VerificationStatus = "completed"
)

// VerificationRecord tracks one platform's simulated check.
// Outcome and DueAt are fixed at submission time; a scheduler sweep applies
// the transition once DueAt passes. Resetting the record clears both, which
// invalidates any still-scheduled transition.
type VerificationRecord struct {
	Platform   Platform           `json:"platform"`
	Status     VerificationStatus `json:"status"`
	Username   string             `json:"username"`
	SubmitTime time.Time          `json:"submit_time"`
	DueAt      time.Time          `json:"due_at"`
	Outcome    VerificationStatus `json:"outcome"` // completed or failed
	Attempts   int                `json:"attempts"`
}

// PlatformInfo carries the display metadata and reward for a platform.
type PlatformInfo struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	RewardXP      int64  `json:"reward_xp"`
	AchievementID string `json:"achievement_id"`
}

// PlatformCatalog maps each platform to its join URL, XP reward, and
// associated achievement.
func PlatformCatalog() map[Platform]PlatformInfo {
	return map[Platform]PlatformInfo{
		PlatformTelegram: {
			Name:          "Telegram",
			URL:           "https://t.me/codeforgeofficial",
			RewardXP:      50,
			AchievementID: "telegram_member",
		},
		PlatformYouTube: {
			Name:          "YouTube",
			URL:           "https://youtube.com/@codeforge?sub_confirmation=1",
			RewardXP:      50,
			AchievementID: "youtube_subscriber",
		},
		PlatformHoyolab: {
			Name:          "HoYoLAB",
			URL:           "https://www.hoyolab.com/accountCenter/postList?id=342635986",
			RewardXP:      45,
			AchievementID: "hoyolab_follower",
		},
	}
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes user-facing notifications.
type NotificationType string

const (
	NotifyXP          NotificationType = "xp"
	NotifyAchievement NotificationType = "achievement"
	NotifyNewCodes    NotificationType = "new_codes"
	NotifyInfo        NotificationType = "info"
)

// Notification is a transient user-facing message. The presentation layer
// polls pending notifications and marks them shown.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// DateOf formats a time as the local calendar date used for daily resets.
// Dates compare as plain strings; the process-local zone is intentional.
func DateOf(t time.Time) string {
	return t.Format(time.DateOnly)
}
