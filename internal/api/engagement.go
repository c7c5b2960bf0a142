package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codeforge-app/codeforge/internal/app/engagement"
	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// ─── Engagement API ─────────────────────────────────────────────────────────
// REST endpoints for the web UI and CLI:
//
// GET  /api/engagement/summary       — profile, ledger, achievement counts
// GET  /api/engagement/achievements  — all achievements with unlock status
// GET  /api/engagement/leaderboard   — synthetic top-10 board
// POST /api/engagement/profile       — set display name
// POST /api/engagement/visit         — record daily visit
// POST /api/engagement/copy          — record a code copy
// POST /api/engagement/vote          — record a code vote
// POST /api/engagement/select        — record a game selection
// POST /api/engagement/ad-click      — record an ad click
// POST /api/engagement/claim/{id}    — claim a claimable achievement
// GET  /api/verifications            — all platform verification states
// POST /api/verifications/{platform} — submit a verification
// POST /api/verifications/{platform}/reset — reset a failed verification
// GET  /api/notifications            — pending notifications
// POST /api/notifications/{id}/shown — mark notification shown
// GET/PUT /api/preferences           — user preferences

// EngagementAPI holds references to all engagement services.
type EngagementAPI struct {
	DB       *sqlite.DB
	Ledger   *engagement.LedgerService
	Ach      *engagement.AchievementService
	Rank     *engagement.RankService
	Activity *engagement.ActivityService
	Verify   *engagement.VerificationService
}

// HandleSummary returns the full engagement dashboard snapshot.
// GET /api/engagement/summary
func (e *EngagementAPI) HandleSummary(w http.ResponseWriter, r *http.Request) {
	profile, err := e.Ledger.Profile()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap, err := e.Ledger.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	unlocked, err := e.Ach.UnlockedCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	verifications, err := e.Verify.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":               profile,
		"ledger":                snap,
		"achievements_unlocked": unlocked,
		"achievements_total":    len(e.Ach.Definitions()),
		"verifications":         verifications,
	})
}

// HandleAchievements returns all achievements with unlock status.
// GET /api/engagement/achievements
func (e *EngagementAPI) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := e.Ach.ListUnlocked()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	unlockedMap := make(map[string]domain.UnlockedAchievement, len(unlocked))
	for _, u := range unlocked {
		unlockedMap[u.ID] = u
	}

	clicks, err := e.Ledger.AdClicks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type achievementView struct {
		domain.AchievementDef
		Unlocked   bool   `json:"unlocked"`
		UnlockedAt string `json:"unlocked_at,omitempty"`
		Claimable  bool   `json:"claimable"`
	}
	views := make([]achievementView, 0, len(e.Ach.Definitions()))
	for _, def := range e.Ach.Definitions() {
		v := achievementView{AchievementDef: def}
		if u, ok := unlockedMap[def.ID]; ok {
			v.Unlocked = true
			v.UnlockedAt = u.UnlockedAt.Format(time.RFC3339)
		} else if def.Kind == domain.KindClaim && clicks >= def.ClaimThreshold {
			v.Claimable = true
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"achievements": views,
		"unlocked":     len(unlocked),
		"total":        len(views),
	})
}

// HandleLeaderboard returns the synthetic top-10 board.
// GET /api/engagement/leaderboard
func (e *EngagementAPI) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	profile, err := e.Ledger.Profile()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap, err := e.Ledger.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": e.Rank.Leaderboard(profile, snap.CurrentXP, time.Now()),
		"rank":    snap.CurrentRank,
		"named":   profile.Named(),
	})
}

// HandleSetProfile sets the display name.
// POST /api/engagement/profile {"name": "..."}
func (e *EngagementAPI) HandleSetProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := e.Activity.SetDisplayName(req.Name, time.Now())
	if errors.Is(err, domain.ErrNameTooShort) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVisit records a daily visit.
// POST /api/engagement/visit
func (e *EngagementAPI) HandleVisit(w http.ResponseWriter, r *http.Request) {
	res, err := e.Activity.Visit(time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCopy records a code copy.
// POST /api/engagement/copy {"game": "...", "code": "..."}
func (e *EngagementAPI) HandleCopy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Game domain.Game `json:"game"`
		Code string      `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := e.Activity.RecordCopy(req.Game, req.Code, time.Now())
	if errors.Is(err, domain.ErrUnknownGame) || errors.Is(err, domain.ErrNoCodesForGame) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVote records a code vote.
// POST /api/engagement/vote {"game": "...", "code": "...", "direction": "up"}
func (e *EngagementAPI) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Game      domain.Game          `json:"game"`
		Code      string               `json:"code"`
		Direction domain.VoteDirection `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := e.Activity.RecordVote(req.Game, req.Code, req.Direction, time.Now())
	if errors.Is(err, domain.ErrUnknownGame) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSelectGame records a game tab selection.
// POST /api/engagement/select {"game": "..."}
func (e *EngagementAPI) HandleSelectGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Game domain.Game `json:"game"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := e.Activity.SelectGame(req.Game, time.Now())
	if errors.Is(err, domain.ErrUnknownGame) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAdClick records an ad click.
// POST /api/engagement/ad-click
func (e *EngagementAPI) HandleAdClick(w http.ResponseWriter, r *http.Request) {
	res, err := e.Activity.RecordAdClick(time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleClaim claims a claimable achievement.
// POST /api/engagement/claim/{id}
func (e *EngagementAPI) HandleClaim(w http.ResponseWriter, r *http.Request) {
	res, err := e.Activity.ClaimAchievement(chi.URLParam(r, "id"), time.Now())
	switch {
	case errors.Is(err, domain.ErrAchievementUnknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotClaimable),
		errors.Is(err, domain.ErrClaimRequirement),
		errors.Is(err, domain.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// HandleVerifications lists all platform verification states.
// GET /api/verifications
func (e *EngagementAPI) HandleVerifications(w http.ResponseWriter, r *http.Request) {
	recs, err := e.Verify.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	catalog := domain.PlatformCatalog()
	type verificationView struct {
		domain.VerificationRecord
		Info domain.PlatformInfo `json:"info"`
	}
	views := make([]verificationView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, verificationView{
			VerificationRecord: rec,
			Info:               catalog[rec.Platform],
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"verifications": views})
}

// HandleVerifySubmit submits a verification attempt.
// POST /api/verifications/{platform} {"username": "..."}
func (e *EngagementAPI) HandleVerifySubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	platform := domain.Platform(chi.URLParam(r, "platform"))
	rec, err := e.Verify.Submit(platform, req.Username, time.Now())
	switch {
	case errors.Is(err, domain.ErrUnknownPlatform):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyUsername):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyPending), errors.Is(err, domain.ErrAlreadyVerified):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, rec)
	}
}

// HandleVerifyReset resets a failed or stuck verification.
// POST /api/verifications/{platform}/reset
func (e *EngagementAPI) HandleVerifyReset(w http.ResponseWriter, r *http.Request) {
	platform := domain.Platform(chi.URLParam(r, "platform"))
	rec, err := e.Verify.Reset(platform)
	switch {
	case errors.Is(err, domain.ErrUnknownPlatform):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyVerified):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

// HandleNotifications returns pending notifications.
// GET /api/notifications?limit=20
func (e *EngagementAPI) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	pending, err := e.DB.ListPendingNotifications(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pending == nil {
		pending = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": pending})
}

// HandleNotificationShown marks a notification shown.
// POST /api/notifications/{id}/shown
func (e *EngagementAPI) HandleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := e.DB.MarkNotificationShown(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleGetPreferences returns the user preferences.
// GET /api/preferences
func (e *EngagementAPI) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := e.DB.GetPreferences()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleSetPreferences replaces the user preferences.
// PUT /api/preferences
func (e *EngagementAPI) HandleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs domain.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, g := range prefs.FavoriteGames {
		if !domain.ValidGame(g) {
			writeError(w, http.StatusBadRequest, domain.ErrUnknownGame.Error())
			return
		}
	}
	if prefs.Theme == "" {
		prefs.Theme = domain.DefaultPreferences().Theme
	}

	if err := e.DB.SetPreferences(prefs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
