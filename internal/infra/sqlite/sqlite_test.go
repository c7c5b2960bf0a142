package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "state.db")); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.SetEngagement("current_xp", "120"); err != nil {
		t.Fatalf("SetEngagement() error: %v", err)
	}
	db.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db2.Close()

	v, err := db2.GetEngagement("current_xp")
	if err != nil {
		t.Fatalf("GetEngagement() error: %v", err)
	}
	if v != "120" {
		t.Errorf("current_xp = %q, want %q", v, "120")
	}
}

// ─── Engagement KV ──────────────────────────────────────────────────────────

func TestEngagement_MissingKey(t *testing.T) {
	db := newTestDB(t)
	v, err := db.GetEngagement("never_set")
	if err != nil {
		t.Fatalf("GetEngagement() error: %v", err)
	}
	if v != "" {
		t.Errorf("missing key = %q, want empty", v)
	}
}

func TestEngagement_Overwrite(t *testing.T) {
	db := newTestDB(t)
	if err := db.SetEngagement("last_xp_date", "2025-07-01"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetEngagement("last_xp_date", "2025-07-02"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _ := db.GetEngagement("last_xp_date")
	if v != "2025-07-02" {
		t.Errorf("last_xp_date = %q, want 2025-07-02", v)
	}
}

// ─── Achievements ───────────────────────────────────────────────────────────

func TestUnlockAchievement_Once(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	fresh, err := db.UnlockAchievement("first_100", now)
	if err != nil {
		t.Fatalf("UnlockAchievement() error: %v", err)
	}
	if !fresh {
		t.Error("first unlock should be fresh")
	}

	again, err := db.UnlockAchievement("first_100", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("UnlockAchievement() error: %v", err)
	}
	if again {
		t.Error("second unlock should be ignored")
	}

	unlocked, err := db.IsAchievementUnlocked("first_100")
	if err != nil {
		t.Fatalf("IsAchievementUnlocked() error: %v", err)
	}
	if !unlocked {
		t.Error("first_100 should be unlocked")
	}

	n, err := db.UnlockedAchievementCount()
	if err != nil {
		t.Fatalf("UnlockedAchievementCount() error: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestListUnlockedAchievements_Order(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	db.UnlockAchievement("first_500", base.Add(time.Hour))
	db.UnlockAchievement("first_100", base)

	got, err := db.ListUnlockedAchievements()
	if err != nil {
		t.Fatalf("ListUnlockedAchievements() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "first_100" || got[1].ID != "first_500" {
		t.Errorf("order = [%s, %s], want oldest first", got[0].ID, got[1].ID)
	}
}

// ─── De-duplication Sets ────────────────────────────────────────────────────

func TestMarkCodeRedeemed_Dedup(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	fresh, err := db.MarkCodeRedeemed(domain.GameGenshin, "GENSHINGIFT", now)
	if err != nil {
		t.Fatalf("MarkCodeRedeemed() error: %v", err)
	}
	if !fresh {
		t.Error("first mark should be fresh")
	}

	again, _ := db.MarkCodeRedeemed(domain.GameGenshin, "GENSHINGIFT", now)
	if again {
		t.Error("repeat mark should be ignored")
	}

	// Same code under a different game is a distinct identity.
	other, _ := db.MarkCodeRedeemed(domain.GameHSR, "GENSHINGIFT", now)
	if !other {
		t.Error("same code under another game should be fresh")
	}

	n, _ := db.RedeemedCount()
	if n != 2 {
		t.Errorf("RedeemedCount() = %d, want 2", n)
	}
}

func TestMarkVote_Dedup(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	fresh, _ := db.MarkVote("genshin:ABC123", domain.VoteUp, now)
	if !fresh {
		t.Error("first vote should be fresh")
	}
	again, _ := db.MarkVote("genshin:ABC123", domain.VoteUp, now)
	if again {
		t.Error("repeat vote should be ignored")
	}
	down, _ := db.MarkVote("genshin:ABC123", domain.VoteDown, now)
	if !down {
		t.Error("opposite direction should be fresh")
	}
}

func TestMarkGameSelected_PerDay(t *testing.T) {
	db := newTestDB(t)

	fresh, _ := db.MarkGameSelected(domain.GameZZZ, "2025-07-01")
	if !fresh {
		t.Error("first selection should be fresh")
	}
	again, _ := db.MarkGameSelected(domain.GameZZZ, "2025-07-01")
	if again {
		t.Error("same game same day should be ignored")
	}
	nextDay, _ := db.MarkGameSelected(domain.GameZZZ, "2025-07-02")
	if !nextDay {
		t.Error("next day should be fresh")
	}

	db.MarkGameSelected(domain.GameGenshin, "2025-07-01")
	n, _ := db.DistinctGamesSelected()
	if n != 2 {
		t.Errorf("DistinctGamesSelected() = %d, want 2", n)
	}
}

// ─── Verifications ──────────────────────────────────────────────────────────

func TestGetVerification_DefaultNone(t *testing.T) {
	db := newTestDB(t)
	rec, err := db.GetVerification(domain.PlatformTelegram)
	if err != nil {
		t.Fatalf("GetVerification() error: %v", err)
	}
	if rec.Status != domain.VerificationNone {
		t.Errorf("status = %s, want none", rec.Status)
	}
	if rec.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", rec.Attempts)
	}
}

func TestPutVerification_Roundtrip(t *testing.T) {
	db := newTestDB(t)
	submit := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	rec := domain.VerificationRecord{
		Platform:   domain.PlatformYouTube,
		Status:     domain.VerificationPending,
		Username:   "tester",
		SubmitTime: submit,
		DueAt:      submit.Add(5 * time.Hour),
		Outcome:    domain.VerificationFailed,
		Attempts:   1,
	}
	if err := db.PutVerification(rec); err != nil {
		t.Fatalf("PutVerification() error: %v", err)
	}

	got, err := db.GetVerification(domain.PlatformYouTube)
	if err != nil {
		t.Fatalf("GetVerification() error: %v", err)
	}
	if got.Status != domain.VerificationPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.Username != "tester" {
		t.Errorf("username = %q, want tester", got.Username)
	}
	if !got.SubmitTime.Equal(submit) {
		t.Errorf("submit_time = %v, want %v", got.SubmitTime, submit)
	}
	if got.Outcome != domain.VerificationFailed {
		t.Errorf("outcome = %s, want failed", got.Outcome)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
}

func TestListVerifications_AllPlatforms(t *testing.T) {
	db := newTestDB(t)
	recs, err := db.ListVerifications()
	if err != nil {
		t.Fatalf("ListVerifications() error: %v", err)
	}
	if len(recs) != len(domain.Platforms()) {
		t.Fatalf("len = %d, want %d", len(recs), len(domain.Platforms()))
	}
	for _, r := range recs {
		if r.Status != domain.VerificationNone {
			t.Errorf("%s status = %s, want none", r.Platform, r.Status)
		}
	}
}

// ─── Catalog Snapshot ───────────────────────────────────────────────────────

func TestSnapshot_ReplaceAndLoad(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	has, err := db.HasSnapshot()
	if err != nil {
		t.Fatalf("HasSnapshot() error: %v", err)
	}
	if has {
		t.Error("fresh db should have no snapshot")
	}

	cat := domain.Catalog{
		Genshin: []domain.CodeEntry{{Code: "GENSHINGIFT", Rewards: "60 Primogems"}},
		HSR:     []domain.CodeEntry{{Code: "STARRAILGIFT"}},
	}
	if err := db.ReplaceSnapshot(cat, now); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}

	has, _ = db.HasSnapshot()
	if !has {
		t.Error("snapshot flag should be set after replace")
	}

	got, err := db.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(got.Genshin) != 1 || got.Genshin[0].Code != "GENSHINGIFT" {
		t.Errorf("genshin = %+v, want GENSHINGIFT", got.Genshin)
	}
	if len(got.HSR) != 1 {
		t.Errorf("hsr len = %d, want 1", len(got.HSR))
	}
	if len(got.ZZZ) != 0 {
		t.Errorf("zzz len = %d, want 0", len(got.ZZZ))
	}
}

func TestSnapshot_ReplaceDropsStale(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	db.ReplaceSnapshot(domain.Catalog{
		Genshin: []domain.CodeEntry{{Code: "OLDCODE"}},
	}, now)
	db.ReplaceSnapshot(domain.Catalog{
		Genshin: []domain.CodeEntry{{Code: "NEWCODE"}},
	}, now.Add(time.Hour))

	got, _ := db.LoadSnapshot()
	if len(got.Genshin) != 1 {
		t.Fatalf("genshin len = %d, want 1", len(got.Genshin))
	}
	if got.Genshin[0].Code != "NEWCODE" {
		t.Errorf("code = %q, want NEWCODE", got.Genshin[0].Code)
	}
}

func TestSnapshot_EmptyStillCounts(t *testing.T) {
	db := newTestDB(t)
	if err := db.ReplaceSnapshot(domain.Catalog{}, time.Now()); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}
	has, _ := db.HasSnapshot()
	if !has {
		t.Error("empty snapshot should still set the baseline flag")
	}
}

// ─── Preferences ────────────────────────────────────────────────────────────

func TestPreferences_Defaults(t *testing.T) {
	db := newTestDB(t)
	prefs, err := db.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences() error: %v", err)
	}
	if prefs.Theme != "dark" {
		t.Errorf("theme = %q, want dark", prefs.Theme)
	}
	if len(prefs.FavoriteGames) != 0 {
		t.Errorf("favorites = %v, want empty", prefs.FavoriteGames)
	}
}

func TestPreferences_Roundtrip(t *testing.T) {
	db := newTestDB(t)
	want := domain.Preferences{
		FavoriteGames:  []domain.Game{domain.GameGenshin, domain.GameZZZ},
		NotifyNewCodes: true,
		Theme:          "light",
	}
	if err := db.SetPreferences(want); err != nil {
		t.Fatalf("SetPreferences() error: %v", err)
	}

	got, err := db.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences() error: %v", err)
	}
	if got.Theme != "light" {
		t.Errorf("theme = %q, want light", got.Theme)
	}
	if !got.NotifyNewCodes {
		t.Error("NotifyNewCodes should persist")
	}
	if got.NotifyFavsOnly {
		t.Error("NotifyFavsOnly should stay false")
	}
	if len(got.FavoriteGames) != 2 || !got.IsFavorite(domain.GameZZZ) {
		t.Errorf("favorites = %v, want [genshin zzz]", got.FavoriteGames)
	}
}

// ─── Notifications ──────────────────────────────────────────────────────────

func TestNotifications_PendingFlow(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

	id1, err := db.InsertNotification(domain.Notification{
		Type: domain.NotifyXP, Title: "+5 XP", Body: "Daily visit", CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("InsertNotification() error: %v", err)
	}
	_, err = db.InsertNotification(domain.Notification{
		Type: domain.NotifyAchievement, Title: "Getting Started", CreatedAt: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("InsertNotification() error: %v", err)
	}

	pending, err := db.ListPendingNotifications(10)
	if err != nil {
		t.Fatalf("ListPendingNotifications() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != id1 {
		t.Errorf("oldest first: got id %d, want %d", pending[0].ID, id1)
	}

	if err := db.MarkNotificationShown(id1); err != nil {
		t.Fatalf("MarkNotificationShown() error: %v", err)
	}
	pending, _ = db.ListPendingNotifications(10)
	if len(pending) != 1 {
		t.Fatalf("pending after mark = %d, want 1", len(pending))
	}
	if pending[0].Type != domain.NotifyAchievement {
		t.Errorf("remaining type = %s, want achievement", pending[0].Type)
	}
}
