package sqlite

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
)

// ─── Achievements ───────────────────────────────────────────────────────────

// UnlockAchievement records an unlock. Returns true if it was newly
// inserted; unlocking twice is a no-op.
func (d *DB) UnlockAchievement(id string, at time.Time) (bool, error) {
	res, err := d.db.Exec(
		`INSERT OR IGNORE INTO achievements (id, unlocked_at) VALUES (?, ?)`,
		id, at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// IsAchievementUnlocked reports whether the achievement is unlocked.
func (d *DB) IsAchievementUnlocked(id string) (bool, error) {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM achievements WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ListUnlockedAchievements returns all unlocks, oldest first.
func (d *DB) ListUnlockedAchievements() ([]domain.UnlockedAchievement, error) {
	rows, err := d.db.Query(
		`SELECT id, unlocked_at, notified FROM achievements ORDER BY unlocked_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UnlockedAchievement
	for rows.Next() {
		var u domain.UnlockedAchievement
		var at int64
		if err := rows.Scan(&u.ID, &at, &u.Notified); err != nil {
			return nil, err
		}
		u.UnlockedAt = time.Unix(at, 0)
		out = append(out, u)
	}
	return out, rows.Err()
}

// UnlockedAchievementCount returns how many achievements are unlocked.
func (d *DB) UnlockedAchievementCount() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM achievements`).Scan(&n)
	return n, err
}

// ─── De-duplication Sets ────────────────────────────────────────────────────

// MarkCodeRedeemed records a (game, code) copy reward. Returns true the
// first time, false on repeats.
func (d *DB) MarkCodeRedeemed(game domain.Game, code string, at time.Time) (bool, error) {
	res, err := d.db.Exec(
		`INSERT OR IGNORE INTO redeemed_codes (game, code, rewarded_at) VALUES (?, ?, ?)`,
		string(game), code, at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// HasRedeemedCode reports whether (game, code) was already rewarded.
func (d *DB) HasRedeemedCode(game domain.Game, code string) (bool, error) {
	var one int
	err := d.db.QueryRow(
		`SELECT 1 FROM redeemed_codes WHERE game = ? AND code = ?`,
		string(game), code,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// RedeemedCount returns how many distinct codes have been rewarded.
func (d *DB) RedeemedCount() (int64, error) {
	var n int64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM redeemed_codes`).Scan(&n)
	return n, err
}

// MarkVote records a (card, direction) vote reward. Returns true the
// first time, false on repeats.
func (d *DB) MarkVote(cardID string, dir domain.VoteDirection, at time.Time) (bool, error) {
	res, err := d.db.Exec(
		`INSERT OR IGNORE INTO voted_codes (card_id, direction, voted_at) VALUES (?, ?, ?)`,
		cardID, string(dir), at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkGameSelected records a (game, day) selection. Returns true the
// first time that game is selected on that calendar date.
func (d *DB) MarkGameSelected(game domain.Game, day string) (bool, error) {
	res, err := d.db.Exec(
		`INSERT OR IGNORE INTO selected_games (game, day) VALUES (?, ?)`,
		string(game), day,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DistinctGamesSelected counts how many different games were ever selected.
func (d *DB) DistinctGamesSelected() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(DISTINCT game) FROM selected_games`).Scan(&n)
	return n, err
}

// ─── Verifications ──────────────────────────────────────────────────────────

// GetVerification loads the record for a platform. A platform with no
// record yet returns a zero record in the "none" state.
func (d *DB) GetVerification(p domain.Platform) (domain.VerificationRecord, error) {
	rec := domain.VerificationRecord{Platform: p, Status: domain.VerificationNone}

	var status, username, outcome string
	var submit, due int64
	var attempts int
	err := d.db.QueryRow(
		`SELECT status, username, submit_time, due_at, outcome, attempts
		 FROM verifications WHERE platform = ?`, string(p),
	).Scan(&status, &username, &submit, &due, &outcome, &attempts)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return rec, err
	}

	rec.Status = domain.VerificationStatus(status)
	rec.Username = username
	rec.Outcome = domain.VerificationStatus(outcome)
	rec.Attempts = attempts
	if submit > 0 {
		rec.SubmitTime = time.Unix(submit, 0)
	}
	if due > 0 {
		rec.DueAt = time.Unix(due, 0)
	}
	return rec, nil
}

// PutVerification upserts a platform's verification record.
func (d *DB) PutVerification(rec domain.VerificationRecord) error {
	_, err := d.db.Exec(
		`INSERT INTO verifications (platform, status, username, submit_time, due_at, outcome, attempts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(platform) DO UPDATE SET
			status=excluded.status,
			username=excluded.username,
			submit_time=excluded.submit_time,
			due_at=excluded.due_at,
			outcome=excluded.outcome,
			attempts=excluded.attempts`,
		string(rec.Platform), string(rec.Status), rec.Username,
		unixOrZero(rec.SubmitTime), unixOrZero(rec.DueAt),
		string(rec.Outcome), rec.Attempts,
	)
	return err
}

// ListVerifications returns records for every platform, including the
// implicit "none" records for platforms never submitted.
func (d *DB) ListVerifications() ([]domain.VerificationRecord, error) {
	var out []domain.VerificationRecord
	for _, p := range domain.Platforms() {
		rec, err := d.GetVerification(p)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ─── Catalog Snapshot ───────────────────────────────────────────────────────

// ReplaceSnapshot swaps the persisted catalog for the newly fetched one.
// The replacement is unconditional, whether or not anything changed.
func (d *DB) ReplaceSnapshot(cat domain.Catalog, fetchedAt time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM code_snapshot`); err != nil {
		return err
	}

	for _, game := range domain.Games() {
		for _, e := range cat.ForGame(game) {
			_, err := tx.Exec(
				`INSERT OR REPLACE INTO code_snapshot
				 (game, code, title, description, rewards, status, type, date, added_at, fetched_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				string(game), e.Code, e.Title, e.Description, e.Rewards,
				e.Status, e.Type, e.Date, e.AddedAt, fetchedAt.Unix(),
			)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return d.SetEngagement("snapshot_at", strconv.FormatInt(fetchedAt.Unix(), 10))
}

// LoadSnapshot returns the last persisted catalog, newest codes first.
func (d *DB) LoadSnapshot() (domain.Catalog, error) {
	var cat domain.Catalog

	rows, err := d.db.Query(
		`SELECT game, code, title, description, rewards, status, type, date, added_at
		 FROM code_snapshot ORDER BY added_at DESC, code ASC`,
	)
	if err != nil {
		return cat, err
	}
	defer rows.Close()

	for rows.Next() {
		var game string
		var e domain.CodeEntry
		if err := rows.Scan(&game, &e.Code, &e.Title, &e.Description,
			&e.Rewards, &e.Status, &e.Type, &e.Date, &e.AddedAt); err != nil {
			return cat, err
		}
		g := domain.Game(game)
		cat.SetGame(g, append(cat.ForGame(g), e))
	}
	return cat, rows.Err()
}

// HasSnapshot reports whether any fetch has ever been persisted. This is
// distinct from the snapshot being empty: a first fetch with zero codes
// still establishes a baseline.
func (d *DB) HasSnapshot() (bool, error) {
	v, err := d.GetEngagement("snapshot_at")
	return v != "", err
}

// ─── Preferences ────────────────────────────────────────────────────────────

// GetPreferences loads the persisted preference fields.
func (d *DB) GetPreferences() (domain.Preferences, error) {
	prefs := domain.DefaultPreferences()

	if v, err := d.GetEngagement("pref_theme"); err != nil {
		return prefs, err
	} else if v != "" {
		prefs.Theme = v
	}
	if v, err := d.GetEngagement("pref_favorite_games"); err != nil {
		return prefs, err
	} else if v != "" {
		for _, g := range strings.Split(v, ",") {
			prefs.FavoriteGames = append(prefs.FavoriteGames, domain.Game(g))
		}
	}
	if v, err := d.GetEngagement("pref_notify_new_codes"); err != nil {
		return prefs, err
	} else {
		prefs.NotifyNewCodes = v == "1"
	}
	if v, err := d.GetEngagement("pref_notify_favorites"); err != nil {
		return prefs, err
	} else {
		prefs.NotifyFavsOnly = v == "1"
	}
	return prefs, nil
}

// SetPreferences persists the preference fields individually.
func (d *DB) SetPreferences(prefs domain.Preferences) error {
	games := make([]string, 0, len(prefs.FavoriteGames))
	for _, g := range prefs.FavoriteGames {
		games = append(games, string(g))
	}
	pairs := map[string]string{
		"pref_theme":            prefs.Theme,
		"pref_favorite_games":   strings.Join(games, ","),
		"pref_notify_new_codes": boolStr(prefs.NotifyNewCodes),
		"pref_notify_favorites": boolStr(prefs.NotifyFavsOnly),
	}
	for k, v := range pairs {
		if err := d.SetEngagement(k, v); err != nil {
			return err
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
