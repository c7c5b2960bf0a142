// Package sqlite provides SQLite-based persistent storage for CodeForge.
// Uses WAL mode for concurrent reads and crash-safe writes. Engagement
// state is stored field-by-field (a KV table for scalars, dedicated tables
// for sets and nested records) rather than as one blob, so partial schema
// growth never loses nested data on load.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/codeforge-app/codeforge/internal/domain"
)

// schemaVersion is bumped whenever a migration is appended.
const schemaVersion = 1

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations and records the schema version.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Scalar engagement state (xp, dates, counters, profile, prefs)
		`CREATE TABLE IF NOT EXISTS engagement (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Unlocked achievements — insertion-once, never removed
		`CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			unlocked_at INTEGER NOT NULL,
			notified    BOOLEAN DEFAULT 0
		)`,

		// Anti-farming de-duplication sets
		`CREATE TABLE IF NOT EXISTS redeemed_codes (
			game        TEXT NOT NULL,
			code        TEXT NOT NULL,
			rewarded_at INTEGER NOT NULL,
			PRIMARY KEY (game, code)
		)`,
		`CREATE TABLE IF NOT EXISTS voted_codes (
			card_id   TEXT NOT NULL,
			direction TEXT NOT NULL,
			voted_at  INTEGER NOT NULL,
			PRIMARY KEY (card_id, direction)
		)`,
		`CREATE TABLE IF NOT EXISTS selected_games (
			game TEXT NOT NULL,
			day  TEXT NOT NULL,
			PRIMARY KEY (game, day)
		)`,

		// Per-platform simulated verification records
		`CREATE TABLE IF NOT EXISTS verifications (
			platform    TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			username    TEXT NOT NULL DEFAULT '',
			submit_time INTEGER NOT NULL DEFAULT 0,
			due_at      INTEGER NOT NULL DEFAULT 0,
			outcome     TEXT NOT NULL DEFAULT '',
			attempts    INTEGER NOT NULL DEFAULT 0
		)`,

		// Last successfully fetched catalog, for new-code detection
		`CREATE TABLE IF NOT EXISTS code_snapshot (
			game        TEXT NOT NULL,
			code        TEXT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			rewards     TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			date        TEXT NOT NULL DEFAULT '',
			added_at    INTEGER NOT NULL DEFAULT 0,
			fetched_at  INTEGER NOT NULL,
			PRIMARY KEY (game, code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_game ON code_snapshot(game)`,

		// Notification log
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_created ON notifications(created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	_, err := d.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		strconv.Itoa(schemaVersion),
	)
	return err
}

// ─── Engagement KV ──────────────────────────────────────────────────────────

// SetEngagement stores a key-value pair in the engagement table.
func (d *DB) SetEngagement(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO engagement (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// GetEngagement retrieves a value; missing keys return "".
func (d *DB) GetEngagement(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM engagement WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification appends a notification and returns its ID.
func (d *DB) InsertNotification(n domain.Notification) (int64, error) {
	res, err := d.db.Exec(
		`INSERT INTO notifications (type, title, body, created_at, shown)
		 VALUES (?, ?, ?, ?, 0)`,
		string(n.Type), n.Title, n.Body, n.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPendingNotifications returns unshown notifications, oldest first.
func (d *DB) ListPendingNotifications(limit int) ([]domain.Notification, error) {
	rows, err := d.db.Query(
		`SELECT id, type, title, body, created_at, shown
		 FROM notifications WHERE shown = 0
		 ORDER BY created_at ASC, id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		var created int64
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.Body, &created, &n.Shown); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		n.CreatedAt = time.Unix(created, 0)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationShown marks a notification as shown.
func (d *DB) MarkNotificationShown(id int64) error {
	_, err := d.db.Exec(`UPDATE notifications SET shown = 1 WHERE id = ?`, id)
	return err
}
