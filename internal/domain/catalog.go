package domain

import (
	"net/url"
	"strings"
	"time"
)

// ─── Catalog Types ──────────────────────────────────────────────────────────
// The remote source returns one JSON object with a per-game code array for
// each supported game plus bookkeeping fields.

// Game identifies a supported game.
type Game string

const (
	GameGenshin Game = "genshin"
	GameHSR     Game = "hsr"
	GameZZZ     Game = "zzz"
)

// Games returns all supported games in display order.
func Games() []Game {
	return []Game{GameGenshin, GameHSR, GameZZZ}
}

// ValidGame reports whether g is a supported game identifier.
func ValidGame(g Game) bool {
	switch g {
	case GameGenshin, GameHSR, GameZZZ:
		return true
	}
	return false
}

// DisplayName returns the human-readable game name.
func (g Game) DisplayName() string {
	switch g {
	case GameGenshin:
		return "Genshin Impact"
	case GameHSR:
		return "Honkai: Star Rail"
	case GameZZZ:
		return "Zenless Zone Zero"
	}
	return string(g)
}

// RedeemURL returns the game's redemption page templated with the code.
func (g Game) RedeemURL(code string) string {
	base := map[Game]string{
		GameGenshin: "https://genshin.hoyoverse.com/m/en/gift?code=",
		GameHSR:     "https://hsr.hoyoverse.com/gift?code=",
		GameZZZ:     "https://zenless.hoyoverse.com/redemption?code=",
	}[g]
	if base == "" {
		return ""
	}
	return base + url.QueryEscape(code)
}

// CodeEntry is one redemption code as published by the remote source.
// Identity for de-duplication is (game, code); AddedAt is a tiebreaker only.
type CodeEntry struct {
	Code        string `json:"code"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Rewards     string `json:"rewards,omitempty"`
	Status      string `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
	Date        string `json:"date,omitempty"`
	AddedAt     int64  `json:"added_at,omitempty"` // unix seconds
}

// Catalog is the full per-game code collection from one fetch.
type Catalog struct {
	Genshin []CodeEntry `json:"genshin"`
	HSR     []CodeEntry `json:"hsr"`
	ZZZ     []CodeEntry `json:"zzz"`

	Retcode        int    `json:"retcode"`
	PreviousUpdate string `json:"previous_update,omitempty"`
	LatestUpdate   string `json:"latest_update,omitempty"`
}

// ForGame returns the code entries for one game.
func (c Catalog) ForGame(g Game) []CodeEntry {
	switch g {
	case GameGenshin:
		return c.Genshin
	case GameHSR:
		return c.HSR
	case GameZZZ:
		return c.ZZZ
	}
	return nil
}

// SetGame replaces the code entries for one game.
func (c *Catalog) SetGame(g Game, entries []CodeEntry) {
	switch g {
	case GameGenshin:
		c.Genshin = entries
	case GameHSR:
		c.HSR = entries
	case GameZZZ:
		c.ZZZ = entries
	}
}

// Empty reports whether the catalog carries no codes at all.
func (c Catalog) Empty() bool {
	return len(c.Genshin) == 0 && len(c.HSR) == 0 && len(c.ZZZ) == 0
}

// NewCode is a catalog entry first seen in the latest fetch.
type NewCode struct {
	Game  Game      `json:"game"`
	Entry CodeEntry `json:"entry"`
}

// CodeKey builds the composite (game, code) identity used by the
// redeemed-codes set and the snapshot diff.
func CodeKey(g Game, code string) string {
	return string(g) + ":" + code
}

// ─── Presentation Heuristics ────────────────────────────────────────────────

// permanent codes that never expire, one per game.
var permanentCodes = map[string]bool{
	"genshingift":  true,
	"starrailgift": true,
	"zenlessgift":  true,
}

// CodeType classifies an entry as permanent, event, or temporary.
// Explicit type wins; otherwise a keyword heuristic over title/description.
func CodeType(e CodeEntry) string {
	if e.Type != "" {
		return e.Type
	}
	if permanentCodes[strings.ToLower(e.Code)] {
		return "permanent"
	}
	text := strings.ToLower(e.Title + " " + e.Description)
	switch {
	case strings.Contains(text, "event") || strings.Contains(text, "limited"):
		return "event"
	case strings.Contains(text, "permanent") || strings.Contains(text, "general"):
		return "permanent"
	}
	return "temporary"
}

// RecentlyAdded reports whether the entry was published within the last
// three days, which is what the "NEW" badge keys off.
func RecentlyAdded(e CodeEntry, now time.Time) bool {
	var published time.Time
	switch {
	case e.AddedAt > 0:
		published = time.Unix(e.AddedAt, 0)
	case e.Date != "":
		var err error
		published, err = time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return false
		}
	default:
		return false
	}
	return published.After(now.AddDate(0, 0, -3))
}

// Working reports whether the code is believed redeemable. An explicit
// status wins; otherwise recently-added codes are assumed working and
// permanent codes always work.
func Working(e CodeEntry, now time.Time) bool {
	if e.Status != "" {
		s := strings.ToLower(e.Status)
		return s == "working" || s == "active"
	}
	if CodeType(e) == "permanent" {
		return true
	}
	return RecentlyAdded(e, now)
}

// ─── User Preferences ───────────────────────────────────────────────────────

// Preferences are the persisted per-profile settings.
type Preferences struct {
	FavoriteGames  []Game `json:"favorite_games"`
	NotifyNewCodes bool   `json:"notify_new_codes"`
	NotifyFavsOnly bool   `json:"notify_favorites_only"`
	Theme          string `json:"theme"`
}

// DefaultPreferences returns the first-run preference set.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "dark"}
}

// IsFavorite reports whether g is in the favorite set.
func (p Preferences) IsFavorite(g Game) bool {
	for _, f := range p.FavoriteGames {
		if f == g {
			return true
		}
	}
	return false
}
