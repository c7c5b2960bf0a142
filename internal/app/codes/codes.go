// Package codes orchestrates catalog refreshes: fetch, diff against the
// last snapshot, persist, and queue new-code notifications.
package codes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/fetcher"
	"github.com/codeforge-app/codeforge/internal/infra/metrics"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// Source abstracts the catalog fetcher so tests can stub the network.
type Source interface {
	Fetch(ctx context.Context) (domain.Catalog, string, error)
}

// Service manages the local code catalog.
type Service struct {
	db     *sqlite.DB
	source Source
}

// NewService creates a catalog service.
func NewService(db *sqlite.DB, source Source) *Service {
	return &Service{db: db, source: source}
}

// RefreshResult reports one refresh cycle.
type RefreshResult struct {
	Catalog   domain.Catalog   `json:"catalog"`
	Source    string           `json:"source"`
	NewCodes  []domain.NewCode `json:"new_codes,omitempty"`
	FromCache bool             `json:"from_cache"`
}

// Refresh fetches the catalog, diffs it against the stored snapshot,
// persists the result, and queues notifications for codes first seen.
// When every hop fails the last snapshot is served instead, or the
// permanent fallback codes if nothing was ever fetched; both cases
// still return ErrSourceOffline so callers can surface staleness.
func (s *Service) Refresh(ctx context.Context, now time.Time) (RefreshResult, error) {
	cat, source, err := s.source.Fetch(ctx)
	if err != nil {
		metrics.CatalogFetches.WithLabelValues("none", "error").Inc()

		has, dbErr := s.db.HasSnapshot()
		if dbErr != nil {
			return RefreshResult{}, dbErr
		}
		if has {
			cached, dbErr := s.db.LoadSnapshot()
			if dbErr != nil {
				return RefreshResult{}, dbErr
			}
			log.Printf("[codes] source offline, serving cached snapshot")
			return RefreshResult{Catalog: cached, Source: "cache", FromCache: true}, err
		}
		log.Printf("[codes] source offline with no snapshot, serving permanent codes")
		return RefreshResult{Catalog: fetcher.Defaults(), Source: "fallback", FromCache: true}, err
	}
	metrics.CatalogFetches.WithLabelValues(source, "ok").Inc()

	hasBaseline, err := s.db.HasSnapshot()
	if err != nil {
		return RefreshResult{}, err
	}

	prev, err := s.db.LoadSnapshot()
	if err != nil {
		return RefreshResult{}, err
	}

	s.stampAddedAt(&cat, prev, hasBaseline, now)

	res := RefreshResult{Catalog: cat, Source: source}
	// The very first fetch only establishes the baseline; nothing is
	// "new" when there was nothing to compare against.
	if hasBaseline {
		res.NewCodes = fetcher.NewEntries(prev, cat)
	}

	if err := s.db.ReplaceSnapshot(cat, now); err != nil {
		return res, fmt.Errorf("persist snapshot: %w", err)
	}

	for _, nc := range res.NewCodes {
		metrics.NewCodesFound.WithLabelValues(string(nc.Game)).Inc()
	}
	if err := s.notifyNewCodes(res.NewCodes, now); err != nil {
		return res, err
	}
	return res, nil
}

// Catalog returns the stored snapshot, refreshing first if none exists.
func (s *Service) Catalog(ctx context.Context, now time.Time) (domain.Catalog, error) {
	has, err := s.db.HasSnapshot()
	if err != nil {
		return domain.Catalog{}, err
	}
	if !has {
		res, err := s.Refresh(ctx, now)
		if err != nil && !errors.Is(err, domain.ErrSourceOffline) {
			return domain.Catalog{}, err
		}
		return res.Catalog, nil
	}
	return s.db.LoadSnapshot()
}

// ForGame returns one game's codes from the current catalog.
func (s *Service) ForGame(ctx context.Context, game domain.Game, now time.Time) ([]domain.CodeEntry, error) {
	if !domain.ValidGame(game) {
		return nil, domain.ErrUnknownGame
	}
	cat, err := s.Catalog(ctx, now)
	if err != nil {
		return nil, err
	}
	entries := cat.ForGame(game)
	if len(entries) == 0 {
		return nil, domain.ErrNoCodesForGame
	}
	return entries, nil
}

// stampAddedAt carries first-seen timestamps across refreshes. A code
// already in the snapshot keeps its original timestamp; a code first
// seen now is stamped with the fetch time so the "new" badge has
// something to key off. The baseline fetch is left unstamped, otherwise
// every historical code would light up as new on first run.
func (s *Service) stampAddedAt(cat *domain.Catalog, prev domain.Catalog, hasBaseline bool, now time.Time) {
	known := make(map[string]int64)
	for _, game := range domain.Games() {
		for _, e := range prev.ForGame(game) {
			known[domain.CodeKey(game, e.Code)] = e.AddedAt
		}
	}

	for _, game := range domain.Games() {
		entries := cat.ForGame(game)
		for i := range entries {
			if entries[i].AddedAt != 0 {
				continue
			}
			if at, ok := known[domain.CodeKey(game, entries[i].Code)]; ok {
				entries[i].AddedAt = at
			} else if hasBaseline {
				entries[i].AddedAt = now.Unix()
			}
		}
		cat.SetGame(game, entries)
	}
}

// notifyNewCodes queues one notification per new code, honoring the
// notification preferences.
func (s *Service) notifyNewCodes(fresh []domain.NewCode, now time.Time) error {
	if len(fresh) == 0 {
		return nil
	}
	prefs, err := s.db.GetPreferences()
	if err != nil {
		return err
	}
	if !prefs.NotifyNewCodes {
		return nil
	}

	for _, nc := range fresh {
		if prefs.NotifyFavsOnly && !prefs.IsFavorite(nc.Game) {
			continue
		}
		body := nc.Entry.Rewards
		if body == "" {
			body = nc.Entry.Description
		}
		_, err := s.db.InsertNotification(domain.Notification{
			Type:      domain.NotifyNewCodes,
			Title:     fmt.Sprintf("New %s code: %s", nc.Game.DisplayName(), nc.Entry.Code),
			Body:      body,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
