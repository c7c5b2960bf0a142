// Package api provides the HTTP server for CodeForge.
// It exposes the code catalog and the engagement REST API consumed by
// the web UI and the CLI.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeforge-app/codeforge/internal/app/codes"
	"github.com/codeforge-app/codeforge/internal/app/engagement"
	"github.com/codeforge-app/codeforge/internal/domain"
)

// Version is the API version string reported by /api/version.
const Version = "0.1.0"

// Server is the CodeForge HTTP API server.
type Server struct {
	codes          *codes.Service
	engagement     *EngagementAPI
	corsOrigins    []string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(codeSvc *codes.Service) *Server {
	return &Server{codes: codeSvc}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetEngagement sets the engagement API services.
func (s *Server) SetEngagement(e *EngagementAPI) { s.engagement = e }

// SetCORSOrigins restricts CORS to the given origins. Empty or "*"
// allows any origin.
func (s *Server) SetCORSOrigins(origins []string) { s.corsOrigins = origins }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "CodeForge is running"})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/api/codes", func(r chi.Router) {
		r.Get("/", s.handleCatalog)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/{game}", s.handleGameCodes)
		r.Get("/{game}/{code}/votes", s.handleVotes)
	})

	if s.engagement != nil {
		r.Route("/api/engagement", func(r chi.Router) {
			r.Get("/summary", s.engagement.HandleSummary)
			r.Get("/achievements", s.engagement.HandleAchievements)
			r.Get("/leaderboard", s.engagement.HandleLeaderboard)

			r.Post("/profile", s.engagement.HandleSetProfile)
			r.Post("/visit", s.engagement.HandleVisit)
			r.Post("/copy", s.engagement.HandleCopy)
			r.Post("/vote", s.engagement.HandleVote)
			r.Post("/select", s.engagement.HandleSelectGame)
			r.Post("/ad-click", s.engagement.HandleAdClick)
			r.Post("/claim/{id}", s.engagement.HandleClaim)
		})

		r.Route("/api/verifications", func(r chi.Router) {
			r.Get("/", s.engagement.HandleVerifications)
			r.Post("/{platform}", s.engagement.HandleVerifySubmit)
			r.Post("/{platform}/reset", s.engagement.HandleVerifyReset)
		})

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", s.engagement.HandleNotifications)
			r.Post("/{id}/shown", s.engagement.HandleNotificationShown)
		})

		r.Get("/api/preferences", s.engagement.HandleGetPreferences)
		r.Put("/api/preferences", s.engagement.HandleSetPreferences)
	}

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// handleCatalog returns the full catalog.
// GET /api/codes
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := s.codes.Catalog(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// handleRefresh forces a refresh cycle.
// POST /api/codes/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.codes.Refresh(r.Context(), time.Now())
	if err != nil && !res.FromCache {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	// Offline-but-cached still answers 200 so the UI keeps working.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":     res.Source,
		"from_cache": res.FromCache,
		"new_codes":  res.NewCodes,
	})
}

// handleGameCodes returns one game's codes with presentation fields.
// GET /api/codes/{game}
func (s *Server) handleGameCodes(w http.ResponseWriter, r *http.Request) {
	game := domain.Game(chi.URLParam(r, "game"))
	now := time.Now()

	entries, err := s.codes.ForGame(r.Context(), game, now)
	switch {
	case errors.Is(err, domain.ErrUnknownGame):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, domain.ErrNoCodesForGame):
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"game": game, "codes": []interface{}{},
		})
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	type codeView struct {
		domain.CodeEntry
		CodeType  string `json:"code_type"`
		New       bool   `json:"new"`
		Working   bool   `json:"working"`
		RedeemURL string `json:"redeem_url"`
	}
	views := make([]codeView, 0, len(entries))
	for _, e := range entries {
		views = append(views, codeView{
			CodeEntry: e,
			CodeType:  domain.CodeType(e),
			New:       domain.RecentlyAdded(e, now),
			Working:   domain.Working(e, now),
			RedeemURL: game.RedeemURL(e.Code),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"game":  game,
		"codes": views,
	})
}

// handleVotes returns the fabricated vote counts for a code card.
// The hash input mirrors what the card shows, so counts stay stable
// across reloads.
// GET /api/codes/{game}/{code}/votes
func (s *Server) handleVotes(w http.ResponseWriter, r *http.Request) {
	game := domain.Game(chi.URLParam(r, "game"))
	if !domain.ValidGame(game) {
		writeError(w, http.StatusNotFound, domain.ErrUnknownGame.Error())
		return
	}
	code := chi.URLParam(r, "code")

	title, date := code, ""
	if cat, err := s.codes.Catalog(r.Context(), time.Now()); err == nil {
		for _, e := range cat.ForGame(game) {
			if e.Code == code {
				if e.Title != "" {
					title = e.Title
				}
				date = e.Date
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, engagement.FakeVoteCounts(title, date))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the browser UI, honoring the
// configured origin allowlist.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin resolves the Access-Control-Allow-Origin value for a
// request origin. An empty allowlist stays wide open.
func (s *Server) allowedOrigin(requestOrigin string) string {
	if len(s.corsOrigins) == 0 {
		return "*"
	}
	for _, o := range s.corsOrigins {
		if o == "*" {
			return "*"
		}
		if o == requestOrigin {
			return requestOrigin
		}
	}
	return ""
}
