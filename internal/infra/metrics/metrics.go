// Package metrics exposes Prometheus counters for the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// XPAwarded counts XP granted, labeled by interaction kind.
	XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeforge",
		Name:      "xp_awarded_total",
		Help:      "Total XP awarded, by interaction kind.",
	}, []string{"kind"})

	// AchievementsUnlocked counts achievement unlocks.
	AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codeforge",
		Name:      "achievements_unlocked_total",
		Help:      "Total achievements unlocked.",
	})

	// CatalogFetches counts fetch attempts by serving hop and result.
	CatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeforge",
		Name:      "catalog_fetches_total",
		Help:      "Catalog fetch attempts, by source hop and result.",
	}, []string{"source", "result"})

	// NewCodesFound counts codes first seen by a refresh.
	NewCodesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeforge",
		Name:      "new_codes_total",
		Help:      "New redemption codes detected, by game.",
	}, []string{"game"})

	// VerificationTransitions counts verification state changes.
	VerificationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeforge",
		Name:      "verification_transitions_total",
		Help:      "Verification transitions applied by the due-sweep, by platform and status.",
	}, []string{"platform", "status"})
)
