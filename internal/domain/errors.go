package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Ledger errors
	ErrNonPositiveXP = errors.New("xp amount must be positive")
	ErrNameTooShort  = errors.New("display name must be at least 2 characters")

	// Achievement errors
	ErrAchievementUnknown = errors.New("achievement not defined")
	ErrNotClaimable       = errors.New("achievement has no claim step")
	ErrClaimRequirement   = errors.New("claim requirement not met")
	ErrAlreadyClaimed     = errors.New("achievement already claimed")

	// Verification errors
	ErrUnknownPlatform = errors.New("unknown social platform")
	ErrEmptyUsername   = errors.New("username must not be empty")
	ErrAlreadyPending  = errors.New("verification already pending")
	ErrAlreadyVerified = errors.New("platform already verified")

	// Catalog errors
	ErrUnknownGame    = errors.New("unknown game")
	ErrSourceOffline  = errors.New("code source unreachable")
	ErrBadPayload     = errors.New("response is not a valid code catalog")
	ErrHTMLResponse   = errors.New("response body is an HTML page, not JSON")
	ErrNoCodesForGame = errors.New("no codes available for this game")
)
