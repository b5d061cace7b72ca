package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Catalog errors
	ErrUnknownAchievement = errors.New("unknown achievement")
	ErrInvalidCatalog     = errors.New("invalid achievement catalog")

	// Event errors
	ErrUnknownEvent  = errors.New("unknown event kind")
	ErrInvalidDayKey = errors.New("invalid day key")

	// Identity errors
	ErrNoIdentity = errors.New("no current user, sync disabled")

	// Remote store errors
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("document is not a JSON object")
	ErrInvalidKey       = errors.New("invalid document key")
)
