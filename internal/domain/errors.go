package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.
// Precondition failures leave the state untouched; callers decide whether
// to surface them.

var (
	// Catalog errors
	ErrBannerNotFound    = errors.New("banner not found")
	ErrCardNotFound      = errors.New("card definition not found")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrUnknownItem       = errors.New("unknown xp item")
	ErrInvalidDefinition = errors.New("invalid catalog definition")

	// Currency errors
	ErrInsufficientGems  = errors.New("not enough gems")
	ErrInsufficientCoins = errors.New("not enough coins")

	// Collection errors
	ErrInstanceNotFound   = errors.New("card instance not found")
	ErrItemNotOwned       = errors.New("xp item not owned")
	ErrDefinitionMismatch = errors.New("limit break requires two copies of the same card")
	ErrSameInstance       = errors.New("limit break requires two distinct instances")
	ErrSquadFull          = errors.New("squad is full")

	// Progression errors
	ErrAlreadyClaimed = errors.New("daily reward already claimed today")
	ErrNotesTooShort  = errors.New("notes are too short to earn a reward")

	// Mini-game errors
	ErrNoLeader       = errors.New("active squad has no leader")
	ErrInputLocked    = errors.New("input locked")
	ErrGameOver       = errors.New("game is over")
	ErrNoStudyContent = errors.New("no study content")
	ErrGameNotFound   = errors.New("game session not found")
	ErrInvalidMove    = errors.New("invalid move")

	// Access errors
	ErrNotDev = errors.New("dev tools are not enabled for this user")

	// Storage errors
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)
