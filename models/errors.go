package models

import "errors"

var (
	// ErrProgressNotFound — no UserProgress row exists for the user. The caller
	// must create the row (signup path) before sending gameplay events.
	ErrProgressNotFound = errors.New("progress record not found")

	// ErrTitleNotFound — a title code does not exist in the catalog.
	ErrTitleNotFound = errors.New("title definition not found")

	// ErrInvalidEvent — a gameplay event is malformed (e.g. solve_success
	// without its solve payload). Nothing is persisted.
	ErrInvalidEvent = errors.New("invalid gameplay event")

	// ErrDuplicateUnlock — an achievement/title insert hit the unique constraint.
	// Benign under races; award sites swallow it.
	ErrDuplicateUnlock = errors.New("unlock already recorded")

	// ErrInvariantViolation — a bounded loop (level curve, unlock fixed-point)
	// exceeded its cap. Should never happen with the shipped reward tables.
	ErrInvariantViolation = errors.New("progression invariant violated")
)
