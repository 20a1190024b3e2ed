package logic

import "errors"

// Sentinel errors for ranking operations. Wrap with fmt.Errorf("…: %w", err)
// when returning from service methods; handlers map them to HTTP statuses
// with errors.Is.
var (
	// ErrUserNotFound indicates the referenced identity does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRankingNotFound indicates the identity exists but has never been
	// scored, so there is no leaderboard entry for it yet.
	ErrRankingNotFound = errors.New("ranking not found")
)
