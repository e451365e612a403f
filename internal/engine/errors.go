package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession           = errors.New("no active session")
	ErrInsufficientFunds   = errors.New("insufficient coins")
	ErrBudgetExceeded      = errors.New("distribution exceeds available attribute points")
	ErrTaskNotFound        = errors.New("task not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrSystemAchievement   = errors.New("system achievements cannot be modified")
	ErrQuotaExceeded       = errors.New("monthly reward-bearing custom achievement quota reached")
)

// LevelGateError is returned when the session level is below an item's
// requirement.
type LevelGateError struct {
	RequiredLevel int
	CurrentLevel  int
}

func (e LevelGateError) Error() string {
	return fmt.Sprintf("requires level %d (currently %d)", e.RequiredLevel, e.CurrentLevel)
}

// PurchaseError carries the first failing purchase check. Purchases fail
// before any mutation, so callers can surface Reason verbatim.
type PurchaseError struct {
	Reason string
}

func (e PurchaseError) Error() string { return e.Reason }
