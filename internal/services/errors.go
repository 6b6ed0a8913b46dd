package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/questbank/backend/internal/models"
)

// Domain outcomes are plain values, not infrastructure failures. Callers
// branch with errors.Is / errors.As; nothing here is ever retried internally.
var (
	ErrCardNotFound = errors.New("card not found")
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports malformed input or a violated business rule.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnauthorizedError reports that the acting user does not own the card.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return e.Reason
}

// InsufficientFundsError carries the available and required amounts for
// display.
type InsufficientFundsError struct {
	Available models.Money
	Required  models.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds. Available: %s, Required: %s", e.Available, e.Required)
}

// ExpiredCardError reports a lazily detected expiration. The status flip to
// EXPIRED is committed even though the triggering operation is rejected.
type ExpiredCardError struct {
	CardID uuid.UUID
	Role   string // "Source" or "Destination" in a transfer, "Card" otherwise
}

func (e *ExpiredCardError) Error() string {
	return fmt.Sprintf("%s card %s is expired", e.Role, e.CardID)
}
