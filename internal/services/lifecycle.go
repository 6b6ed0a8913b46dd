package services

import (
	"strings"
	"time"

	"github.com/questbank/backend/internal/models"
)

// Card status rules. Transitions are one-directional in practice:
// ACTIVE -> BLOCKED, ACTIVE/BLOCKED -> EXPIRED. Nothing leaves EXPIRED and
// re-applying the current status is rejected, not a no-op.

// ParseStatus maps an API status string onto a CardStatus.
func ParseStatus(s string) (models.CardStatus, error) {
	switch models.CardStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case models.CardStatusActive:
		return models.CardStatusActive, nil
	case models.CardStatusBlocked:
		return models.CardStatusBlocked, nil
	case models.CardStatusExpired:
		return models.CardStatusExpired, nil
	default:
		return "", validationErrorf("Status: %s is not exists", strings.ToUpper(strings.TrimSpace(s)))
	}
}

// ChangeStatus applies a status transition to a card value.
func ChangeStatus(card *models.Card, target models.CardStatus) error {
	if card.Status == target {
		return validationErrorf("Card is already %s", target)
	}
	if card.Status == models.CardStatusExpired {
		return validationErrorf("Card is %s and cannot change status", models.CardStatusExpired)
	}
	card.Status = target
	return nil
}

// ExpiryMonth parses an MM/YY expiration string into the first day of the
// expiration month.
func ExpiryMonth(expirationDate string) (time.Time, error) {
	trimmed := strings.TrimSpace(expirationDate)
	if trimmed == "" {
		return time.Time{}, validationErrorf("Expiration date cannot be empty")
	}
	t, err := time.Parse("01/06", trimmed)
	if err != nil {
		return time.Time{}, validationErrorf("Invalid expiration date format: %s. Expected format: MM/YY (e.g., 08/26)", trimmed)
	}
	return t, nil
}

// IsExpired reports whether a card dated MM/YY has expired as of now.
// A card stays valid through the last day of its expiration month.
func IsExpired(expirationDate string, now time.Time) (bool, error) {
	expiry, err := ExpiryMonth(expirationDate)
	if err != nil {
		return false, err
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return current.After(expiry), nil
}

// ReconcileExpiration flips a card to EXPIRED when its date has passed and
// reports whether a flip happened so the caller can persist it. Runs lazily
// at every point of use; there is no background sweep.
func ReconcileExpiration(card *models.Card, now time.Time) (bool, error) {
	if card.Status == models.CardStatusExpired {
		return false, nil
	}
	expired, err := IsExpired(card.ExpirationDate, now)
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}
	card.Status = models.CardStatusExpired
	return true, nil
}
