package models

import (
	"time"

	"github.com/google/uuid"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Card is a bank card row. The full 16-digit number is stored; presentation
// layers must use MaskedNumber. A card belongs to exactly one user for its
// lifetime and its balance is only mutated under a row lock.
type Card struct {
	ID             uuid.UUID  `json:"id"`
	Number         string     `json:"-"`
	Owner          string     `json:"owner"`
	ExpirationDate string     `json:"expirationDate"` // MM/YY
	Status         CardStatus `json:"status"`
	Balance        Money      `json:"balance"`
	UserID         uuid.UUID  `json:"userId"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// MaskedNumber hides all but the last four digits.
func (c *Card) MaskedNumber() string {
	if len(c.Number) < 4 {
		return "****"
	}
	return "**** **** **** " + c.Number[len(c.Number)-4:]
}
