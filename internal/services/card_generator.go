package services

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	cardNumberLength  = 16
	maxNumberAttempts = 100
	cardValidityYears = 4
)

// CardGenerator produces card numbers and expiration dates. The random
// source is injected so tests can drive it deterministically.
type CardGenerator struct {
	cards CardStore
	rand  io.Reader
	now   func() time.Time
}

func NewCardGenerator(cards CardStore) *CardGenerator {
	return &CardGenerator{
		cards: cards,
		rand:  cryptorand.Reader,
		now:   time.Now,
	}
}

// Generate returns a unique 16-digit card number and an MM/YY expiration
// date four years out. Uniqueness is retried a bounded number of times and
// fails closed.
func (g *CardGenerator) Generate(ctx context.Context) (number, expirationDate string, err error) {
	for attempts := 0; attempts < maxNumberAttempts; attempts++ {
		candidate, err := g.randomNumber()
		if err != nil {
			return "", "", err
		}
		taken, err := g.cards.ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", "", err
		}
		if !taken {
			return candidate, g.now().AddDate(cardValidityYears, 0, 0).Format("01/06"), nil
		}
	}
	return "", "", fmt.Errorf("unable to generate unique card number after %d attempts", maxNumberAttempts)
}

func (g *CardGenerator) randomNumber() (string, error) {
	raw := make([]byte, cardNumberLength)
	if _, err := io.ReadFull(g.rand, raw); err != nil {
		return "", fmt.Errorf("read random digits: %w", err)
	}
	digits := make([]byte, cardNumberLength)
	for i, b := range raw {
		digits[i] = b%10 + '0'
	}
	return string(digits), nil
}
