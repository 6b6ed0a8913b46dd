package services

import (
	"context"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/questbank/backend/internal/models"
)

// stubCardStore overrides the methods a test cares about; calling anything
// else panics through the nil embedded interface.
type stubCardStore struct {
	CardStore
	existsByNumber func(ctx context.Context, number string) (bool, error)
}

func (s *stubCardStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	return s.existsByNumber(ctx, number)
}

// zeroReader is an endless source of zero bytes for deterministic card
// number generation.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

var cardTestColumns = []string{"id", "number", "owner", "expiration_date", "status", "balance", "user_id", "created_at"}

func cardRow(card *models.Card) *sqlmock.Rows {
	return sqlmock.NewRows(cardTestColumns).AddRow(
		card.ID.String(), card.Number, card.Owner, card.ExpirationDate,
		string(card.Status), card.Balance.String(), card.UserID.String(), card.CreatedAt)
}

func fixedClock(year int, month time.Month) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
	}
}
