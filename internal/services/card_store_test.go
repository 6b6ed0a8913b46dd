package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/questbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCardStore_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewCardStore(db)
	cardID := uuid.New()

	t.Run("found", func(t *testing.T) {
		balance, _ := models.ParseMoney("250.00")
		card := &models.Card{
			ID:             cardID,
			Number:         "1111222233334444",
			Owner:          "IVAN PETROV",
			ExpirationDate: "08/30",
			Status:         models.CardStatusActive,
			Balance:        balance,
			UserID:         uuid.New(),
			CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		mock.ExpectQuery(`FROM cards WHERE id = \$1`).
			WithArgs(cardID).
			WillReturnRows(cardRow(card))

		found, err := store.Find(context.Background(), cardID)
		assert.NoError(t, err)
		assert.Equal(t, cardID, found.ID)
		assert.Equal(t, "250.00", found.Balance.String())
		assert.Equal(t, models.CardStatusActive, found.Status)
	})

	t.Run("missing row maps to the not-found sentinel", func(t *testing.T) {
		mock.ExpectQuery(`FROM cards WHERE id = \$1`).
			WithArgs(cardID).
			WillReturnRows(sqlmock.NewRows(cardTestColumns))

		_, err := store.Find(context.Background(), cardID)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})
}

func TestCardStore_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewCardStore(db)
	balance, _ := models.ParseMoney("10.00")
	card := &models.Card{
		ID:      uuid.New(),
		Owner:   "IVAN PETROV",
		Status:  models.CardStatusBlocked,
		Balance: balance,
	}

	t.Run("zero rows affected is not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE cards SET`).
			WithArgs(card.ID, "IVAN PETROV", "BLOCKED", "10.00").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		assert.ErrorIs(t, store.Update(context.Background(), tx, card), ErrCardNotFound)
	})
}

func TestCardStore_FindAllByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewCardStore(db)
	firstID := uuid.MustParse("11111111-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	secondID := uuid.MustParse("22222222-aaaa-aaaa-aaaa-aaaaaaaaaaaa")

	balance, _ := models.ParseMoney("0.00")
	rows := sqlmock.NewRows(cardTestColumns)
	for _, id := range []uuid.UUID{firstID, secondID} {
		rows.AddRow(id.String(), "1111222233334444", "IVAN PETROV", "08/30",
			"ACTIVE", balance.String(), uuid.New().String(), time.Now())
	}

	mock.ExpectQuery(`FROM cards WHERE id = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{firstID.String(), secondID.String()})).
		WillReturnRows(rows)

	cards, err := store.FindAllByIDs(context.Background(), []uuid.UUID{firstID, secondID})
	assert.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestCardStore_ExistsByNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewCardStore(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM cards WHERE number = \$1\)`).
		WithArgs("1111222233334444").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := store.ExistsByNumber(context.Background(), "1111222233334444")
	assert.NoError(t, err)
	assert.True(t, taken)
}
