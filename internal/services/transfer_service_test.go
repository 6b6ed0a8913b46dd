package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/questbank/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

var (
	transferFromID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	transferToID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	transferUserID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func transferFixtureCard(id uuid.UUID, balance string) *models.Card {
	money, _ := models.ParseMoney(balance)
	return &models.Card{
		ID:             id,
		Number:         "0000111122223333",
		Owner:          "IVAN PETROV",
		ExpirationDate: "08/30",
		Status:         models.CardStatusActive,
		Balance:        money,
		UserID:         transferUserID,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func expectOwnership(mock sqlmock.Sqlmock, cardID, userID uuid.UUID, owned bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM cards WHERE id = \$1 AND user_id = \$2\)`).
		WithArgs(cardID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(owned))
}

func expectLock(mock sqlmock.Sqlmock, card *models.Card) {
	mock.ExpectQuery(`FROM cards WHERE id = \$1 FOR UPDATE`).
		WithArgs(card.ID).
		WillReturnRows(cardRow(card))
}

func TestTransferService_Transfer(t *testing.T) {
	amount := func(s string) models.Money {
		m, err := models.ParseMoney(s)
		assert.NoError(t, err)
		return m
	}

	newService := func(t *testing.T) (*TransferService, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		service := NewTransferService(db, NewCardStore(db))
		service.now = fixedClock(2026, 8)
		return service, mock
	}

	t.Run("successful transfer conserves the total", func(t *testing.T) {
		service, mock := newService(t)
		from := transferFixtureCard(transferFromID, "1000.50")
		to := transferFixtureCard(transferToID, "0.00")

		mock.ExpectBegin()
		expectLock(mock, from)
		expectLock(mock, to)
		expectOwnership(mock, transferFromID, transferUserID, true)
		expectOwnership(mock, transferToID, transferUserID, true)
		mock.ExpectExec(`UPDATE cards SET owner = \$2, status = \$3, balance = \$4 WHERE id = \$1`).
			WithArgs(transferFromID, "IVAN PETROV", "ACTIVE", "500.00").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE cards SET owner = \$2, status = \$3, balance = \$4 WHERE id = \$1`).
			WithArgs(transferToID, "IVAN PETROV", "ACTIVE", "500.50").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Transfer(context.Background(), transferFromID, transferToID, transferUserID, amount("500.50"))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same identifiers are rejected before any query", func(t *testing.T) {
		service, mock := newService(t)

		err := service.Transfer(context.Background(), transferFromID, transferFromID, transferUserID, amount("10.00"))
		assert.EqualError(t, err, "The same identifiers are specified")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls everything back", func(t *testing.T) {
		service, mock := newService(t)
		from := transferFixtureCard(transferFromID, "1000.50")
		to := transferFixtureCard(transferToID, "0.00")

		mock.ExpectBegin()
		expectLock(mock, from)
		expectLock(mock, to)
		expectOwnership(mock, transferFromID, transferUserID, true)
		expectOwnership(mock, transferToID, transferUserID, true)
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), transferFromID, transferToID, transferUserID, amount("1000.51"))
		assert.EqualError(t, err, "Insufficient funds. Available: 1000.50, Required: 1000.51")

		var fundsErr *InsufficientFundsError
		assert.ErrorAs(t, err, &fundsErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign card is rejected", func(t *testing.T) {
		service, mock := newService(t)
		from := transferFixtureCard(transferFromID, "1000.50")
		to := transferFixtureCard(transferToID, "0.00")

		mock.ExpectBegin()
		expectLock(mock, from)
		expectLock(mock, to)
		expectOwnership(mock, transferFromID, transferUserID, false)
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), transferFromID, transferToID, transferUserID, amount("10.00"))
		assert.EqualError(t, err, "Card does not belong to user. Operation cancelled.")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive source card is rejected", func(t *testing.T) {
		service, mock := newService(t)
		from := transferFixtureCard(transferFromID, "1000.50")
		from.Status = models.CardStatusBlocked
		to := transferFixtureCard(transferToID, "0.00")

		mock.ExpectBegin()
		expectLock(mock, from)
		expectLock(mock, to)
		expectOwnership(mock, transferFromID, transferUserID, true)
		expectOwnership(mock, transferToID, transferUserID, true)
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), transferFromID, transferToID, transferUserID, amount("10.00"))
		assert.EqualError(t, err, "Source card is not active: BLOCKED")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lazily detected expiration is committed while the transfer fails", func(t *testing.T) {
		service, mock := newService(t)
		from := transferFixtureCard(transferFromID, "1000.50")
		from.ExpirationDate = "01/20"
		to := transferFixtureCard(transferToID, "0.00")

		mock.ExpectBegin()
		expectLock(mock, from)
		expectLock(mock, to)
		expectOwnership(mock, transferFromID, transferUserID, true)
		expectOwnership(mock, transferToID, transferUserID, true)
		mock.ExpectRollback()

		// The flip is persisted in its own transaction after the rollback.
		relocked := transferFixtureCard(transferFromID, "1000.50")
		relocked.ExpirationDate = "01/20"
		mock.ExpectBegin()
		expectLock(mock, relocked)
		mock.ExpectExec(`UPDATE cards SET owner = \$2, status = \$3, balance = \$4 WHERE id = \$1`).
			WithArgs(transferFromID, "IVAN PETROV", "EXPIRED", "1000.50").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Transfer(context.Background(), transferFromID, transferToID, transferUserID, amount("10.00"))

		var expiredErr *ExpiredCardError
		assert.ErrorAs(t, err, &expiredErr)
		assert.Equal(t, transferFromID, expiredErr.CardID)
		assert.Equal(t, "Source", expiredErr.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locks are always taken in ascending id order", func(t *testing.T) {
		service, mock := newService(t)
		from := transferFixtureCard(transferToID, "100.00")
		to := transferFixtureCard(transferFromID, "0.00")

		mock.ExpectBegin()
		expectLock(mock, to)
		expectLock(mock, from)
		expectOwnership(mock, transferToID, transferUserID, true)
		expectOwnership(mock, transferFromID, transferUserID, true)
		mock.ExpectExec(`UPDATE cards SET`).
			WithArgs(transferToID, "IVAN PETROV", "ACTIVE", "90.00").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE cards SET`).
			WithArgs(transferFromID, "IVAN PETROV", "ACTIVE", "10.00").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Transfer(context.Background(), transferToID, transferFromID, transferUserID, amount("10.00"))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing card surfaces as not found", func(t *testing.T) {
		service, mock := newService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM cards WHERE id = \$1 FOR UPDATE`).
			WithArgs(transferFromID).
			WillReturnRows(sqlmock.NewRows(cardTestColumns))
		mock.ExpectRollback()

		err := service.Transfer(context.Background(), transferFromID, transferToID, transferUserID, amount("10.00"))
		assert.ErrorIs(t, err, ErrCardNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferService_ReconcileCardExpiration(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransferService(db, NewCardStore(db))
	service.now = fixedClock(2026, 8)

	t.Run("no flip for a current card", func(t *testing.T) {
		card := transferFixtureCard(transferFromID, "0.00")
		mock.ExpectQuery(`FROM cards WHERE id = \$1`).
			WithArgs(transferFromID).
			WillReturnRows(cardRow(card))

		flipped, err := service.ReconcileCardExpiration(context.Background(), transferFromID)
		assert.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("flip is persisted under a row lock", func(t *testing.T) {
		card := transferFixtureCard(transferFromID, "0.00")
		card.ExpirationDate = "01/20"

		mock.ExpectQuery(`FROM cards WHERE id = \$1`).
			WithArgs(transferFromID).
			WillReturnRows(cardRow(card))
		mock.ExpectBegin()
		expectLock(mock, card)
		mock.ExpectExec(`UPDATE cards SET`).
			WithArgs(transferFromID, "IVAN PETROV", "EXPIRED", "0.00").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		flipped, err := service.ReconcileCardExpiration(context.Background(), transferFromID)
		assert.NoError(t, err)
		assert.True(t, flipped)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
