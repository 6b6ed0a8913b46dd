package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/questbank/backend/internal/models"
)

// TransferService moves money between two cards of the same user. The whole
// operation is one unit of work: both rows are locked in ascending id order,
// every gate is validated against the locked rows, and the two balance
// mutations commit together or not at all.
type TransferService struct {
	db    *sql.DB
	cards CardStore
	now   func() time.Time
}

func NewTransferService(db *sql.DB, cards CardStore) *TransferService {
	return &TransferService{
		db:    db,
		cards: cards,
		now:   time.Now,
	}
}

// Transfer debits fromID and credits toID by amount on behalf of
// actingUserID. Validation gates run in a fixed order: identifiers,
// ownership, expiration, status, sufficiency. Admins get no bypass here;
// a transfer always moves the acting user's own money.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID, actingUserID uuid.UUID, amount models.Money) error {
	if fromID == toID {
		return &ValidationError{Reason: "The same identifiers are specified"}
	}
	if !amount.IsPositive() {
		return validationErrorf("Amount must be greater than zero")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback()

	// Lock order is ascending card id so two transfers referencing the same
	// pair in opposite directions cannot deadlock.
	firstID, secondID := fromID, toID
	if firstID.String() > secondID.String() {
		firstID, secondID = secondID, firstID
	}

	first, err := s.cards.FindForUpdate(ctx, tx, firstID)
	if err != nil {
		return err
	}
	second, err := s.cards.FindForUpdate(ctx, tx, secondID)
	if err != nil {
		return err
	}

	from, to := first, second
	if firstID != fromID {
		from, to = second, first
	}

	for _, cardID := range []uuid.UUID{fromID, toID} {
		owned, err := s.cards.ExistsOwned(ctx, cardID, actingUserID)
		if err != nil {
			return err
		}
		if !owned {
			return &UnauthorizedError{Reason: "Card does not belong to user. Operation cancelled."}
		}
	}

	if err := s.checkTransferable(ctx, tx, from, "Source"); err != nil {
		return err
	}
	if err := s.checkTransferable(ctx, tx, to, "Destination"); err != nil {
		return err
	}

	if from.Balance.IsLessThan(amount) {
		return &InsufficientFundsError{Available: from.Balance, Required: amount}
	}

	from.Balance = from.Balance.Subtract(amount)
	to.Balance = to.Balance.Add(amount)

	if err := s.cards.Update(ctx, tx, from); err != nil {
		return err
	}
	if err := s.cards.Update(ctx, tx, to); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}

	log.Printf("[TRANSFER] %s -> %s amount %s by user %s", fromID, toID, amount, actingUserID)
	return nil
}

// checkTransferable enforces the expiration and status gates on a locked
// card. When expiration is detected here, the transfer's transaction is
// rolled back and the EXPIRED flip is committed on its own, so the flip
// stays durable even though the transfer fails.
func (s *TransferService) checkTransferable(ctx context.Context, tx *sql.Tx, card *models.Card, role string) error {
	if card.Status == models.CardStatusExpired {
		return &ExpiredCardError{CardID: card.ID, Role: role}
	}

	flipped, err := ReconcileExpiration(card, s.now())
	if err != nil {
		return err
	}
	if flipped {
		tx.Rollback()
		if err := s.persistExpiration(ctx, card.ID); err != nil {
			return err
		}
		return &ExpiredCardError{CardID: card.ID, Role: role}
	}

	if card.Status != models.CardStatusActive {
		return validationErrorf("%s card is not active: %s", role, card.Status)
	}
	return nil
}

// ReconcileCardExpiration lazily re-evaluates a single card's expiration and
// commits the EXPIRED flip when its date has passed. Exposed so every entry
// point that touches card activity can re-validate first.
func (s *TransferService) ReconcileCardExpiration(ctx context.Context, cardID uuid.UUID) (bool, error) {
	card, err := s.cards.Find(ctx, cardID)
	if err != nil {
		return false, err
	}
	flipped, err := ReconcileExpiration(card, s.now())
	if err != nil || !flipped {
		return false, err
	}
	if err := s.persistExpiration(ctx, cardID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *TransferService) persistExpiration(ctx context.Context, cardID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin expiration update: %w", err)
	}
	defer tx.Rollback()

	card, err := s.cards.FindForUpdate(ctx, tx, cardID)
	if err != nil {
		return err
	}
	flipped, err := ReconcileExpiration(card, s.now())
	if err != nil {
		return err
	}
	if !flipped {
		// Another request already committed the flip.
		return nil
	}
	if err := s.cards.Update(ctx, tx, card); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expiration update: %w", err)
	}

	log.Printf("[TRANSFER] card %s lazily expired", cardID)
	return nil
}
