package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/questbank/backend/internal/models"
)

// AccountService implements the card-lifecycle operations: issuing,
// renaming, blocking and deleting cards. Every mutation checks ownership
// first and runs inside its own unit of work.
type AccountService struct {
	db        *sql.DB
	cards     CardStore
	generator *CardGenerator
	now       func() time.Time
}

func NewAccountService(db *sql.DB, cards CardStore, generator *CardGenerator) *AccountService {
	return &AccountService{
		db:        db,
		cards:     cards,
		generator: generator,
		now:       time.Now,
	}
}

// IsPrivileged reports whether a role bypasses ownership checks on read
// paths. Transfers never honor the bypass.
func IsPrivileged(role models.Role) bool {
	return role == models.RoleAdmin
}

// assertOwned is the ownership guard: a cheap existence check keyed by
// (cardID, userID), not a full card fetch.
func (s *AccountService) assertOwned(ctx context.Context, cardID, userID uuid.UUID) error {
	owned, err := s.cards.ExistsOwned(ctx, cardID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return &UnauthorizedError{Reason: "Card does not belong to user. Operation cancelled."}
	}
	return nil
}

// IssueCard creates a card for userID with a generated number and
// expiration date, status ACTIVE and zero balance.
func (s *AccountService) IssueCard(ctx context.Context, userID uuid.UUID, ownerName string) (*models.Card, error) {
	if err := ValidateOwnerName(ownerName); err != nil {
		return nil, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}

	number, expirationDate, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		ID:             uuid.New(),
		Number:         number,
		Owner:          NormalizeOwnerName(ownerName),
		ExpirationDate: expirationDate,
		Status:         models.CardStatusActive,
		Balance:        models.ZeroMoney(),
		UserID:         userID,
		CreatedAt:      s.now(),
	}

	if err := s.cards.Insert(ctx, card); err != nil {
		return nil, err
	}

	log.Printf("[CARD] issued card %s for user %s", card.ID, userID)
	return card, nil
}

// UpdateOwnerName renames the embossed owner of a card the acting user owns.
func (s *AccountService) UpdateOwnerName(ctx context.Context, actingUserID, cardID uuid.UUID, newName string) (*models.Card, error) {
	if err := s.assertOwned(ctx, cardID, actingUserID); err != nil {
		return nil, err
	}
	if err := ValidateOwnerName(newName); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin owner update: %w", err)
	}
	defer tx.Rollback()

	card, err := s.cards.FindForUpdate(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	card.Owner = NormalizeOwnerName(newName)

	if err := s.cards.Update(ctx, tx, card); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit owner update: %w", err)
	}
	return card, nil
}

// DeleteCard removes a card the acting user owns. Cards holding funds are
// never deleted; an irreversible operation must not silently destroy money.
func (s *AccountService) DeleteCard(ctx context.Context, actingUserID, cardID uuid.UUID) error {
	if err := s.assertOwned(ctx, cardID, actingUserID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	card, err := s.cards.FindForUpdate(ctx, tx, cardID)
	if err != nil {
		return err
	}
	if err := validateZeroBalance(card); err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, tx, cardID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	log.Printf("[CARD] deleted card %s", cardID)
	return nil
}

// DeleteCards removes a batch of the acting user's cards. If any card fails
// an ownership or balance gate, none are deleted.
func (s *AccountService) DeleteCards(ctx context.Context, actingUserID uuid.UUID, cardIDs []uuid.UUID) error {
	if len(cardIDs) == 0 {
		return nil
	}

	cards, err := s.cards.FindAllByIDs(ctx, cardIDs)
	if err != nil {
		return err
	}
	owners := make(map[uuid.UUID]uuid.UUID, len(cards))
	for _, card := range cards {
		owners[card.ID] = card.UserID
	}
	for _, cardID := range cardIDs {
		ownerID, ok := owners[cardID]
		if !ok {
			return fmt.Errorf("card %s: %w", cardID, ErrCardNotFound)
		}
		if ownerID != actingUserID {
			return &UnauthorizedError{Reason: "Card does not belong to user. Operation cancelled."}
		}
	}
	return s.deleteAll(ctx, cardIDs)
}

// DeleteAllForUser removes every card of a user, with the same per-card
// balance gate and all-or-nothing behavior as DeleteCards.
func (s *AccountService) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	cards, err := s.cards.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
	}
	return s.deleteAll(ctx, ids)
}

func (s *AccountService) deleteAll(ctx context.Context, cardIDs []uuid.UUID) error {
	if len(cardIDs) == 0 {
		return nil
	}

	// Same global lock order as transfers: ascending id.
	ordered := make([]uuid.UUID, len(cardIDs))
	copy(ordered, cardIDs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch delete: %w", err)
	}
	defer tx.Rollback()

	for _, cardID := range ordered {
		card, err := s.cards.FindForUpdate(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if err := validateZeroBalance(card); err != nil {
			return err
		}
	}
	for _, cardID := range ordered {
		if err := s.cards.Delete(ctx, tx, cardID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch delete: %w", err)
	}
	return nil
}

// BlockCard transitions a card the acting user owns to BLOCKED. Expiration
// is re-validated first; blocking an expired card fails and the EXPIRED flip
// is committed instead.
func (s *AccountService) BlockCard(ctx context.Context, actingUserID, cardID uuid.UUID) error {
	if err := s.assertOwned(ctx, cardID, actingUserID); err != nil {
		return err
	}
	return s.updateStatus(ctx, cardID, models.CardStatusBlocked)
}

// UpdateCardStatus applies an arbitrary validated status transition;
// handlers restrict it to admins.
func (s *AccountService) UpdateCardStatus(ctx context.Context, cardID uuid.UUID, status string) error {
	target, err := ParseStatus(status)
	if err != nil {
		return err
	}
	return s.updateStatus(ctx, cardID, target)
}

func (s *AccountService) updateStatus(ctx context.Context, cardID uuid.UUID, target models.CardStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
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
	if flipped && target != models.CardStatusExpired {
		if err := s.cards.Update(ctx, tx, card); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit status update: %w", err)
		}
		return &ExpiredCardError{CardID: cardID, Role: "Card"}
	}

	if !flipped {
		if err := ChangeStatus(card, target); err != nil {
			return err
		}
	}

	if err := s.cards.Update(ctx, tx, card); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}

	log.Printf("[CARD] card %s status -> %s", cardID, card.Status)
	return nil
}

// GetBalance returns a card's balance. Display reads take no lock and may
// trail an in-flight transfer. Admins may read any card.
func (s *AccountService) GetBalance(ctx context.Context, actingUserID uuid.UUID, role models.Role, cardID uuid.UUID) (models.Money, error) {
	card, err := s.FindUserCard(ctx, actingUserID, role, cardID)
	if err != nil {
		return models.Money{}, err
	}
	return card.Balance, nil
}

// FindUserCard fetches one card, enforcing ownership for non-admins.
func (s *AccountService) FindUserCard(ctx context.Context, actingUserID uuid.UUID, role models.Role, cardID uuid.UUID) (*models.Card, error) {
	if !IsPrivileged(role) {
		if err := s.assertOwned(ctx, cardID, actingUserID); err != nil {
			return nil, err
		}
	}
	return s.cards.Find(ctx, cardID)
}

// ListUserCards returns all cards of one user.
func (s *AccountService) ListUserCards(ctx context.Context, userID uuid.UUID) ([]models.Card, error) {
	return s.cards.FindByUser(ctx, userID)
}

// ListAllCards is the admin listing.
func (s *AccountService) ListAllCards(ctx context.Context, limit int) ([]models.Card, error) {
	return s.cards.FindAll(ctx, limit)
}

func validateZeroBalance(card *models.Card) error {
	if card.Balance.IsGreaterThan(models.ZeroMoney()) {
		return validationErrorf("Cannot delete card id=%s with non-zero balance", card.ID)
	}
	return nil
}
