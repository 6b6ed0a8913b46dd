package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/questbank/backend/internal/models"
)

// CardStore is the persistence boundary for card rows. FindForUpdate takes
// an exclusive row lock and must run inside the unit of work that will
// mutate the row; plain Find is for display reads and may observe slightly
// stale values.
type CardStore interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Card, error)
	FindForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Card, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error)
	FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Card, error)
	FindAll(ctx context.Context, limit int) ([]models.Card, error)
	Insert(ctx context.Context, card *models.Card) error
	Update(ctx context.Context, tx *sql.Tx, card *models.Card) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	ExistsOwned(ctx context.Context, cardID, userID uuid.UUID) (bool, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
}

const cardColumns = "id, number, owner, expiration_date, status, balance, user_id, created_at"

type postgresCardStore struct {
	db *sql.DB
}

// NewCardStore returns a Postgres-backed CardStore.
func NewCardStore(db *sql.DB) CardStore {
	return &postgresCardStore{db: db}
}

func scanCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	var card models.Card
	err := row.Scan(&card.ID, &card.Number, &card.Owner, &card.ExpirationDate,
		&card.Status, &card.Balance, &card.UserID, &card.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *postgresCardStore) Find(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("card %s: %w", id, ErrCardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

func (s *postgresCardStore) FindForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Card, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("card %s: %w", id, ErrCardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock card: %w", err)
	}
	return card, nil
}

func (s *postgresCardStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("find cards by user: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

func (s *postgresCardStore) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Card, error) {
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ANY($1) ORDER BY id`, pq.Array(idStrings))
	if err != nil {
		return nil, fmt.Errorf("find cards by ids: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

func (s *postgresCardStore) FindAll(ctx context.Context, limit int) ([]models.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("find all cards: %w", err)
	}
	defer rows.Close()
	return collectCards(rows)
}

func collectCards(rows *sql.Rows) ([]models.Card, error) {
	cards := []models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

func (s *postgresCardStore) Insert(ctx context.Context, card *models.Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, number, owner, expiration_date, status, balance, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		card.ID, card.Number, card.Owner, card.ExpirationDate,
		card.Status, card.Balance, card.UserID, card.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *postgresCardStore) Update(ctx context.Context, tx *sql.Tx, card *models.Card) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE cards SET owner = $2, status = $3, balance = $4 WHERE id = $1`,
		card.ID, card.Owner, card.Status, card.Balance)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("card %s: %w", card.ID, ErrCardNotFound)
	}
	return nil
}

func (s *postgresCardStore) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("card %s: %w", id, ErrCardNotFound)
	}
	return nil
}

func (s *postgresCardStore) ExistsOwned(ctx context.Context, cardID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE id = $1 AND user_id = $2)`,
		cardID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check card ownership: %w", err)
	}
	return exists, nil
}

func (s *postgresCardStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check card number: %w", err)
	}
	return exists, nil
}
