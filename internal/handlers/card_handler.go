package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/questbank/backend/internal/models"
	"github.com/questbank/backend/internal/services"
)

// CardHandler adapts card-lifecycle operations to HTTP.
type CardHandler struct {
	accounts  *services.AccountService
	transfers *services.TransferService
	validator *services.ValidationHelper
}

func NewCardHandler(accounts *services.AccountService, transfers *services.TransferService) *CardHandler {
	return &CardHandler{
		accounts:  accounts,
		transfers: transfers,
		validator: services.NewValidationHelper(),
	}
}

// cardResponse masks the card number at the presentation boundary.
type cardResponse struct {
	ID             uuid.UUID         `json:"id"`
	Number         string            `json:"number"`
	Owner          string            `json:"owner"`
	ExpirationDate string            `json:"expirationDate"`
	Status         models.CardStatus `json:"status"`
	Balance        models.Money      `json:"balance"`
}

func toCardResponse(card *models.Card) cardResponse {
	return cardResponse{
		ID:             card.ID,
		Number:         card.MaskedNumber(),
		Owner:          card.Owner,
		ExpirationDate: card.ExpirationDate,
		Status:         card.Status,
		Balance:        card.Balance,
	}
}

func cardID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "cardId"))
}

// IssueCard issues a new card for the authenticated user
// @Summary Issue a new card
// @Description Create a card with generated number, ACTIVE status and zero balance
// @Tags cards
// @Accept json
// @Produce json
// @Param request body object{owner=string} true "Card issue request"
// @Success 201 {object} cardResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /cards [post]
func (h *CardHandler) IssueCard(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Owner string `json:"owner" validate:"required,min=2,max=50"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	card, err := h.accounts.IssueCard(r.Context(), userID, req.Owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(card))
}

// ListCards lists the authenticated user's cards
// @Summary List own cards
// @Tags cards
// @Produce json
// @Success 200 {array} cardResponse
// @Router /cards [get]
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	cards, err := h.accounts.ListUserCards(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]cardResponse, len(cards))
	for i := range cards {
		responses[i] = toCardResponse(&cards[i])
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetCard fetches a single card
// @Summary Get card details
// @Tags cards
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} cardResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /cards/{cardId} [get]
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	card, err := h.accounts.FindUserCard(r.Context(), userID, role, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(card))
}

// GetBalance fetches a card's balance
// @Summary Get card balance
// @Tags cards
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} object{balance=string}
// @Router /cards/{cardId}/balance [get]
func (h *CardHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	balance, err := h.accounts.GetBalance(r.Context(), userID, role, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

// UpdateOwner renames the embossed owner name
// @Summary Update card owner name
// @Tags cards
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param request body object{owner=string} true "New owner name"
// @Success 200 {object} cardResponse
// @Router /cards/{cardId}/owner [put]
func (h *CardHandler) UpdateOwner(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Owner string `json:"owner" validate:"required,min=2,max=50"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	card, err := h.accounts.UpdateOwnerName(r.Context(), userID, id, req.Owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(card))
}

// BlockCard blocks a card
// @Summary Block card
// @Tags cards
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} object{status=string}
// @Router /cards/{cardId}/block [put]
func (h *CardHandler) BlockCard(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	if err := h.accounts.BlockCard(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.CardStatusBlocked)})
}

// DeleteCard deletes a card with zero balance
// @Summary Delete card
// @Tags cards
// @Param cardId path string true "Card ID"
// @Success 204
// @Failure 400 {object} services.ErrorResponse "Non-zero balance"
// @Router /cards/{cardId} [delete]
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	if err := h.accounts.DeleteCard(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCards deletes a batch of cards, all-or-nothing
// @Summary Delete multiple cards
// @Tags cards
// @Accept json
// @Param request body object{cardIds=[]string} true "Card IDs"
// @Success 204
// @Router /cards [delete]
func (h *CardHandler) DeleteCards(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		CardIDs []uuid.UUID `json:"cardIds" validate:"required,min=1"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.DeleteCards(r.Context(), userID, req.CardIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReconcileExpiration lazily re-checks a card's expiration
// @Summary Reconcile card expiration
// @Description Flip the card to EXPIRED when its date has passed
// @Tags cards
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} object{expired=bool}
// @Router /cards/{cardId}/reconcile [post]
func (h *CardHandler) ReconcileExpiration(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	if _, err := h.accounts.FindUserCard(r.Context(), userID, role, id); err != nil {
		writeDomainError(w, err)
		return
	}

	expired, err := h.transfers.ReconcileCardExpiration(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"expired": expired})
}

// ListAllCards is the admin listing of every card
// @Summary List all cards (admin)
// @Tags admin
// @Produce json
// @Success 200 {array} cardResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/cards [get]
func (h *CardHandler) ListAllCards(w http.ResponseWriter, r *http.Request) {
	_, role, ok := requestIdentity(r)
	if !ok || !services.IsPrivileged(role) {
		services.SendErrorResponse(w, "Admin role required", http.StatusForbidden, nil)
		return
	}

	cards, err := h.accounts.ListAllCards(r.Context(), 100)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]cardResponse, len(cards))
	for i := range cards {
		responses[i] = toCardResponse(&cards[i])
	}
	writeJSON(w, http.StatusOK, responses)
}

// UpdateStatus applies an arbitrary status transition (admin)
// @Summary Update card status (admin)
// @Tags admin
// @Accept json
// @Param cardId path string true "Card ID"
// @Param request body object{status=string} true "Target status"
// @Success 200 {object} object{status=string}
// @Router /admin/cards/{cardId}/status [put]
func (h *CardHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	_, role, ok := requestIdentity(r)
	if !ok || !services.IsPrivileged(role) {
		services.SendErrorResponse(w, "Admin role required", http.StatusForbidden, nil)
		return
	}
	id, err := cardID(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid card id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.UpdateCardStatus(r.Context(), id, req.Status); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// DeleteAllForUser removes all of a user's cards (admin)
// @Summary Delete all cards of a user (admin)
// @Tags admin
// @Param userId path string true "User ID"
// @Success 204
// @Router /admin/users/{userId}/cards [delete]
func (h *CardHandler) DeleteAllForUser(w http.ResponseWriter, r *http.Request) {
	_, role, ok := requestIdentity(r)
	if !ok || !services.IsPrivileged(role) {
		services.SendErrorResponse(w, "Admin role required", http.StatusForbidden, nil)
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	if err := h.accounts.DeleteAllForUser(r.Context(), targetID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
