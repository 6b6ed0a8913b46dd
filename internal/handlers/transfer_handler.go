package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/questbank/backend/internal/services"
)

// TransferHandler adapts the funds-transfer operation to HTTP.
type TransferHandler struct {
	transfers *services.TransferService
	validator *services.ValidationHelper
}

func NewTransferHandler(transfers *services.TransferService) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		validator: services.NewValidationHelper(),
	}
}

type transferRequest struct {
	FromCardID uuid.UUID `json:"fromCardId" validate:"required"`
	ToCardID   uuid.UUID `json:"toCardId" validate:"required"`
	Amount     string    `json:"amount" validate:"required" example:"100.50"`
}

// Transfer moves money between two cards of the authenticated user
// @Summary Transfer funds between own cards
// @Description Atomically debit the source card and credit the destination card
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body transferRequest true "Transfer request"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse "Card not owned by user"
// @Failure 422 {object} object{error=string,available=string,required=string} "Insufficient funds"
// @Router /transfers [post]
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestIdentity(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req transferRequest
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

	amount, err := services.ValidateAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.transfers.Transfer(r.Context(), req.FromCardID, req.ToCardID, userID, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transfer completed"})
}
