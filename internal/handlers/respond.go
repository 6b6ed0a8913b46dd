package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/questbank/backend/internal/models"
	"github.com/questbank/backend/internal/services"
)

// writeDomainError maps the service error taxonomy onto HTTP statuses.
// Domain outcomes are expected results of validation gates, never retried.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr   *services.ValidationError
		unauthorizedErr *services.UnauthorizedError
		fundsErr        *services.InsufficientFundsError
		expiredErr      *services.ExpiredCardError
	)

	switch {
	case errors.As(err, &validationErr):
		services.SendErrorResponse(w, validationErr.Reason, http.StatusBadRequest, nil)
	case errors.As(err, &unauthorizedErr):
		services.SendErrorResponse(w, unauthorizedErr.Reason, http.StatusForbidden, nil)
	case errors.As(err, &fundsErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"error":     fundsErr.Error(),
			"available": fundsErr.Available.String(),
			"required":  fundsErr.Required.String(),
		})
	case errors.As(err, &expiredErr):
		services.SendErrorResponse(w, expiredErr.Error(), http.StatusConflict, nil)
	case errors.Is(err, services.ErrCardNotFound):
		services.SendErrorResponse(w, "Card not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrUserNotFound):
		services.SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
	default:
		log.Printf("[HTTP] internal error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// requestIdentity pulls the authenticated user id and role out of the
// request context set by the auth middleware.
func requestIdentity(r *http.Request) (uuid.UUID, models.Role, bool) {
	rawID, ok := r.Context().Value("userID").(string)
	if !ok || rawID == "" {
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", false
	}
	role, _ := r.Context().Value("role").(string)
	return userID, models.Role(role), true
}
