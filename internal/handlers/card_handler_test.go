package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/questbank/backend/internal/services"
)

func newCardHandler(t *testing.T) (*CardHandler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := services.NewCardStore(db)
	accounts := services.NewAccountService(db, store, services.NewCardGenerator(store))
	transfers := services.NewTransferService(db, store)
	return NewCardHandler(accounts, transfers), mock
}

func routedRequest(t *testing.T, handler http.HandlerFunc, method, pattern, target string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, handler)

	r := httptest.NewRequest(method, target, nil)
	role := "USER"
	if admin {
		role = "ADMIN"
	}
	ctx := context.WithValue(r.Context(), "userID", testUserID.String())
	ctx = context.WithValue(ctx, "role", role)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r.WithContext(ctx))
	return w
}

func TestCardHandler_GetCard(t *testing.T) {
	t.Run("response masks the card number", func(t *testing.T) {
		handler, mock := newCardHandler(t)

		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(testFromID, testUserID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`FROM cards WHERE id = \$1`).WithArgs(testFromID).
			WillReturnRows(handlerCardRow(testFromID, "ACTIVE", "99.00"))

		w := routedRequest(t, handler.GetCard, "GET", "/cards/{cardId}", "/cards/"+testFromID.String(), false)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp cardResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "**** **** **** 4444", resp.Number)
		assert.Equal(t, "99.00", resp.Balance.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid card id", func(t *testing.T) {
		handler, _ := newCardHandler(t)

		w := routedRequest(t, handler.GetCard, "GET", "/cards/{cardId}", "/cards/not-a-uuid", false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("foreign card is forbidden", func(t *testing.T) {
		handler, mock := newCardHandler(t)

		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(testFromID, testUserID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		w := routedRequest(t, handler.GetCard, "GET", "/cards/{cardId}", "/cards/"+testFromID.String(), false)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCardHandler_GetBalance(t *testing.T) {
	handler, mock := newCardHandler(t)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(testFromID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM cards WHERE id = \$1`).WithArgs(testFromID).
		WillReturnRows(handlerCardRow(testFromID, "ACTIVE", "1000.50"))

	w := routedRequest(t, handler.GetBalance, "GET", "/cards/{cardId}/balance", "/cards/"+testFromID.String()+"/balance", false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"balance":"1000.50"}`, w.Body.String())
}

func TestCardHandler_AdminGates(t *testing.T) {
	t.Run("regular user cannot list all cards", func(t *testing.T) {
		handler, _ := newCardHandler(t)

		w := routedRequest(t, handler.ListAllCards, "GET", "/admin/cards", "/admin/cards", false)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin lists all cards", func(t *testing.T) {
		handler, mock := newCardHandler(t)

		mock.ExpectQuery(`FROM cards ORDER BY created_at DESC LIMIT \$1`).
			WithArgs(100).
			WillReturnRows(handlerCardRow(testFromID, "ACTIVE", "1.00"))

		w := routedRequest(t, handler.ListAllCards, "GET", "/admin/cards", "/admin/cards", true)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp []cardResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 1)
	})

	t.Run("regular user cannot change status", func(t *testing.T) {
		handler, _ := newCardHandler(t)

		w := routedRequest(t, handler.UpdateStatus, "PUT", "/admin/cards/{cardId}/status",
			"/admin/cards/"+testFromID.String()+"/status", false)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCardHandler_DeleteCard(t *testing.T) {
	handler, mock := newCardHandler(t)

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(testFromID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(testFromID).
		WillReturnRows(handlerCardRow(testFromID, "ACTIVE", "10.00"))
	mock.ExpectRollback()

	w := routedRequest(t, handler.DeleteCard, "DELETE", "/cards/{cardId}", "/cards/"+testFromID.String(), false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "non-zero balance")
	assert.NoError(t, mock.ExpectationsWereMet())
}
