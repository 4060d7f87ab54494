package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/middleware"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
	logger      zerolog.Logger
}

func NewWithdrawalHandler(withdrawals *services.WithdrawalService, logger zerolog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawals: withdrawals,
		logger:      logger,
	}
}

func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req models.CreateWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	created, err := h.withdrawals.Create(userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	limit, offset := parsePagination(r)
	requests, err := h.withdrawals.ListByUser(userID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list withdrawal requests")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list withdrawal requests")
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}

func (h *WithdrawalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	requestID := mux.Vars(r)["id"]
	req, err := h.withdrawals.Cancel(requestID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}
