package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/middleware"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/rs/zerolog"
)

type WalletHandler struct {
	balances  *services.BalanceService
	transfers *services.TransferService
	logger    zerolog.Logger
}

func NewWalletHandler(balances *services.BalanceService, transfers *services.TransferService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		balances:  balances,
		transfers: transfers,
		logger:    logger,
	}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	balance, err := h.balances.GetBalance(userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch balance")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch balance")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

func (h *WalletHandler) Spend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req models.SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}
	if !models.SpendCategories[req.Category] {
		respondWithError(w, http.StatusBadRequest, "invalid_operation", "category is not spendable")
		return
	}

	result, err := h.balances.Debit(userID, req.Amount, req.Category, req.Description, nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	result, err := h.transfers.Transfer(userID, req.ToUserID, req.Amount, req.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	limit, offset := parsePagination(r)
	filter := models.HistoryFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	}

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_time", "from must be RFC3339")
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_time", "to must be RFC3339")
			return
		}
		filter.To = &t
	}

	entries, err := h.balances.GetHistory(userID, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch ledger history")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch history")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}
