package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/middleware"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// AdminHandler exposes the moderation surface: request decisions,
// manual balance adjustments, and account freezes. All routes sit
// behind the admin role middleware.
type AdminHandler struct {
	balances    *services.BalanceService
	recharges   *services.RechargeService
	withdrawals *services.WithdrawalService
	logger      zerolog.Logger
}

func NewAdminHandler(balances *services.BalanceService, recharges *services.RechargeService, withdrawals *services.WithdrawalService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		balances:    balances,
		recharges:   recharges,
		withdrawals: withdrawals,
		logger:      logger,
	}
}

func (h *AdminHandler) ListPendingRecharges(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	requests, err := h.recharges.ListPending(limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list pending recharges")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list pending recharges")
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

func (h *AdminHandler) ApproveRecharge(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)
	requestID := mux.Vars(r)["id"]

	notes := decodeNotes(r)
	req, err := h.recharges.Approve(requestID, adminID, map[string]string{"notes": notes})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

func (h *AdminHandler) RejectRecharge(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)
	requestID := mux.Vars(r)["id"]

	req, err := h.recharges.Reject(requestID, adminID, decodeNotes(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

func (h *AdminHandler) ListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	requests, err := h.withdrawals.ListPending(limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list pending withdrawals")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list pending withdrawals")
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)
	requestID := mux.Vars(r)["id"]

	req, err := h.withdrawals.Approve(requestID, adminID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)
	requestID := mux.Vars(r)["id"]

	req, err := h.withdrawals.Reject(requestID, adminID, decodeNotes(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

func (h *AdminHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)
	requestID := mux.Vars(r)["id"]

	req, err := h.withdrawals.Complete(requestID, adminID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

// AdjustBalance applies a manual credit or debit with the admin actor
// recorded in the entry metadata.
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)

	userID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID")
		return
	}

	var req models.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	meta := map[string]string{"admin_id": strconv.Itoa(adminID)}

	var result *services.MutationResult
	if req.Direction == string(models.DirectionCredit) {
		result, err = h.balances.Credit(userID, req.Amount, models.CategoryAdminAdjustment, req.Description, meta)
	} else {
		result, err = h.balances.Debit(userID, req.Amount, models.CategoryAdminAdjustment, req.Description, meta)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserID(r)

	userID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID")
		return
	}

	var req models.SetAccountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	if err := h.balances.SetAccountStatus(userID, models.AccountStatus(req.Status), adminID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"user_id": strconv.Itoa(userID),
		"status":  req.Status,
	})
}

func decodeNotes(r *http.Request) string {
	var body models.DecideRequest
	if r.Body == nil {
		return ""
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Notes
}
