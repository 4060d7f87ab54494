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

type RechargeHandler struct {
	recharges *services.RechargeService
	payments  *services.PaymentService
	logger    zerolog.Logger
}

func NewRechargeHandler(recharges *services.RechargeService, payments *services.PaymentService, logger zerolog.Logger) *RechargeHandler {
	return &RechargeHandler{
		recharges: recharges,
		payments:  payments,
		logger:    logger,
	}
}

func (h *RechargeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req models.CreateRechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	created, err := h.recharges.Create(userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *RechargeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	limit, offset := parsePagination(r)
	requests, err := h.recharges.ListByUser(userID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list recharge requests")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to list recharge requests")
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}

func (h *RechargeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	requestID := mux.Vars(r)["id"]
	req, err := h.recharges.Cancel(requestID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

// Status returns the current state of the caller's request, applying
// USDT expiry on the way.
func (h *RechargeHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	requestID := mux.Vars(r)["id"]
	req, err := h.recharges.CheckStatus(requestID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	userRole, _ := middleware.GetUserRole(r)
	if req.UserID != userID && userRole != string(models.RoleAdmin) {
		respondWithError(w, http.StatusForbidden, "forbidden", "You can only view your own requests")
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}

// Confirm asks the payment gateway whether the order tied to this
// request has been paid, approving the recharge on a match.
func (h *RechargeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	requestID := mux.Vars(r)["id"]

	var body struct {
		OrderID string `json:"order_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	existing, err := h.recharges.Get(requestID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if existing.UserID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "You can only confirm your own requests")
		return
	}

	req, err := h.payments.ConfirmRecharge(r.Context(), requestID, body.OrderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, req)
}
