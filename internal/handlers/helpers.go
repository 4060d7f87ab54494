package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondServiceError maps the service sentinel errors onto HTTP
// statuses: business-rule conflicts are 409, missing records 404,
// suspended accounts 403, invalid input 400, everything else 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInsufficientBalance):
		respondWithError(w, http.StatusConflict, "insufficient_balance", err.Error())
	case errors.Is(err, services.ErrAccountSuspended):
		respondWithError(w, http.StatusForbidden, "account_suspended", err.Error())
	case errors.Is(err, services.ErrInvalidOperation):
		respondWithError(w, http.StatusBadRequest, "invalid_operation", err.Error())
	case errors.Is(err, services.ErrRecipientNotFound):
		respondWithError(w, http.StatusNotFound, "recipient_not_found", err.Error())
	case errors.Is(err, services.ErrRequestNotFound):
		respondWithError(w, http.StatusNotFound, "request_not_found", err.Error())
	case errors.Is(err, services.ErrNotPending):
		respondWithError(w, http.StatusConflict, "not_pending", err.Error())
	case errors.Is(err, services.ErrNotApproved):
		respondWithError(w, http.StatusConflict, "not_approved", err.Error())
	case errors.Is(err, services.ErrPendingExists):
		respondWithError(w, http.StatusConflict, "pending_request_exists", err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "storage_failure", "The operation could not be completed")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		switch e.Tag() {
		case "required":
			return e.Field() + " is required"
		case "gt":
			return e.Field() + " must be greater than " + e.Param()
		case "oneof":
			return e.Field() + " must be one of: " + e.Param()
		case "max":
			return e.Field() + " must be at most " + e.Param() + " characters"
		case "email":
			return e.Field() + " must be a valid email"
		case "min":
			return e.Field() + " must be at least " + e.Param()
		}
		return e.Field() + " is invalid"
	}
	return "invalid request body"
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
