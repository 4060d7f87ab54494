package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/stretchr/testify/require"
)

func TestRespondServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInsufficientBalance, http.StatusConflict, "insufficient_balance"},
		{services.ErrAccountSuspended, http.StatusForbidden, "account_suspended"},
		{services.ErrInvalidOperation, http.StatusBadRequest, "invalid_operation"},
		{services.ErrRecipientNotFound, http.StatusNotFound, "recipient_not_found"},
		{services.ErrRequestNotFound, http.StatusNotFound, "request_not_found"},
		{services.ErrNotPending, http.StatusConflict, "not_pending"},
		{services.ErrNotApproved, http.StatusConflict, "not_approved"},
		{services.ErrPendingExists, http.StatusConflict, "pending_request_exists"},
		{errors.New("mysql went away"), http.StatusInternalServerError, "storage_failure"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		respondServiceError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, "status for %v", tc.err)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.code, body["error"])
	}
}

// Wrapped infra errors still map through errors.Is.
func TestRespondServiceErrorWrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, errors.Join(errors.New("context"), services.ErrNotPending))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=10&offset=5", nil)
	limit, offset := parsePagination(req)
	require.Equal(t, 10, limit)
	require.Equal(t, 5, offset)

	req = httptest.NewRequest("GET", "/", nil)
	limit, offset = parsePagination(req)
	require.Equal(t, 50, limit)
	require.Equal(t, 0, offset)

	req = httptest.NewRequest("GET", "/?limit=-3&offset=junk", nil)
	limit, offset = parsePagination(req)
	require.Equal(t, 50, limit)
	require.Equal(t, 0, offset)
}

func TestValidationMessages(t *testing.T) {
	err := validate.Struct(&models.TransferRequest{Amount: 0, ToUserID: 1})
	require.Error(t, err)
	require.Contains(t, validationMessage(err), "Amount")

	err = validate.Struct(&models.CreateWithdrawalRequest{
		PointsToDeduct: 100,
		Method:         "cash",
		PayoutDetails:  "x",
	})
	require.Error(t, err)
	require.NotEmpty(t, validationMessage(err))
}
