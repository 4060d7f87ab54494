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

type UserHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID")
		return
	}

	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	userRole, _ := middleware.GetUserRole(r)
	if userRole != string(models.RoleAdmin) && currentUserID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "You can only view your own profile")
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}

	user.PasswordHash = ""
	respondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID")
		return
	}

	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	userRole, _ := middleware.GetUserRole(r)
	if userRole != string(models.RoleAdmin) && currentUserID != userID {
		respondWithError(w, http.StatusForbidden, "forbidden", "You can only update your own profile")
		return
	}

	var updateReq struct {
		Role string `json:"role,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}

	if updateReq.Role != "" && userRole == string(models.RoleAdmin) {
		if err := h.userService.UpdateUserRole(userID, updateReq.Role, currentUserID); err != nil {
			respondWithError(w, http.StatusBadRequest, "update_failed", err.Error())
			return
		}
		user.Role = updateReq.Role
	}

	user.PasswordHash = ""
	respondWithJSON(w, http.StatusOK, user)
}
