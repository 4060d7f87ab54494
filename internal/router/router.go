package router

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/config"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/handlers"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/middleware"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(db *sql.DB, cfg config.Config, logger zerolog.Logger, notifier services.Notifier) *mux.Router {
	balanceService := services.NewBalanceService(db, logger)
	transferService := services.NewTransferService(db, logger, balanceService, notifier)
	rechargeService := services.NewRechargeService(db, logger, balanceService, notifier, cfg.USDTExpiry)
	withdrawalService := services.NewWithdrawalService(db, logger, balanceService, notifier)
	paymentService := services.NewPaymentService(
		services.NewGatewayChecker(cfg.PaymentGateway, logger), rechargeService, logger)
	userService := services.NewUserService(db, logger)
	authService := services.NewAuthService(logger)

	authHandler := handlers.NewAuthHandler(userService, authService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	walletHandler := handlers.NewWalletHandler(balanceService, transferService, logger)
	rechargeHandler := handlers.NewRechargeHandler(rechargeService, paymentService, logger)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService, logger)
	adminHandler := handlers.NewAdminHandler(balanceService, rechargeService, withdrawalService, logger)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		logger.Warn().Msg("JWT_SECRET not set, using default key")
	}

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(10), 20)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())

	api := r.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")

	protectedAuth := auth.PathPrefix("").Subrouter()
	protectedAuth.Use(middleware.Authentication(jwtSecret, logger))
	protectedAuth.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")

	users := api.PathPrefix("/users").Subrouter()
	users.Use(middleware.Authentication(jwtSecret, logger))
	users.HandleFunc("/{id}", userHandler.GetUser).Methods("GET")
	users.HandleFunc("/{id}", userHandler.UpdateUser).Methods("PUT")

	wallet := api.PathPrefix("/wallet").Subrouter()
	wallet.Use(middleware.Authentication(jwtSecret, logger))
	wallet.Use(middleware.RequestValidation())
	wallet.HandleFunc("/balance", walletHandler.GetBalance).Methods("GET")
	wallet.HandleFunc("/spend", walletHandler.Spend).Methods("POST")
	wallet.HandleFunc("/transfer", walletHandler.Transfer).Methods("POST")
	wallet.HandleFunc("/history", walletHandler.GetHistory).Methods("GET")

	recharges := api.PathPrefix("/recharges").Subrouter()
	recharges.Use(middleware.Authentication(jwtSecret, logger))
	recharges.Use(middleware.RequestValidation())
	recharges.HandleFunc("", rechargeHandler.Create).Methods("POST")
	recharges.HandleFunc("", rechargeHandler.List).Methods("GET")
	recharges.HandleFunc("/{id}/cancel", rechargeHandler.Cancel).Methods("POST")
	recharges.HandleFunc("/{id}/status", rechargeHandler.Status).Methods("GET")
	recharges.HandleFunc("/{id}/confirm", rechargeHandler.Confirm).Methods("POST")

	withdrawals := api.PathPrefix("/withdrawals").Subrouter()
	withdrawals.Use(middleware.Authentication(jwtSecret, logger))
	withdrawals.Use(middleware.RequestValidation())
	withdrawals.HandleFunc("", withdrawalHandler.Create).Methods("POST")
	withdrawals.HandleFunc("", withdrawalHandler.List).Methods("GET")
	withdrawals.HandleFunc("/{id}/cancel", withdrawalHandler.Cancel).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.Authentication(jwtSecret, logger))
	admin.Use(middleware.RequireRole(string(models.RoleAdmin)))
	admin.HandleFunc("/recharges", adminHandler.ListPendingRecharges).Methods("GET")
	admin.HandleFunc("/recharges/{id}/approve", adminHandler.ApproveRecharge).Methods("POST")
	admin.HandleFunc("/recharges/{id}/reject", adminHandler.RejectRecharge).Methods("POST")
	admin.HandleFunc("/withdrawals", adminHandler.ListPendingWithdrawals).Methods("GET")
	admin.HandleFunc("/withdrawals/{id}/approve", adminHandler.ApproveWithdrawal).Methods("POST")
	admin.HandleFunc("/withdrawals/{id}/reject", adminHandler.RejectWithdrawal).Methods("POST")
	admin.HandleFunc("/withdrawals/{id}/complete", adminHandler.CompleteWithdrawal).Methods("POST")
	admin.HandleFunc("/users/{id}/balance", adminHandler.AdjustBalance).Methods("POST")
	admin.HandleFunc("/users/{id}/status", adminHandler.SetAccountStatus).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
