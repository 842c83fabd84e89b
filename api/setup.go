package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tokenetes/delegation-gateway/api/handler"
	"github.com/tokenetes/delegation-gateway/api/service"
	"go.uber.org/zap"
)

// API is the operator-facing admin server. It is served on its own port,
// separate from the gateway traffic.
type API struct {
	ApiPort            int
	DelegationVerifier service.DelegationVerifier
	Revoker            service.Revoker
	AuditSinks         []string
	AuditStream        http.Handler
	Logger             *zap.Logger
}

func (api *API) Router() *mux.Router {
	apiService := service.NewService(api.DelegationVerifier, api.Revoker, api.AuditSinks, api.Logger)
	apiHandlers := handler.NewHandlers(apiService, api.Logger)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", apiHandlers.HealthHandler).Methods("GET")
	router.HandleFunc("/verify-delegation", apiHandlers.VerifyDelegationHandler).Methods("POST")
	router.HandleFunc("/revocations", apiHandlers.RevokeDelegationHandler).Methods("POST")

	if api.AuditStream != nil {
		router.Handle("/audit/stream", api.AuditStream).Methods("GET")
	}

	return router
}

func (api *API) Server() *http.Server {
	return &http.Server{
		Handler:      api.Router(),
		Addr:         fmt.Sprintf("0.0.0.0:%d", api.ApiPort),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

func (api *API) Run(srv *http.Server) error {
	api.Logger.Info("Starting admin API server...", zap.Int("port", api.ApiPort))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		api.Logger.Error("Failed to start the admin API server", zap.Error(err))

		return fmt.Errorf("failed to start the admin API server: %w", err)
	}

	return nil
}
