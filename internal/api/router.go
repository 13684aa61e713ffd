package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/typerush/typerush/internal/api/handler"
	apimiddleware "github.com/typerush/typerush/internal/api/middleware"
	"github.com/typerush/typerush/internal/metrics"
	"github.com/typerush/typerush/internal/middleware"
	"github.com/typerush/typerush/internal/services/auth"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService auth.ServiceInterface
	RaceHandler *handler.RaceHandler
	Metrics     *metrics.Metrics
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	raceHandler := cfg.RaceHandler

	authMiddleware := apimiddleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := apimiddleware.OptionalAuth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := apimiddleware.Recovery(cfg.Logger)
	metricsMiddleware := apimiddleware.Metrics(cfg.Metrics)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(metricsMiddleware)

	// Session routes (no auth required to obtain one)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Race routes requiring a session
	races := api.PathPrefix("/races").Subrouter()
	races.Use(authMiddleware)
	races.HandleFunc("/quickmatch", raceHandler.QuickMatch).Methods(http.MethodPost)
	races.HandleFunc("", raceHandler.Create).Methods(http.MethodPost)
	races.HandleFunc("/{code}/join", raceHandler.Join).Methods(http.MethodPost)
	races.HandleFunc("/{code}/leave", raceHandler.Leave).Methods(http.MethodPost)
	races.HandleFunc("/{code}/start", raceHandler.Start).Methods(http.MethodPost)
	races.HandleFunc("/{code}/progress", raceHandler.Progress).Methods(http.MethodPost)
	races.HandleFunc("/{code}/finish", raceHandler.Finish).Methods(http.MethodPost)
	races.HandleFunc("/{code}/ws", raceHandler.Websocket).Methods(http.MethodGet)

	// Spectators can watch without a session
	spectate := api.PathPrefix("/races").Subrouter()
	spectate.Use(optionalAuthMiddleware)
	spectate.HandleFunc("/{code}", raceHandler.Get).Methods(http.MethodGet)
	spectate.HandleFunc("/{code}/standings", raceHandler.Standings).Methods(http.MethodGet)
	spectate.HandleFunc("/{code}/events", raceHandler.Events).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Prometheus scrape endpoint outside the /api/v1 middleware stack
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
