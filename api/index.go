package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/handler"
	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/repository"
	"github.com/wadjakorntonsri/lnkzip/pkg/config"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/services"
	"github.com/wadjakorntonsri/lnkzip/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	// Note: On Vercel, a file: DATABASE_URL is ephemeral; use a Turso or PostgreSQL URL
	repo, err := repository.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open record store")
	}

	links := services.NewLinkService(repo, cfg.BaseURL, cfg.TrackingTimeout)
	qrs := services.NewQRService(repo, links)
	dashboard := services.NewDashboardService(repo, links)
	features := services.NewFeatureService(repo, services.DefaultMaxTrials)

	mux = handler.NewRouter(cfg, links, qrs, dashboard, features)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
