package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/handler"
	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/repository"
	"github.com/wadjakorntonsri/lnkzip/pkg/config"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/services"
	"github.com/wadjakorntonsri/lnkzip/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Repository
	repo, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repo.Close()

	// Initialize Services
	links := services.NewLinkService(repo, cfg.BaseURL, cfg.TrackingTimeout)
	qrs := services.NewQRService(repo, links)
	dashboard := services.NewDashboardService(repo, links)
	features := services.NewFeatureService(repo, services.DefaultMaxTrials)

	// Initialize Router
	mux := handler.NewRouter(cfg, links, qrs, dashboard, features)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("base_url", cfg.BaseURL).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
