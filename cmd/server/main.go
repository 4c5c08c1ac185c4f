package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/FitchII-cod/billiard-tracker/internal/config"
	"github.com/FitchII-cod/billiard-tracker/internal/constants"
	fxmodules "github.com/FitchII-cod/billiard-tracker/internal/fx"
	"github.com/FitchII-cod/billiard-tracker/internal/logger"
	"github.com/FitchII-cod/billiard-tracker/internal/middleware"
	"github.com/FitchII-cod/billiard-tracker/internal/server"
	"github.com/FitchII-cod/billiard-tracker/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(seedSettings),
		fx.Invoke(runServer),
	).Run()
}

// seedSettings installs the default rating knobs before the first
// request can construct an engine.
func seedSettings(admin *service.AdminService, log zerolog.Logger) error {
	if err := admin.SeedDefaults(context.Background()); err != nil {
		log.Error().Err(err).Msg("failed to seed default settings")
		return err
	}
	return nil
}

func runServer(
	lc fx.Lifecycle,
	apiServer *server.Server,
	cfg *config.Config,
	db *sql.DB,
	log zerolog.Logger,
) {
	log = logger.WithLevel(log, cfg.LogLevel)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(log)(c.Handler(apiServer.Routes()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database connection")
			}

			log.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
