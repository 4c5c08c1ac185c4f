package fx

import (
	"github.com/FitchII-cod/billiard-tracker/internal/config"
	"github.com/FitchII-cod/billiard-tracker/internal/database"
	"github.com/FitchII-cod/billiard-tracker/internal/logger"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"
	"github.com/FitchII-cod/billiard-tracker/internal/server"
	"github.com/FitchII-cod/billiard-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewTeamRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewRatingRepository),
	fx.Provide(repository.NewSettingRepository),
	fx.Provide(repository.NewAuditRepository),
	// svc
	fx.Provide(service.NewTeamResolver),
	fx.Provide(service.NewRatingService),
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewAdminService),
	// server
	fx.Provide(server.New),
)
