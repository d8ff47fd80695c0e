package fx

import (
	"database/sql"

	"realm-tracker/internal/api"
	"realm-tracker/internal/config"
	"realm-tracker/internal/database"
	"realm-tracker/internal/db"
	"realm-tracker/internal/logger"
	"realm-tracker/internal/parser"
	"realm-tracker/internal/repository"
	"realm-tracker/internal/scheduler"
	"realm-tracker/internal/server"
	"realm-tracker/internal/service"

	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

// CoreModule wires everything needed to ingest and query rosters.
var CoreModule = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewTransactor),
	fx.Provide(repository.NewUploadRepository),
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewChangeRepository),
	// parser + webhook client
	fx.Provide(parser.New),
	fx.Provide(api.NewWebhookClient),
	// svc
	fx.Provide(service.NewChangeDetector),
	fx.Provide(service.NewIngestionService),
	fx.Provide(service.NewImportService),
	fx.Provide(service.NewRosterService),
)

// Module is the full HTTP server graph.
var Module = fx.Options(
	CoreModule,
	fx.Provide(scheduler.NewScheduler),
	fx.Provide(server.NewRosterServer),
	fx.Invoke(scheduler.Register),
)
