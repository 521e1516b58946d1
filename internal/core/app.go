package core

import (
	"database/sql"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/vrsandeep/intake-go/internal/assets"
	"github.com/vrsandeep/intake-go/internal/config"
	"github.com/vrsandeep/intake-go/internal/db"
	"github.com/vrsandeep/intake-go/internal/jobs"
	"github.com/vrsandeep/intake-go/internal/websocket"
)

// App holds the core components of the relay server.
type App struct {
	config     atomic.Pointer[config.Config]
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	Version    string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.Open(cfg.Database.Path, assets.MigrationsFS)
	if err != nil {
		// We can't proceed without a valid database schema.
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := NewWith(cfg, database, version)
	log.Println("Core application setup complete.")
	return app, nil
}

// NewWith assembles an App around existing resources and starts its hub.
func NewWith(cfg *config.Config, database *sql.DB, version string) *App {
	app := &App{
		db:      database,
		wsHub:   websocket.NewHub(),
		Version: version,
	}
	app.config.Store(cfg)
	go app.wsHub.Run()
	app.jobManager = jobs.NewManager(app)
	jobs.RegisterAll(app.jobManager)
	return app
}

func (a *App) Config() *config.Config       { return a.config.Load() }
func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) WsHub() *websocket.Hub        { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager { return a.jobManager }

// SetConfig swaps in a reloaded configuration.
func (a *App) SetConfig(cfg *config.Config) { a.config.Store(cfg) }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
