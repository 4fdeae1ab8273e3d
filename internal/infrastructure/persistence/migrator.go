package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"schedule-monitor/pkg/logger"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Migrator applies the embedded SQL migrations with goose
type Migrator struct {
	provider *goose.Provider
	logger   logger.Logger
}

// NewMigrator creates a migrator for the database behind db
func NewMigrator(db *gorm.DB, driver string, logger logger.Logger) (*Migrator, error) {
	var dialect goose.Dialect
	switch driver {
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	case DriverPostgres:
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}

	fsys, err := fs.Sub(migrations, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}

	return &Migrator{
		provider: provider,
		logger:   logger,
	}, nil
}

// Run applies all pending migrations
func (m *Migrator) Run(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, result := range results {
		m.logger.Info("Applied migration",
			"version", result.Source.Version,
			"duration", result.Duration)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("Database schema up to date", "version", version)

	return nil
}

// Version reports the current schema version
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
