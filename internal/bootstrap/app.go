package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"privflow/internal/bootstrap/config"
	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
	"privflow/internal/infrastructure/persistence/sqlite/model"
)

// ErrSchemaMissing is returned by CheckSchema when init-db has not been run.
var ErrSchemaMissing = errors.New("database schema is missing")

type App struct {
	Config config.Config
	DB     *gorm.DB
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration", slog.Int("models", len(model.All())))

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

// CheckSchema verifies every workflow table exists without migrating.
func (a *App) CheckSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	migrator := a.DB.WithContext(ctx).Migrator()
	var missing []string
	for _, m := range model.All() {
		if !migrator.HasTable(m) {
			stmt := &gorm.Statement{DB: a.DB}
			if err := stmt.Parse(m); err != nil {
				return errs.Wrap(err, "parse model")
			}
			missing = append(missing, stmt.Schema.Table)
		}
	}
	if len(missing) > 0 {
		logging.Warn(
			logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")),
			"schema check failed",
			slog.Any("missing_tables", missing),
		)
		return fmt.Errorf("%w: tables %v (run init-db)", ErrSchemaMissing, missing)
	}
	return nil
}
