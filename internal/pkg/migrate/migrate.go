// Package migrate applies embedded goose SQL migrations to a pgx pool.
package migrate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var ErrNoMigrations = errors.New("migrate: no migrations source")

// Up applies every pending migration found at the root of fsys and returns
// how many ran. Each module owns its migrations and passes its own fsys.
func Up(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) (int, error) {
	if fsys == nil {
		return 0, ErrNoMigrations
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, err
	}

	for _, r := range results {
		slog.InfoContext(ctx, "migration applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}

	return len(results), nil
}
