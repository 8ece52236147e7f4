package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"blogkeeper/internal/infrastructure/migration"
	"blogkeeper/internal/infrastructure/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

type Storage struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// New открывает пул соединений и применяет встроенные миграции.
func New(ctx context.Context, uri string, log *slog.Logger) (*Storage, error) {
	return newStorage(ctx, uri, log, migration.DefaultEngine)
}

func newStorage(ctx context.Context, uri string, log *slog.Logger, engine migration.MigrationEngine) (*Storage, error) {
	mg := migration.NewMigration(migrations, migrationsDir, uri, engine)
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{
		pool: pool,
		log:  log.With("component", "postgres"),
	}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping проверяет соединение с базой данных.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

// Repositories возвращает хранилища всех коллекций поверх общего пула.
func (s *Storage) Repositories() storage.Repositories {
	return storage.Repositories{
		Posts:    newRepository(s.pool, s.log, postColumns),
		Comments: newRepository(s.pool, s.log, commentColumns),
		Users:    newRepository(s.pool, s.log, userColumns),
	}
}
