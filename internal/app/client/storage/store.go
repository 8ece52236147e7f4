package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

//go:embed schema.sql
var schemaSQL string

// 1 - таблицы сущностей, sync_queue, placeholders
const currentSchemaVersion = 1

const memoryDSN = ":memory:"

// Store локальная база клиента: таблицы сущностей и очередь синхронизации.
type Store struct {
	db   *sql.DB
	log  *slog.Logger
	path string
}

// Open открывает (или создает) SQLite базу по указанному пути.
// Используется одно соединение, поэтому все операции с хранилищем выполняются последовательно.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, path == memoryDSN); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка настройки базы данных: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return &Store{db: db, log: log.With("component", "storage"), path: path}, nil
}

// OpenMemory открывает базу в памяти. Данные теряются при закрытии.
func OpenMemory(log *slog.Logger) (*Store, error) {
	return Open(memoryDSN, log)
}

// OpenOrMemory открывает базу по пути, а при ошибке переключается на базу в памяти.
func OpenOrMemory(path string, log *slog.Logger) (*Store, error) {
	store, err := Open(path, log)
	if err == nil {
		return store, nil
	}

	log.Warn("Не удалось инициализировать SQLite, используем память", "path", path, "error", err)
	return OpenMemory(log)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path путь к файлу базы; для базы в памяти возвращает DSN.
func (s *Store) Path() string {
	return s.path
}

// DB возвращает соединение для прямых запросов.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Queue() *Queue {
	return &Queue{db: s.db}
}

func applyPragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("ошибка выполнения %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("ошибка создания схемы: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("версия схемы %d новее поддерживаемой %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("ошибка записи версии схемы: %w", err)
	}

	return nil
}

// Batch набор записей одного типа для Import.
type Batch interface {
	write(ctx context.Context, tx *sql.Tx) (int, error)
}

// Import записывает все наборы в одной транзакции: либо все, либо ничего.
// Существующие записи со статусом pending или failed не перезаписываются,
// чтобы не потерять локальные изменения, еще не доставленные на сервер. Записи,
// для которых в очереди ждет delete, не импортируются.
func (s *Store) Import(ctx context.Context, batches ...Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for _, b := range batches {
		n, err := b.write(ctx, tx)
		if err != nil {
			return err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации импорта: %w", err)
	}

	s.log.Debug("Импорт завершен", "records", total)
	return nil
}
