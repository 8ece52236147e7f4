package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"blogkeeper/internal/domain/blog"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table таблица записей одного типа. Запись хранится целиком в JSON.
type Table[T blog.Entity[T]] struct {
	db   *sql.DB
	kind blog.Kind
	name string
}

func NewTable[T blog.Entity[T]](s *Store) *Table[T] {
	var zero T
	kind := zero.Kind()
	return &Table[T]{db: s.db, kind: kind, name: kind.Collection()}
}

func (t *Table[T]) Kind() blog.Kind {
	return t.kind
}

// Get возвращает запись по идентификатору или ошибку blog.ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, id int64) (T, error) {
	var (
		rec  T
		data string
	)

	err := t.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id = ?", t.name), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%s %d: %w", t.kind, id, blog.ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("ошибка получения записи %s %d: %w", t.kind, id, err)
	}

	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return rec, fmt.Errorf("ошибка разбора записи %s %d: %w", t.kind, id, err)
	}
	return rec, nil
}

// Put вставляет запись или полностью перезаписывает существующую с тем же id.
func (t *Table[T]) Put(ctx context.Context, rec T) error {
	return t.put(ctx, t.db, rec)
}

func (t *Table[T]) put(ctx context.Context, q execer, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи %s %d: %w", t.kind, rec.Key(), err)
	}

	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, sync_status, updated_at, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, t.name), rec.Key(), rec.Status(), rec.Modified(), string(data))
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи %s %d: %w", t.kind, rec.Key(), err)
	}
	return nil
}

// Delete удаляет запись. Удаление отсутствующей записи не является ошибкой.
func (t *Table[T]) Delete(ctx context.Context, id int64) error {
	if _, err := t.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id); err != nil {
		return fmt.Errorf("ошибка удаления записи %s %d: %w", t.kind, id, err)
	}
	return nil
}

// Replace атомарно удаляет запись from и сохраняет rec (подмена временного id на серверный).
func (t *Table[T]) Replace(ctx context.Context, from int64, rec T) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), from); err != nil {
		return fmt.Errorf("ошибка удаления записи %s %d: %w", t.kind, from, err)
	}
	if err := t.put(ctx, tx, rec); err != nil {
		return err
	}

	return tx.Commit()
}

// Scan возвращает записи, удовлетворяющие предикату, в порядке id. nil означает все записи.
func (t *Table[T]) Scan(ctx context.Context, match func(T) bool) ([]T, error) {
	return t.scan(ctx, t.db, match)
}

func (t *Table[T]) scan(ctx context.Context, q execer, match func(T) bool) ([]T, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT data FROM %s ORDER BY id", t.name))
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса к %s: %w", t.name, err)
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи %s: %w", t.kind, err)
		}

		var rec T
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("ошибка разбора записи %s: %w", t.kind, err)
		}
		if match == nil || match(rec) {
			records = append(records, rec)
		}
	}

	return records, rows.Err()
}

func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	return t.Scan(ctx, nil)
}

// RemapRefs заменяет временный идентификатор сущности kind во внешних ключах записей.
// Возвращает число измененных записей.
func (t *Table[T]) RemapRefs(ctx context.Context, kind blog.Kind, from, to int64) (int, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	records, err := t.scan(ctx, tx, nil)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, rec := range records {
		if kind == t.kind && rec.Key() == from {
			continue
		}
		next, ok := rec.Remap(kind, from, to)
		if !ok {
			continue
		}
		if err := t.put(ctx, tx, next); err != nil {
			return 0, err
		}
		changed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ошибка фиксации замены ссылок: %w", err)
	}
	return changed, nil
}

// NextPlaceholder выделяет новый отрицательный идентификатор. Значения не повторяются,
// даже если записи с предыдущими временными id уже удалены.
func (t *Table[T]) NextPlaceholder(ctx context.Context) (int64, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	var lowest int64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT MIN(
			COALESCE((SELECT MIN(id) FROM %s), 0),
			COALESCE((SELECT MIN(entity_key) FROM sync_queue WHERE entity = ?), 0),
			COALESCE((SELECT last FROM placeholders WHERE entity = ?), 0),
			0
		)
	`, t.name), t.kind, t.kind).Scan(&lowest)
	if err != nil {
		return 0, fmt.Errorf("ошибка выделения временного id %s: %w", t.kind, err)
	}

	next := lowest - 1
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO placeholders (entity, last) VALUES (?, ?)
		ON CONFLICT(entity) DO UPDATE SET last = excluded.last
	`, t.kind, next); err != nil {
		return 0, fmt.Errorf("ошибка сохранения временного id %s: %w", t.kind, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ошибка фиксации временного id: %w", err)
	}
	return next, nil
}

// Batch готовит набор записей для Store.Import.
func (t *Table[T]) Batch(records []T) Batch {
	return batch[T]{table: t, records: records}
}

type batch[T blog.Entity[T]] struct {
	table   *Table[T]
	records []T
}

func (b batch[T]) write(ctx context.Context, tx *sql.Tx) (int, error) {
	// Записи, удаленные локально и ожидающие delete в очереди, не восстанавливаются.
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, sync_status, updated_at, data)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM sync_queue WHERE entity = ? AND entity_key = ? AND type = ?
		)
		ON CONFLICT(id) DO UPDATE SET
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at,
			data = excluded.data
		WHERE %s.sync_status = ?
	`, b.table.name, b.table.name))
	if err != nil {
		return 0, fmt.Errorf("ошибка подготовки импорта %s: %w", b.table.name, err)
	}
	defer stmt.Close()

	written := 0
	for _, rec := range b.records {
		data, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("ошибка сериализации записи %s %d: %w", b.table.kind, rec.Key(), err)
		}
		res, err := stmt.ExecContext(ctx, rec.Key(), rec.Status(), rec.Modified(), string(data),
			b.table.kind, rec.Key(), blog.OpDelete, blog.StatusSynced)
		if err != nil {
			return 0, fmt.Errorf("ошибка импорта записи %s %d: %w", b.table.kind, rec.Key(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	return written, nil
}
