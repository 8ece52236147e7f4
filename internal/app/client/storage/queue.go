package storage

import (
	"context"
	"database/sql"
	"fmt"

	"blogkeeper/internal/domain/blog"
)

// Queue очередь операций синхронизации (таблица sync_queue).
type Queue struct {
	db *sql.DB
}

const queueColumns = "seq, id, type, entity, entity_key, data, timestamp, retry_count, last_error"

// Enqueue добавляет операцию в конец очереди. Повторный id отклоняется.
func (q *Queue) Enqueue(ctx context.Context, op blog.Operation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, type, entity, entity_key, data, timestamp, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, op.ID, op.Type, op.Entity, op.Key, string(op.Data), op.Timestamp, op.RetryCount, op.LastError)
	if err != nil {
		return fmt.Errorf("ошибка добавления операции %s в очередь: %w", op.ID, err)
	}
	return nil
}

// Snapshot возвращает все операции по возрастанию timestamp, при равенстве в порядке вставки.
func (q *Queue) Snapshot(ctx context.Context) ([]blog.Operation, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+queueColumns+" FROM sync_queue ORDER BY timestamp, seq")
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	defer rows.Close()

	ops := make([]blog.Operation, 0)
	for rows.Next() {
		var (
			op   blog.Operation
			data string
		)
		if err := rows.Scan(&op.Seq, &op.ID, &op.Type, &op.Entity, &op.Key, &data,
			&op.Timestamp, &op.RetryCount, &op.LastError); err != nil {
			return nil, fmt.Errorf("ошибка сканирования операции: %w", err)
		}
		op.Data = []byte(data)
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

// Remove удаляет операцию по id.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", id); err != nil {
		return fmt.Errorf("ошибка удаления операции %s: %w", id, err)
	}
	return nil
}

// Update заменяет изменяемые поля операции на месте, сохраняя ее позицию в очереди.
func (q *Queue) Update(ctx context.Context, op blog.Operation) error {
	return q.update(ctx, q.db, op)
}

func (q *Queue) update(ctx context.Context, e execer, op blog.Operation) error {
	res, err := e.ExecContext(ctx, `
		UPDATE sync_queue
		SET entity_key = ?, data = ?, retry_count = ?, last_error = ?
		WHERE id = ?
	`, op.Key, string(op.Data), op.RetryCount, op.LastError, op.ID)
	if err != nil {
		return fmt.Errorf("ошибка обновления операции %s: %w", op.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("операция %s: %w", op.ID, blog.ErrNotFound)
	}
	return nil
}

// Rewrite обновляет несколько операций в одной транзакции.
func (q *Queue) Rewrite(ctx context.Context, ops []blog.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if err := q.update(ctx, tx, op); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Pending сообщает, есть ли в очереди операции для указанной сущности.
func (q *Queue) Pending(ctx context.Context, kind blog.Kind, key int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM sync_queue WHERE entity = ? AND entity_key = ?)",
		kind, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки очереди для %s %d: %w", kind, key, err)
	}
	return exists, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_queue").Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчета операций: %w", err)
	}
	return n, nil
}
