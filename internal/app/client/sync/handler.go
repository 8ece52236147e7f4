package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogkeeper/internal/app/client/storage"
	"blogkeeper/internal/domain/blog"
)

// Handler набор операций движка для одного типа сущности. Создается через Handle.
type Handler interface {
	kind() blog.Kind
	bind(remote blog.Remote, now func() time.Time)
	replay(ctx context.Context, op blog.Operation) (remapping, error)
	dangling(op blog.Operation) (blog.Ref, bool, error)
	remapOp(op blog.Operation, kind blog.Kind, from, to int64) (blog.Operation, bool, error)
	remapRefs(ctx context.Context, kind blog.Kind, from, to int64) error
	markFailed(ctx context.Context, op blog.Operation) error
	fetch(ctx context.Context) (storage.Batch, int, error)
	refresh(ctx context.Context)
}

// remapping подмена временного id серверным после подтвержденного create.
type remapping struct {
	kind     blog.Kind
	from, to int64
}

// localError ошибка локального хранилища после того, как сервер уже принял операцию.
type localError struct {
	err error
}

func (e *localError) Error() string { return e.err.Error() }

func (e *localError) Unwrap() error { return e.err }

func local(err error) error {
	if err == nil {
		return nil
	}
	return &localError{err: err}
}

type kindHandler[T blog.Entity[T]] struct {
	k      blog.Kind
	table  *storage.Table[T]
	notify func(context.Context)
	remote blog.Remote
	now    func() time.Time
}

// Handle регистрирует таблицу сущностей в движке. notify вызывается после
// изменений таблицы, сделанных синхронизацией; может быть nil.
func Handle[T blog.Entity[T]](table *storage.Table[T], notify func(context.Context)) Handler {
	return &kindHandler[T]{k: table.Kind(), table: table, notify: notify}
}

func (h *kindHandler[T]) kind() blog.Kind {
	return h.k
}

func (h *kindHandler[T]) bind(remote blog.Remote, now func() time.Time) {
	h.remote = remote
	h.now = now
}

func (h *kindHandler[T]) replay(ctx context.Context, op blog.Operation) (remapping, error) {
	rec, err := blog.Decode[T](op)
	if err != nil {
		return remapping{}, err
	}

	switch op.Type {
	case blog.OpCreate:
		return h.replayCreate(ctx, op, rec)
	case blog.OpUpdate:
		return remapping{}, h.replayUpdate(ctx, op, rec)
	case blog.OpDelete:
		if blog.IsPlaceholder(op.Key) {
			return remapping{}, fmt.Errorf("%s %d: %w", h.k, op.Key, blog.ErrPlaceholder)
		}
		return remapping{}, h.remote.Delete(ctx, h.k, op.Key)
	}

	return remapping{}, fmt.Errorf("%w: %q", blog.ErrUnknownOperation, op.Type)
}

func (h *kindHandler[T]) replayCreate(ctx context.Context, op blog.Operation, rec T) (remapping, error) {
	var out T
	if err := h.remote.Create(ctx, h.k, rec.Payload(), &out); err != nil {
		return remapping{}, err
	}
	id := out.Key()
	if id <= 0 {
		return remapping{}, fmt.Errorf("%w: сервер не вернул id для %s", blog.ErrInvalidResponse, h.k)
	}

	m := remapping{}
	if blog.IsPlaceholder(op.Key) {
		m = remapping{kind: h.k, from: op.Key, to: id}
	}

	cur, err := h.table.Get(ctx, op.Key)
	switch {
	case errors.Is(err, blog.ErrNotFound):
		// Запись удалена локально после постановки в очередь; удаление придет отдельной операцией.
	case err != nil:
		return m, local(err)
	case cur.Modified() > rec.Modified():
		// Локальная версия новее снимка: меняем только id, изменения уйдут операцией update.
		if err := h.table.Replace(ctx, op.Key, cur.WithKey(id)); err != nil {
			return m, local(err)
		}
	default:
		confirmed := rec.WithKey(id).WithSync(blog.StatusSynced, h.now().UnixMilli())
		if err := h.table.Replace(ctx, op.Key, confirmed); err != nil {
			return m, local(err)
		}
	}

	return m, nil
}

func (h *kindHandler[T]) replayUpdate(ctx context.Context, op blog.Operation, rec T) error {
	if blog.IsPlaceholder(op.Key) {
		return fmt.Errorf("%s %d: %w", h.k, op.Key, blog.ErrPlaceholder)
	}
	rec = rec.WithKey(op.Key)

	if err := h.remote.Update(ctx, h.k, op.Key, rec.Payload(), nil); err != nil {
		return err
	}

	cur, err := h.table.Get(ctx, op.Key)
	if errors.Is(err, blog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return local(err)
	}
	if cur.Modified() > rec.Modified() {
		return nil
	}

	return local(h.table.Put(ctx, rec.WithSync(blog.StatusSynced, h.now().UnixMilli())))
}

func (h *kindHandler[T]) dangling(op blog.Operation) (blog.Ref, bool, error) {
	rec, err := blog.Decode[T](op)
	if err != nil {
		return blog.Ref{}, false, err
	}
	ref, ok := blog.Dangling(rec)
	return ref, ok, nil
}

func (h *kindHandler[T]) remapOp(op blog.Operation, kind blog.Kind, from, to int64) (blog.Operation, bool, error) {
	rec, err := blog.Decode[T](op)
	if err != nil {
		return op, false, err
	}

	next, changed := rec.Remap(kind, from, to)
	if kind == op.Entity && op.Key == from {
		op.Key = to
		changed = true
	}
	if !changed {
		return op, false, nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return op, false, fmt.Errorf("marshal %s payload: %w", h.k, err)
	}
	op.Data = data
	return op, true, nil
}

func (h *kindHandler[T]) remapRefs(ctx context.Context, kind blog.Kind, from, to int64) error {
	_, err := h.table.RemapRefs(ctx, kind, from, to)
	return err
}

func (h *kindHandler[T]) markFailed(ctx context.Context, op blog.Operation) error {
	rec, err := h.table.Get(ctx, op.Key)
	if errors.Is(err, blog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return h.table.Put(ctx, rec.WithSync(blog.StatusFailed, rec.Modified()))
}

func (h *kindHandler[T]) fetch(ctx context.Context) (storage.Batch, int, error) {
	var out []T
	if err := h.remote.List(ctx, h.k, &out); err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", h.k.Collection(), err)
	}
	if out == nil {
		return nil, 0, fmt.Errorf("fetch %s: %w: empty result", h.k.Collection(), blog.ErrInvalidResponse)
	}

	now := h.now().UnixMilli()
	records := make([]T, 0, len(out))
	for _, rec := range out {
		if rec.Key() <= 0 {
			continue
		}
		records = append(records, rec.WithSync(blog.StatusSynced, now))
	}

	return h.table.Batch(records), len(records), nil
}

func (h *kindHandler[T]) refresh(ctx context.Context) {
	if h.notify != nil {
		h.notify(ctx)
	}
}
