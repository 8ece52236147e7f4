package entity

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/utils/broadcast"
)

// Table локальное хранилище записей одного типа.
type Table[T any] interface {
	Get(ctx context.Context, id int64) (T, error)
	Put(ctx context.Context, rec T) error
	Delete(ctx context.Context, id int64) error
	Scan(ctx context.Context, match func(T) bool) ([]T, error)
	List(ctx context.Context) ([]T, error)
	NextPlaceholder(ctx context.Context) (int64, error)
}

// Queue очередь отложенных операций.
type Queue interface {
	Enqueue(ctx context.Context, op blog.Operation) error
	Pending(ctx context.Context, kind blog.Kind, key int64) (bool, error)
}

// Connectivity сообщает, есть ли связь с сервером.
type Connectivity interface {
	Online() bool
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock подменяет источник времени для меток updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Service общий конвейер мутаций для сущностей одного типа: локальная запись,
// попытка подтверждения на сервере, постановка в очередь при неудаче.
type Service[T blog.Entity[T]] struct {
	kind      blog.Kind
	table     Table[T]
	queue     Queue
	remote    blog.Remote
	conn      Connectivity
	now       func() time.Time
	log       *slog.Logger
	observers broadcast.Broadcaster[[]T]
}

func New[T blog.Entity[T]](table Table[T], queue Queue, remote blog.Remote, conn Connectivity, log *slog.Logger, opts ...Option) *Service[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	return &Service[T]{
		kind:   zero.Kind(),
		table:  table,
		queue:  queue,
		remote: remote,
		conn:   conn,
		now:    o.now,
		log:    log.With("component", "entity", "kind", zero.Kind()),
	}
}

func (s *Service[T]) Kind() blog.Kind {
	return s.kind
}

// Create сохраняет новую запись. При успешном ответе сервера запись получает серверный id
// и статус synced; иначе временный отрицательный id, статус pending и операцию create в очереди.
func (s *Service[T]) Create(ctx context.Context, rec T) (T, error) {
	now := s.now().UnixMilli()
	rec = rec.WithKey(0).WithSync(blog.StatusPending, now)

	if s.canConfirm(ctx, rec) {
		confirmed, err := s.confirmCreate(ctx, rec, now)
		if err == nil {
			if err := s.commit(ctx, confirmed); err != nil {
				return confirmed, err
			}
			return confirmed, nil
		}
		s.log.Warn("Сервер недоступен, запись будет создана при синхронизации", "error", err)
	}

	id, err := s.table.NextPlaceholder(ctx)
	if err != nil {
		return rec, err
	}
	rec = rec.WithKey(id)

	if err := s.commit(ctx, rec); err != nil {
		return rec, err
	}
	return rec, s.enqueue(ctx, blog.OpCreate, rec)
}

// Get возвращает локальную запись. Сеть не используется.
func (s *Service[T]) Get(ctx context.Context, id int64) (T, error) {
	return s.table.Get(ctx, id)
}

func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	return s.table.List(ctx)
}

// Search ищет подстроку без учета регистра в текстовых полях локальных записей.
func (s *Service[T]) Search(ctx context.Context, query string) ([]T, error) {
	return s.table.Scan(ctx, func(rec T) bool {
		return rec.Match(query)
	})
}

// Update применяет частичное изменение. Локальная запись обновляется сразу со статусом
// pending, затем изменение подтверждается на сервере или ставится в очередь.
func (s *Service[T]) Update(ctx context.Context, id int64, patch blog.Patch[T]) (T, error) {
	cur, err := s.table.Get(ctx, id)
	if err != nil {
		return cur, err
	}

	now := s.now().UnixMilli()
	next := patch.Apply(cur).WithKey(id).WithSync(blog.StatusPending, now)

	if err := s.commit(ctx, next); err != nil {
		return next, err
	}

	if s.canConfirm(ctx, next) {
		err := s.remote.Update(ctx, s.kind, id, next.Payload(), nil)
		if err == nil {
			confirmed := next.WithSync(blog.StatusSynced, now)
			if err := s.commit(ctx, confirmed); err != nil {
				return confirmed, err
			}
			return confirmed, nil
		}
		s.log.Warn("Не удалось подтвердить изменение на сервере", "id", id, "error", err)
	}

	return next, s.enqueue(ctx, blog.OpUpdate, next)
}

// Delete удаляет запись локально и на сервере. При неудаче удаление ставится в очередь;
// в обоих случаях возвращается true.
func (s *Service[T]) Delete(ctx context.Context, id int64) (bool, error) {
	cur, err := s.table.Get(ctx, id)
	if err != nil {
		return false, err
	}

	if err := s.table.Delete(ctx, id); err != nil {
		return false, err
	}
	s.Refresh(ctx)

	if s.canConfirm(ctx, cur) {
		err := s.remote.Delete(ctx, s.kind, id)
		if err == nil {
			return true, nil
		}
		s.log.Warn("Не удалось удалить запись на сервере", "id", id, "error", err)
	}

	if err := s.enqueue(ctx, blog.OpDelete, cur); err != nil {
		return false, err
	}
	return true, nil
}

// Subscribe регистрирует наблюдателя полного списка записей.
// Наблюдатель вызывается синхронно после каждой локальной мутации.
func (s *Service[T]) Subscribe(fn func([]T)) (cancel func()) {
	return s.observers.Subscribe(fn)
}

// Refresh рассылает наблюдателям текущий список записей.
func (s *Service[T]) Refresh(ctx context.Context) {
	if s.observers.Len() == 0 {
		return
	}

	records, err := s.table.List(ctx)
	if err != nil {
		s.log.Error("Ошибка получения списка для наблюдателей", "error", err)
		return
	}
	s.observers.Publish(records)
}

func (s *Service[T]) commit(ctx context.Context, rec T) error {
	if err := s.table.Put(ctx, rec); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

func (s *Service[T]) confirmCreate(ctx context.Context, rec T, now int64) (T, error) {
	var out T
	if err := s.remote.Create(ctx, s.kind, rec.Payload(), &out); err != nil {
		return rec, err
	}
	if out.Key() <= 0 {
		return rec, fmt.Errorf("%w: сервер не вернул id для %s", blog.ErrInvalidResponse, s.kind)
	}
	return rec.WithKey(out.Key()).WithSync(blog.StatusSynced, now), nil
}

// canConfirm решает, пытаться ли подтвердить изменение сразу. Запрос к серверу
// пропускается без связи, для временных id и ссылок на них, а также когда в очереди
// уже есть операции этой сущности: иначе нарушится их порядок.
func (s *Service[T]) canConfirm(ctx context.Context, rec T) bool {
	if s.conn == nil || !s.conn.Online() {
		return false
	}
	if blog.IsPlaceholder(rec.Key()) {
		return false
	}
	if _, ok := blog.Dangling(rec); ok {
		return false
	}
	if rec.Key() == 0 {
		return true
	}

	pending, err := s.queue.Pending(ctx, s.kind, rec.Key())
	if err != nil {
		s.log.Warn("Ошибка проверки очереди", "id", rec.Key(), "error", err)
		return false
	}
	return !pending
}

func (s *Service[T]) enqueue(ctx context.Context, typ blog.OpType, rec T) error {
	op, err := blog.NewOperation(typ, rec, s.now().UnixMilli())
	if err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, op); err != nil {
		return err
	}

	s.log.Debug("Операция поставлена в очередь",
		"op", op.ID,
		"type", typ,
		"id", rec.Key(),
	)
	return nil
}
