package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slog"

	"blogkeeper/internal/app/client/storage"
	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/utils/broadcast"
)

// DefaultMaxRetries число неудачных попыток, после которого операция снимается с очереди.
const DefaultMaxRetries = 3

// Status состояние движка синхронизации
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// Queue очередь операций, которую разбирает движок.
type Queue interface {
	Snapshot(ctx context.Context) ([]blog.Operation, error)
	Remove(ctx context.Context, id string) error
	Update(ctx context.Context, op blog.Operation) error
	Rewrite(ctx context.Context, ops []blog.Operation) error
}

// Importer атомарная запись результатов начальной синхронизации.
type Importer interface {
	Import(ctx context.Context, batches ...storage.Batch) error
}

// Result итог одного прохода по очереди
type Result struct {
	Skipped   bool          `json:"skipped" yaml:"skipped"`
	Total     int           `json:"total" yaml:"total"`
	Replayed  int           `json:"replayed" yaml:"replayed"`
	Deferred  int           `json:"deferred" yaml:"deferred"`
	Failed    int           `json:"failed" yaml:"failed"`
	Abandoned int           `json:"abandoned" yaml:"abandoned"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Stats накопленная статистика движка
type Stats struct {
	Passes       int       `json:"passes" yaml:"passes"`
	Replayed     int       `json:"replayed" yaml:"replayed"`
	Failed       int       `json:"failed" yaml:"failed"`
	Abandoned    int       `json:"abandoned" yaml:"abandoned"`
	InitialSyncs int       `json:"initialSyncs" yaml:"initialSyncs"`
	LastPass     time.Time `json:"lastPass,omitempty" yaml:"lastPass,omitempty"`
	LastImport   time.Time `json:"lastImport,omitempty" yaml:"lastImport,omitempty"`
}

type Option func(*Engine)

func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine разбирает очередь операций и приводит локальное хранилище к состоянию сервера.
type Engine struct {
	store      Importer
	queue      Queue
	remote     blog.Remote
	handlers   map[blog.Kind]Handler
	order      []blog.Kind
	log        *slog.Logger
	now        func() time.Time
	maxRetries int

	running atomic.Bool
	status  broadcast.Broadcaster[Status]
	mu      gosync.Mutex
	stats   Stats
}

func New(store Importer, queue Queue, remote blog.Remote, log *slog.Logger, handlers []Handler, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		queue:      queue,
		remote:     remote,
		handlers:   make(map[blog.Kind]Handler, len(handlers)),
		log:        log.With("component", "sync"),
		now:        time.Now,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, h := range handlers {
		h.bind(remote, e.now)
		e.handlers[h.kind()] = h
		e.order = append(e.order, h.kind())
	}

	return e
}

// Running сообщает, выполняется ли сейчас проход по очереди.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Subscribe регистрирует наблюдателя смены состояния Running/Idle.
func (e *Engine) Subscribe(fn func(Status)) (cancel func()) {
	return e.status.Subscribe(fn)
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

type entityKey struct {
	kind blog.Kind
	key  int64
}

// pass состояние одного прохода по снимку очереди
type pass struct {
	ops     []blog.Operation
	removed map[string]bool
	failed  map[entityKey]bool
	touched map[blog.Kind]bool
	result  Result
}

// SyncPendingOperations выполняет один проход по очереди. Если проход уже идет,
// возвращается сразу с Result.Skipped, не читая очередь и не меняя хранилище.
// Операции выполняются строго по порядку; ошибка одной не прерывает остальные.
func (e *Engine) SyncPendingOperations(ctx context.Context) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.log.Debug("Синхронизация уже выполняется")
		return Result{Skipped: true}, nil
	}
	e.status.Publish(StatusRunning)
	defer func() {
		e.running.Store(false)
		e.status.Publish(StatusIdle)
	}()

	start := e.now()

	ops, err := e.queue.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("ошибка чтения очереди: %w", err)
	}

	p := &pass{
		ops:     ops,
		removed: make(map[string]bool),
		failed:  make(map[entityKey]bool),
		touched: make(map[blog.Kind]bool),
		result:  Result{Total: len(ops)},
	}

	if len(ops) > 0 {
		e.log.Info("Начало синхронизации", "operations", len(ops))
	}

	for i := range p.ops {
		if ctx.Err() != nil {
			e.log.Warn("Синхронизация прервана", "error", ctx.Err())
			break
		}
		if err := e.process(ctx, p, i); err != nil {
			e.finish(ctx, p, start)
			return p.result, err
		}
	}

	e.finish(ctx, p, start)

	if len(ops) > 0 {
		e.log.Info("Синхронизация завершена",
			"replayed", p.result.Replayed,
			"deferred", p.result.Deferred,
			"failed", p.result.Failed,
			"abandoned", p.result.Abandoned,
			"duration", p.result.Duration,
		)
	}

	return p.result, nil
}

func (e *Engine) finish(ctx context.Context, p *pass, start time.Time) {
	for _, kind := range e.order {
		if p.touched[kind] {
			e.handlers[kind].refresh(ctx)
		}
	}

	p.result.Duration = e.now().Sub(start)

	e.mu.Lock()
	e.stats.Passes++
	e.stats.Replayed += p.result.Replayed
	e.stats.Failed += p.result.Failed
	e.stats.Abandoned += p.result.Abandoned
	e.stats.LastPass = start
	e.mu.Unlock()
}

// process выполняет одну операцию снимка. Возвращает ошибку только при сбое
// локального хранилища; ошибки сервера учитываются как неудачные попытки.
func (e *Engine) process(ctx context.Context, p *pass, i int) error {
	op := p.ops[i]
	ek := entityKey{op.Entity, op.Key}
	log := e.log.With("op", op.ID, "type", op.Type, "entity", op.Entity, "id", op.Key)

	h, ok := e.handlers[op.Entity]
	if !ok {
		return e.fail(ctx, p, nil, op, fmt.Errorf("%w: %q", blog.ErrUnknownKind, op.Entity))
	}

	if p.failed[ek] {
		log.Debug("Операция отложена: предыдущая операция сущности не выполнена")
		p.result.Deferred++
		return nil
	}

	if ref, blocked, err := e.blockedBy(h, op); err != nil {
		return e.fail(ctx, p, h, op, err)
	} else if blocked {
		if e.createQueued(p, ref) {
			log.Debug("Операция отложена до подтверждения создания", "waits", ref.Kind, "ref", ref.ID)
			p.failed[ek] = true
			p.result.Deferred++
			return nil
		}
		return e.fail(ctx, p, h, op, fmt.Errorf("%s %d: %w", ref.Kind, ref.ID, blog.ErrPlaceholder))
	}

	remap, err := h.replay(ctx, op)
	var lerr *localError
	switch {
	case errors.As(err, &lerr):
		// Сервер уже принял операцию, повторять ее нельзя.
		log.Error("Ошибка локального хранилища после подтверждения сервером", "error", lerr.err)
		if err := e.confirmed(ctx, p, op, remap); err != nil {
			return errors.Join(lerr.err, err)
		}
		return lerr.err
	case err != nil:
		return e.fail(ctx, p, h, op, err)
	}

	if err := e.confirmed(ctx, p, op, remap); err != nil {
		return err
	}
	log.Debug("Операция выполнена")
	return nil
}

// confirmed снимает подтвержденную сервером операцию с очереди и применяет замену id.
func (e *Engine) confirmed(ctx context.Context, p *pass, op blog.Operation, remap remapping) error {
	if err := e.queue.Remove(ctx, op.ID); err != nil {
		return err
	}
	p.removed[op.ID] = true
	p.touched[op.Entity] = true
	p.result.Replayed++

	if remap.from != 0 {
		return e.remap(ctx, p, remap)
	}
	return nil
}

// blockedBy возвращает временный id, из-за которого операцию нельзя отправить на сервер.
// Тело delete на сервер не отправляется, поэтому внешние ключи снимка для него не проверяются.
func (e *Engine) blockedBy(h Handler, op blog.Operation) (blog.Ref, bool, error) {
	if op.Type != blog.OpCreate && blog.IsPlaceholder(op.Key) {
		return blog.Ref{Kind: op.Entity, ID: op.Key}, true, nil
	}
	if op.Type == blog.OpDelete {
		return blog.Ref{}, false, nil
	}
	return h.dangling(op)
}

// createQueued сообщает, ожидает ли в снимке операция создания сущности ref.
func (e *Engine) createQueued(p *pass, ref blog.Ref) bool {
	for _, op := range p.ops {
		if p.removed[op.ID] {
			continue
		}
		if op.Type == blog.OpCreate && op.Entity == ref.Kind && op.Key == ref.ID {
			return true
		}
	}
	return false
}

func (e *Engine) fail(ctx context.Context, p *pass, h Handler, op blog.Operation, cause error) error {
	op.RetryCount++
	op.LastError = cause.Error()
	p.failed[entityKey{op.Entity, op.Key}] = true

	log := e.log.With("op", op.ID, "type", op.Type, "entity", op.Entity, "id", op.Key,
		"retry", op.RetryCount, "error", cause)

	if op.RetryCount < e.maxRetries {
		log.Warn("Ошибка синхронизации операции")
		p.result.Failed++
		return e.queue.Update(ctx, op)
	}

	log.Error("Операция снята с очереди после исчерпания попыток")
	p.result.Abandoned++

	if h != nil {
		if err := h.markFailed(ctx, op); err != nil {
			return err
		}
		p.touched[op.Entity] = true
	}

	if err := e.queue.Remove(ctx, op.ID); err != nil {
		return err
	}
	p.removed[op.ID] = true
	return nil
}

// remap заменяет временный id серверным во всех операциях очереди (включая добавленные
// во время прохода), в оставшейся части снимка и во внешних ключах локальных записей.
func (e *Engine) remap(ctx context.Context, p *pass, m remapping) error {
	current, err := e.queue.Snapshot(ctx)
	if err != nil {
		return err
	}

	changed := make([]blog.Operation, 0)
	byID := make(map[string]blog.Operation)
	for _, op := range current {
		h, ok := e.handlers[op.Entity]
		if !ok {
			continue
		}
		next, ok, err := h.remapOp(op, m.kind, m.from, m.to)
		if err != nil {
			e.log.Warn("Не удалось заменить временный id в операции", "op", op.ID, "error", err)
			continue
		}
		if ok {
			changed = append(changed, next)
			byID[next.ID] = next
		}
	}

	if err := e.queue.Rewrite(ctx, changed); err != nil {
		return err
	}

	for i, op := range p.ops {
		if next, ok := byID[op.ID]; ok {
			p.ops[i].Key = next.Key
			p.ops[i].Data = next.Data
		}
	}

	from, to := entityKey{m.kind, m.from}, entityKey{m.kind, m.to}
	if p.failed[from] {
		p.failed[to] = true
	}

	for _, kind := range e.order {
		if err := e.handlers[kind].remapRefs(ctx, m.kind, m.from, m.to); err != nil {
			return err
		}
		p.touched[kind] = true
	}

	e.log.Debug("Временный id заменен серверным", "entity", m.kind, "from", m.from, "to", m.to)
	return nil
}

// InitialSync загружает все коллекции с сервера параллельно и записывает их одной
// транзакцией. При любой ошибке хранилище не изменяется, возвращается blog.ErrInitialSync.
func (e *Engine) InitialSync(ctx context.Context) error {
	batches := make([]storage.Batch, len(e.order))
	counts := make([]int, len(e.order))

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i, kind := range e.order {
		h := e.handlers[kind]
		p.Go(func(ctx context.Context) error {
			b, n, err := h.fetch(ctx)
			if err != nil {
				return err
			}
			batches[i] = b
			counts[i] = n
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		e.log.Error("Ошибка начальной синхронизации", "error", err)
		return fmt.Errorf("%w: %w", blog.ErrInitialSync, err)
	}

	if err := e.store.Import(ctx, batches...); err != nil {
		e.log.Error("Ошибка записи данных начальной синхронизации", "error", err)
		return fmt.Errorf("%w: %w", blog.ErrInitialSync, err)
	}

	for _, kind := range e.order {
		e.handlers[kind].refresh(ctx)
	}

	e.mu.Lock()
	e.stats.InitialSyncs++
	e.stats.LastImport = e.now()
	e.mu.Unlock()

	attrs := make([]any, 0, 2*len(e.order))
	for i, kind := range e.order {
		attrs = append(attrs, kind.Collection(), counts[i])
	}
	e.log.Info("Начальная синхронизация завершена", attrs...)
	return nil
}
