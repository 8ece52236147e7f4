// Package connectivity определяет, доступен ли сервер.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"blogkeeper/internal/utils/broadcast"
)

// Static фиксированное состояние связи, задаваемое вручную (например, флагом --offline).
type Static struct {
	online atomic.Bool
}

func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) Online() bool {
	return s.online.Load()
}

func (s *Static) Set(online bool) {
	s.online.Store(online)
}

// Prober проверяет доступность сервера.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor периодически опрашивает сервер и сообщает подписчикам о смене состояния.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
	online   atomic.Bool
	probed   atomic.Bool
	changes  broadcast.Broadcaster[bool]
}

func NewMonitor(prober Prober, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := interval / 2
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}

	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		log:      log.With("component", "connectivity"),
	}
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Subscribe регистрирует обработчик смены состояния. true означает восстановление связи.
func (m *Monitor) Subscribe(fn func(online bool)) (cancel func()) {
	return m.changes.Subscribe(fn)
}

// Check выполняет одну проверку и возвращает текущее состояние. Подписчики
// вызываются только при изменении состояния; первая проверка тоже считается изменением.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Health(ctx)
	online := err == nil

	prev := m.online.Swap(online)
	first := !m.probed.Swap(true)
	if prev == online && !first {
		return online
	}

	if online {
		m.log.Info("Связь с сервером установлена")
	} else {
		m.log.Warn("Сервер недоступен", "error", err)
	}
	m.changes.Publish(online)
	return online
}

// Run опрашивает сервер до отмены контекста.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Мониторинг связи остановлен")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
