package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"blogkeeper/internal/app/client/config"
	"blogkeeper/internal/app/client/connectivity"
	"blogkeeper/internal/app/client/entity"
	"blogkeeper/internal/app/client/remote"
	"blogkeeper/internal/app/client/storage"
	"blogkeeper/internal/app/client/sync"
	"blogkeeper/internal/domain/blog"
)

type App struct {
	config  *config.Config
	log     *slog.Logger
	store   *storage.Store
	remote  *remote.Client
	conn    entity.Connectivity
	monitor *connectivity.Monitor
	engine  *sync.Engine

	Posts    *entity.PostService
	Comments *entity.CommentService
	Users    *entity.UserService

	wg     gosync.WaitGroup
	mu     gosync.Mutex
	cancel context.CancelFunc
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.EnsureDirs(); err != nil {
		log.Warn("Не удалось создать каталоги клиента", "error", err)
	}

	// Инициализируем локальное хранилище (при ошибке используем память)
	store, err := storage.OpenOrMemory(cfg.DataPath, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	httpCl := remote.New(remote.Options{
		Address:   cfg.ServerAddress,
		EnableTLS: cfg.EnableTLS,
		Timeout:   cfg.Timeout(),
	}, log)

	app := &App{
		config: cfg,
		log:    log,
		store:  store,
		remote: httpCl,
	}

	if cfg.Offline {
		app.conn = connectivity.NewStatic(false)
	} else {
		app.monitor = connectivity.NewMonitor(httpCl, cfg.ProbeEvery(), log)
		app.conn = app.monitor
	}

	queue := store.Queue()
	posts := storage.NewTable[blog.Post](store)
	comments := storage.NewTable[blog.Comment](store)
	users := storage.NewTable[blog.User](store)

	app.Posts = entity.New[blog.Post](posts, queue, httpCl, app.conn, log)
	app.Comments = entity.NewCommentService(comments, queue, httpCl, app.conn, log)
	app.Users = entity.New[blog.User](users, queue, httpCl, app.conn, log)

	app.engine = sync.New(store, queue, httpCl, log, []sync.Handler{
		sync.Handle(users, app.Users.Refresh),
		sync.Handle(posts, app.Posts.Refresh),
		sync.Handle(comments, app.Comments.Refresh),
	}, sync.WithMaxRetries(cfg.MaxRetries))

	return app, nil
}

// Run запускает фоновую синхронизацию и мониторинг связи до сигнала завершения.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.handleSignals(ctx, cancel)

	if a.monitor != nil {
		unsubscribe := a.monitor.Subscribe(func(online bool) {
			if online {
				a.syncOnce(ctx)
			}
		})
		defer unsubscribe()

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.monitor.Run(ctx)
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.startSync(ctx)
	}()

	// Shutdown видит cancel только после регистрации фоновых задач в wg.
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"offline", a.config.Offline,
	)

	a.wg.Wait()
	return nil
}

func (a *App) startSync(ctx context.Context) {
	ticker := time.NewTicker(a.config.SyncEvery())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Синхронизация остановлена")
			return
		case <-ticker.C:
			if a.conn.Online() {
				a.syncOnce(ctx)
			}
		}
	}
}

func (a *App) syncOnce(ctx context.Context) {
	if _, err := a.engine.SyncPendingOperations(ctx); err != nil {
		a.log.Error("Ошибка синхронизации", "error", err)
	}
}

func (a *App) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}
}

func (a *App) stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Shutdown останавливает фоновые задачи и закрывает хранилище.
func (a *App) Shutdown() {
	a.log.Info("Завершение работы клиента...")

	a.stop()

	a.wg.Wait()
	if err := a.store.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", "error", err)
	}
	a.log.Info("Клиент завершил работу")
}

// CheckConnection проверяет доступность сервера и обновляет состояние связи.
func (a *App) CheckConnection(ctx context.Context) bool {
	if a.monitor == nil {
		return a.conn.Online()
	}
	return a.monitor.Check(ctx)
}

func (a *App) Online() bool {
	return a.conn.Online()
}

// Sync выполняет один проход по очереди операций.
func (a *App) Sync(ctx context.Context) (sync.Result, error) {
	return a.engine.SyncPendingOperations(ctx)
}

// InitialSync загружает все данные с сервера.
func (a *App) InitialSync(ctx context.Context) error {
	return a.engine.InitialSync(ctx)
}

// PendingOperations возвращает операции, ожидающие отправки на сервер.
func (a *App) PendingOperations(ctx context.Context) ([]blog.Operation, error) {
	return a.store.Queue().Snapshot(ctx)
}

func (a *App) SyncStats() sync.Stats {
	return a.engine.Stats()
}

// SubscribeStatus регистрирует наблюдателя состояния синхронизации.
func (a *App) SubscribeStatus(fn func(sync.Status)) (cancel func()) {
	return a.engine.Subscribe(fn)
}

func (a *App) Config() *config.Config {
	return a.config
}
