// GET    /health                 # Проверка доступности (зонд клиента)
// GET    /{collection}           # Список ресурсов
// POST   /{collection}           # Создать ресурс, id назначает сервер
// GET    /{collection}/{id}      # Получить ресурс
// PUT    /{collection}/{id}      # Заменить ресурс
// DELETE /{collection}/{id}      # Удалить ресурс
//
// collection: posts, comments, users

package api

import (
	healthAPI "blogkeeper/internal/app/server/api/http/health"
	"blogkeeper/internal/app/server/api/http/middleware"
	"blogkeeper/internal/app/server/api/http/middleware/logger"
	"blogkeeper/internal/app/server/api/http/resource"
	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

// Backend хранилища коллекций и проверка их доступности.
type Backend struct {
	Name   string
	Repos  storage.Repositories
	Pinger healthAPI.Pinger
}

type Handlers struct {
	Health   *healthAPI.Handler
	Posts    *resource.Handler[blog.PostDTO]
	Comments *resource.Handler[blog.CommentDTO]
	Users    *resource.Handler[blog.UserDTO]
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(backend Backend, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RequestID, chimw.Recoverer)

	config := huma.DefaultConfig("Blogkeeper API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(backend, log)
	h.Health.SetupRoutes(API)
	h.Posts.SetupRoutes(API)
	h.Comments.SetupRoutes(API)
	h.Users.SetupRoutes(API)

	return mux
}

func handlers(backend Backend, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer(loggerMW.Middleware())

	return &Handlers{
		Health: healthAPI.NewHandler(backend.Name, backend.Pinger, log, middlewares.With()),
		Posts: resource.NewHandler(blog.KindPost.Collection(), backend.Repos.Posts,
			log, middlewares.With()),
		Comments: resource.NewHandler(blog.KindComment.Collection(), backend.Repos.Comments,
			log, middlewares.With()),
		Users: resource.NewHandler(blog.KindUser.Collection(), backend.Repos.Users,
			log, middlewares.With()),
	}
}
