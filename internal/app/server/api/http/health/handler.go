package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	storage    string
	pinger     Pinger
	log        *slog.Logger
	middleware huma.Middlewares
}

// NewHandler создает обработчик. pinger может быть nil для хранилища в памяти.
func NewHandler(storage string, pinger Pinger, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		storage:    storage,
		pinger:     pinger,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.log.Warn("storage is unavailable", "storage", h.storage, "error", err)
			return nil, huma.Error503ServiceUnavailable("storage is unavailable")
		}
	}

	return &Output{
		Body: Response{
			Status:  "OK",
			Storage: h.storage,
		},
	}, nil
}
