package resource

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/infrastructure/storage"
)

// Handler CRUD-операции одной коллекции: /{name} и /{name}/{id}.
type Handler[D blog.Resource[D]] struct {
	name       string
	repo       storage.Repository[D]
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler[D blog.Resource[D]](name string, repo storage.Repository[D], log *slog.Logger, mws huma.Middlewares) *Handler[D] {
	return &Handler[D]{
		name:       name,
		repo:       repo,
		log:        log.With("component", name+"_handler"),
		middleware: mws,
	}
}

func (h *Handler[D]) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler[D]) list(ctx context.Context, _ *struct{}) (*listOutput[D], error) {
	items, err := h.repo.List(ctx)
	if err != nil {
		return nil, h.fail(err)
	}
	return &listOutput[D]{Body: items}, nil
}

func (h *Handler[D]) get(ctx context.Context, input *itemInput) (*itemOutput[D], error) {
	item, err := h.repo.Get(ctx, input.ID)
	if err != nil {
		return nil, h.fail(err)
	}
	return &itemOutput[D]{Body: item}, nil
}

func (h *Handler[D]) create(ctx context.Context, input *createInput[D]) (*itemOutput[D], error) {
	if err := input.Body.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	item, err := h.repo.Create(ctx, input.Body.WithID(0))
	if err != nil {
		return nil, h.fail(err)
	}
	h.log.Debug("resource created", "id", item.Identity())
	return &itemOutput[D]{Body: item}, nil
}

func (h *Handler[D]) update(ctx context.Context, input *updateInput[D]) (*itemOutput[D], error) {
	if err := input.Body.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	item, err := h.repo.Update(ctx, input.ID, input.Body.WithID(input.ID))
	if err != nil {
		return nil, h.fail(err)
	}
	return &itemOutput[D]{Body: item}, nil
}

func (h *Handler[D]) delete(ctx context.Context, input *itemInput) (*struct{}, error) {
	if err := h.repo.Delete(ctx, input.ID); err != nil {
		return nil, h.fail(err)
	}
	return nil, nil
}

func (h *Handler[D]) fail(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	h.log.Error("repository error", "error", err)
	return huma.Error500InternalServerError("internal error")
}
