package resource

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler[D]) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-" + h.name,
		Method:      http.MethodGet,
		Path:        "/" + h.name,
		Summary:     "List " + h.name,
		Tags:        []string{h.name},
		Middlewares: h.middleware,
	}
}

func (h *Handler[D]) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "get-" + h.name,
		Method:      http.MethodGet,
		Path:        "/" + h.name + "/{id}",
		Summary:     "Get one of " + h.name,
		Tags:        []string{h.name},
		Middlewares: h.middleware,
	}
}

func (h *Handler[D]) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "create-" + h.name,
		Method:        http.MethodPost,
		Path:          "/" + h.name,
		Summary:       "Create one of " + h.name,
		Description:   "The server assigns the identifier; an id in the body is ignored",
		Tags:          []string{h.name},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler[D]) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "update-" + h.name,
		Method:      http.MethodPut,
		Path:        "/" + h.name + "/{id}",
		Summary:     "Replace one of " + h.name,
		Tags:        []string{h.name},
		Middlewares: h.middleware,
	}
}

func (h *Handler[D]) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "delete-" + h.name,
		Method:        http.MethodDelete,
		Path:          "/" + h.name + "/{id}",
		Summary:       "Delete one of " + h.name,
		Tags:          []string{h.name},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   h.middleware,
	}
}
