package logger

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type pingOutput struct {
	Body struct {
		Pong bool `json:"pong"`
	}
}

func register(api huma.API, mw func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Middlewares: huma.Middlewares{mw},
	}, func(context.Context, *struct{}) (*pingOutput, error) {
		out := &pingOutput{}
		out.Body.Pong = true
		return out, nil
	})
	huma.Register(api, huma.Operation{
		OperationID: "boom",
		Method:      http.MethodGet,
		Path:        "/boom",
		Middlewares: huma.Middlewares{mw},
	}, func(context.Context, *struct{}) (*pingOutput, error) {
		return nil, huma.Error500InternalServerError("boom")
	})
}

func TestLogger_Middleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, api := humatest.New(t)
	register(api, New(log).Middleware())

	resp := api.Get("/ping")
	assert.Equal(t, http.StatusOK, resp.Code)

	out := buf.String()
	assert.Contains(t, out, `"component":"http_logger"`)
	assert.Contains(t, out, `"path":"/ping"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	_, api := humatest.New(t)
	register(api, New(log).Middleware())

	resp := api.Get("/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
