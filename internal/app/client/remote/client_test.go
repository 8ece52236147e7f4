package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"blogkeeper/internal/domain/blog"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewWithHTTPClient(srv.URL, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Create(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/posts", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_, hasID := in["id"]
		assert.False(t, hasID, "placeholder id must not be sent")
		assert.Equal(t, "A", in["title"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":3,"userId":1,"title":"A","body":"B"}`))
	})

	post := blog.Post{ID: -1, UserID: 1, Title: "A", Body: "B"}
	var out blog.Post
	require.NoError(t, client.Create(context.Background(), blog.KindPost, post.Payload(), &out))
	assert.Equal(t, int64(3), out.ID)
	assert.Equal(t, "A", out.Title)
}

func TestClient_UpdateDelete(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id":5,"name":"Ann","email":"a@x.io","username":"ann"}`))
	})

	var out blog.User
	require.NoError(t, client.Update(context.Background(), blog.KindUser, 5, blog.User{ID: 5}.Payload(), &out))
	assert.Equal(t, "Ann", out.Name)

	require.NoError(t, client.Delete(context.Background(), blog.KindComment, 8))

	assert.Equal(t, []string{"PUT /users/5", "DELETE /comments/8"}, calls)
}

func TestClient_PlaceholderPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	err := client.Update(context.Background(), blog.KindPost, -2, blog.Post{}.Payload(), nil)
	assert.ErrorIs(t, err, blog.ErrPlaceholder)

	err = client.Delete(context.Background(), blog.KindPost, -2)
	assert.ErrorIs(t, err, blog.ErrPlaceholder)
}

func TestClient_List(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"postId":2,"name":"n","email":"e","body":"b"}]`))
	})

	var out []blog.Comment
	require.NoError(t, client.List(context.Background(), blog.KindComment, &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].PostID)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "problem details",
			status:  http.StatusUnprocessableEntity,
			body:    `{"title":"Unprocessable Entity","status":422,"detail":"validation failed"}`,
			wantErr: blog.ErrRemote,
			wantMsg: "validation failed",
		},
		{
			name:    "plain error",
			status:  http.StatusInternalServerError,
			body:    `{"error":"db down"}`,
			wantErr: blog.ErrRemote,
			wantMsg: "db down",
		},
		{
			name:    "no body",
			status:  http.StatusBadGateway,
			wantErr: blog.ErrRemote,
			wantMsg: "502",
		},
		{
			name:    "garbage body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: blog.ErrInvalidResponse,
		},
		{
			name:    "empty body",
			status:  http.StatusOK,
			wantErr: blog.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			var out []blog.Post
			err := client.List(context.Background(), blog.KindPost, &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewWithHTTPClient(url, http.DefaultClient, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.ErrorIs(t, client.Health(context.Background()), blog.ErrRemote)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", BaseURL("localhost:8080", false))
	assert.Equal(t, "https://api.example.com", BaseURL("api.example.com", true))
}
