package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/infrastructure/storage"
)

func TestRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := New[blog.PostDTO]()

	first, err := repo.Create(ctx, blog.PostDTO{ID: 77, UserID: 1, Title: "A", Body: "B"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID, "идентификатор назначает хранилище")

	second, err := repo.Create(ctx, blog.PostDTO{UserID: 1, Title: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	updated, err := repo.Update(ctx, 1, blog.PostDTO{ID: 5, UserID: 2, Title: "A2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ID)
	assert.Equal(t, int64(2), updated.UserID)

	require.NoError(t, repo.Delete(ctx, 2))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A2", list[0].Title)
}

func TestRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := New[blog.UserDTO]()

	_, err := repo.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.Update(ctx, 1, blog.UserDTO{Name: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, 1), storage.ErrNotFound)
}

func TestRepo_IDsNotReused(t *testing.T) {
	ctx := context.Background()
	repo := New[blog.CommentDTO]()

	c, err := repo.Create(ctx, blog.CommentDTO{PostID: 1, Body: "x"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, c.ID))

	next, err := repo.Create(ctx, blog.CommentDTO{PostID: 1, Body: "y"})
	require.NoError(t, err)
	assert.Greater(t, next.ID, c.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNewRepositories(t *testing.T) {
	repos := NewRepositories()
	assert.NotNil(t, repos.Posts)
	assert.NotNil(t, repos.Comments)
	assert.NotNil(t, repos.Users)
}
