package storage

import (
	"context"
	"errors"

	"blogkeeper/internal/domain/blog"
)

var ErrNotFound = errors.New("resource not found")

// Repository хранилище одного ресурса API. Идентификаторы назначает хранилище.
type Repository[D any] interface {
	List(ctx context.Context) ([]D, error)
	Get(ctx context.Context, id int64) (D, error)
	Create(ctx context.Context, d D) (D, error)
	Update(ctx context.Context, id int64, d D) (D, error)
	Delete(ctx context.Context, id int64) error
}

// Repositories набор хранилищ всех коллекций сервера.
type Repositories struct {
	Posts    Repository[blog.PostDTO]
	Comments Repository[blog.CommentDTO]
	Users    Repository[blog.UserDTO]
}
