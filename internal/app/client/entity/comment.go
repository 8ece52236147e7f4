package entity

import (
	"context"

	"golang.org/x/exp/slog"

	"blogkeeper/internal/domain/blog"
)

type (
	PostService = Service[blog.Post]
	UserService = Service[blog.User]
)

// CommentService добавляет к общему конвейеру выборку комментариев по записи.
type CommentService struct {
	*Service[blog.Comment]
}

func NewCommentService(table Table[blog.Comment], queue Queue, remote blog.Remote, conn Connectivity, log *slog.Logger, opts ...Option) *CommentService {
	return &CommentService{Service: New[blog.Comment](table, queue, remote, conn, log, opts...)}
}

// ListByPost возвращает локальные комментарии к записи postID.
func (s *CommentService) ListByPost(ctx context.Context, postID int64) ([]blog.Comment, error) {
	return s.table.Scan(ctx, func(c blog.Comment) bool {
		return c.PostID == postID
	})
}
