package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/infrastructure/storage"
)

// columns описывает отображение ресурса на таблицу. Столбец id всегда первый и
// в names не входит.
type columns[D any] struct {
	table  string
	names  []string
	values func(D) []any
	scan   func(row pgx.Row) (D, error)
}

var postColumns = columns[blog.PostDTO]{
	table: "posts",
	names: []string{"user_id", "title", "body"},
	values: func(d blog.PostDTO) []any {
		return []any{d.UserID, d.Title, d.Body}
	},
	scan: func(row pgx.Row) (blog.PostDTO, error) {
		var d blog.PostDTO
		err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Body)
		return d, err
	},
}

var commentColumns = columns[blog.CommentDTO]{
	table: "comments",
	names: []string{"post_id", "name", "email", "body"},
	values: func(d blog.CommentDTO) []any {
		return []any{d.PostID, d.Name, d.Email, d.Body}
	},
	scan: func(row pgx.Row) (blog.CommentDTO, error) {
		var d blog.CommentDTO
		err := row.Scan(&d.ID, &d.PostID, &d.Name, &d.Email, &d.Body)
		return d, err
	},
}

var userColumns = columns[blog.UserDTO]{
	table: "users",
	names: []string{"name", "email", "username", "website"},
	values: func(d blog.UserDTO) []any {
		return []any{d.Name, d.Email, d.Username, d.Website}
	},
	scan: func(row pgx.Row) (blog.UserDTO, error) {
		var d blog.UserDTO
		err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Username, &d.Website)
		return d, err
	},
}

type queries struct {
	list, get, create, update, delete string
}

func (c columns[D]) queries() queries {
	selectList := "id, " + strings.Join(c.names, ", ")

	placeholders := make([]string, len(c.names))
	assignments := make([]string, len(c.names))
	for i, name := range c.names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		assignments[i] = fmt.Sprintf("%s = $%d", name, i+1)
	}

	return queries{
		list: fmt.Sprintf("SELECT %s FROM %s ORDER BY id", selectList, c.table),
		get:  fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectList, c.table),
		create: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			c.table, strings.Join(c.names, ", "), strings.Join(placeholders, ", "), selectList),
		update: fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s",
			c.table, strings.Join(assignments, ", "), len(c.names)+1, selectList),
		delete: fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.table),
	}
}

// Repository хранилище ресурса в таблице PostgreSQL.
type Repository[D any] struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	cols columns[D]
	q    queries
}

func newRepository[D any](pool *pgxpool.Pool, log *slog.Logger, cols columns[D]) *Repository[D] {
	return &Repository[D]{
		pool: pool,
		log:  log.With("component", cols.table+"_repository"),
		cols: cols,
		q:    cols.queries(),
	}
}

func (r *Repository[D]) List(ctx context.Context) ([]D, error) {
	rows, err := r.pool.Query(ctx, r.q.list)
	if err != nil {
		r.log.Error("failed to list resources", "error", err)
		return nil, fmt.Errorf("list %s: %w", r.cols.table, err)
	}
	defer rows.Close()

	out := make([]D, 0)
	for rows.Next() {
		d, err := r.cols.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.cols.table, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.cols.table, err)
	}
	return out, nil
}

func (r *Repository[D]) Get(ctx context.Context, id int64) (D, error) {
	d, err := r.cols.scan(r.pool.QueryRow(ctx, r.q.get, id))
	if err != nil {
		return d, r.wrap("get", id, err)
	}
	return d, nil
}

func (r *Repository[D]) Create(ctx context.Context, d D) (D, error) {
	created, err := r.cols.scan(r.pool.QueryRow(ctx, r.q.create, r.cols.values(d)...))
	if err != nil {
		r.log.Error("failed to create resource", "error", err)
		return created, fmt.Errorf("create %s: %w", r.cols.table, err)
	}
	return created, nil
}

func (r *Repository[D]) Update(ctx context.Context, id int64, d D) (D, error) {
	args := append(r.cols.values(d), id)
	updated, err := r.cols.scan(r.pool.QueryRow(ctx, r.q.update, args...))
	if err != nil {
		return updated, r.wrap("update", id, err)
	}
	return updated, nil
}

func (r *Repository[D]) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, r.q.delete, id)
	if err != nil {
		r.log.Error("failed to delete resource", "id", id, "error", err)
		return fmt.Errorf("delete %s: %w", r.cols.table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	return nil
}

func (r *Repository[D]) wrap(op string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	r.log.Error("query failed", "op", op, "id", id, "error", err)
	return fmt.Errorf("%s %s: %w", op, r.cols.table, err)
}
