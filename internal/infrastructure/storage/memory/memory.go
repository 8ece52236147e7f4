package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"blogkeeper/internal/domain/blog"
	"blogkeeper/internal/infrastructure/storage"
)

// Repo хранилище ресурса в памяти процесса.
type Repo[D blog.Resource[D]] struct {
	mu    sync.RWMutex
	items map[int64]D
	last  int64
}

func New[D blog.Resource[D]]() *Repo[D] {
	return &Repo[D]{items: make(map[int64]D)}
}

// NewRepositories создает хранилища в памяти для всех коллекций.
func NewRepositories() storage.Repositories {
	return storage.Repositories{
		Posts:    New[blog.PostDTO](),
		Comments: New[blog.CommentDTO](),
		Users:    New[blog.UserDTO](),
	}
}

func (r *Repo[D]) List(_ context.Context) ([]D, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]D, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity() < out[j].Identity()
	})
	return out, nil
}

func (r *Repo[D]) Get(_ context.Context, id int64) (D, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		var zero D
		return zero, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	return d, nil
}

func (r *Repo[D]) Create(_ context.Context, d D) (D, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	d = d.WithID(r.last)
	r.items[r.last] = d
	return d, nil
}

func (r *Repo[D]) Update(_ context.Context, id int64, d D) (D, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		var zero D
		return zero, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	d = d.WithID(id)
	r.items[id] = d
	return d, nil
}

func (r *Repo[D]) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	delete(r.items, id)
	return nil
}
