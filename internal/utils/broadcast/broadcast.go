// Package broadcast рассылает значения синхронным подписчикам.
package broadcast

import "sync"

// Broadcaster хранит подписчиков и вызывает их в порядке подписки.
// Подписчики вызываются вне блокировки, поэтому могут отписываться из обработчика.
type Broadcaster[V any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(V)
	ids  []int
}

// Subscribe регистрирует обработчик и возвращает функцию отписки. Повторный вызов отписки безопасен.
func (b *Broadcaster[V]) Subscribe(fn func(V)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]func(V))
	}

	id := b.next
	b.next++
	b.subs[id] = fn
	b.ids = append(b.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster[V]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, id)
	for i, v := range b.ids {
		if v == id {
			b.ids = append(b.ids[:i:i], b.ids[i+1:]...)
			break
		}
	}
}

// Publish синхронно передает значение всем текущим подписчикам.
func (b *Broadcaster[V]) Publish(v V) {
	b.mu.RLock()
	fns := make([]func(V), 0, len(b.ids))
	for _, id := range b.ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (b *Broadcaster[V]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}
