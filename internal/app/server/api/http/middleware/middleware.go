package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Container набор мидлварей, общий для группы операций.
type Container struct {
	shared huma.Middlewares
}

// NewContainer создает контейнер с начальным набором мидлварей
func NewContainer(mws ...func(huma.Context, func(huma.Context))) *Container {
	c := &Container{shared: make(huma.Middlewares, 0, len(mws))}
	for _, mw := range mws {
		c.Add(mw)
	}
	return c
}

// Add добавляет одну мидлварь в контейнер
func (c *Container) Add(mw func(ctx huma.Context, next func(huma.Context))) {
	c.shared = append(c.shared, mw)
}

// With возвращает копию общего набора, дополненную мидлварями конкретного обработчика.
func (c *Container) With(mws ...func(huma.Context, func(huma.Context))) huma.Middlewares {
	out := make(huma.Middlewares, 0, len(c.shared)+len(mws))
	out = append(out, c.shared...)
	return append(out, mws...)
}
