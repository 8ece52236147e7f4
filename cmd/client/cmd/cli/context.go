package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"blogkeeper/internal/app/client"
)

type sessionKey struct{}

type session struct {
	app     *client.App
	printer *Printer
}

// WithSession сохраняет приложение и формат вывода в контексте команды.
func WithSession(ctx context.Context, app *client.App, printer *Printer) context.Context {
	return context.WithValue(ctx, sessionKey{}, session{app: app, printer: printer})
}

// FromCommand возвращает приложение и принтер, созданные в PersistentPreRunE.
func FromCommand(cmd *cobra.Command) (*client.App, *Printer, error) {
	s, ok := cmd.Context().Value(sessionKey{}).(session)
	if !ok || s.app == nil {
		return nil, nil, errors.New("приложение не инициализировано")
	}
	return s.app, s.printer, nil
}
