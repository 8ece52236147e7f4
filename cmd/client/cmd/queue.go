package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"blogkeeper/cmd/client/cmd/cli"
	"blogkeeper/internal/domain/blog"
)

var queueColumns = cli.Columns[blog.Operation]{
	Headers: []string{"id", "type", "entity", "key", "retries", "queued", "last error"},
	Row: func(op blog.Operation) []string {
		return []string{
			op.ID,
			string(op.Type),
			string(op.Entity),
			strconv.FormatInt(op.Key, 10),
			strconv.Itoa(op.RetryCount),
			time.UnixMilli(op.Timestamp).Format(time.DateTime),
			op.LastError,
		}
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Операции, ожидающие отправки на сервер",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, p, err := cli.FromCommand(cmd)
		if err != nil {
			return err
		}

		ops, err := app.PendingOperations(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}
		return cli.PrintList(p, ops, queueColumns)
	},
}
