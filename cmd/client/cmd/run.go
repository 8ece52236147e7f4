package cmd

import (
	"github.com/spf13/cobra"

	"blogkeeper/cmd/client/cmd/cli"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Фоновая синхронизация до завершения процесса",
	Long: `Периодически отправляет очередь операций на сервер и следит за связью.
При восстановлении соединения синхронизация запускается сразу.
Завершается по SIGINT или SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _, err := cli.FromCommand(cmd)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}
