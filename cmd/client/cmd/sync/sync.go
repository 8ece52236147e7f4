package sync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"blogkeeper/cmd/client/cmd/cli"
	engine "blogkeeper/internal/app/client/sync"
)

// SyncCmd отправляет накопленные операции на сервер
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Без подкоманды выполняет один проход по очереди операций.

Операции отправляются по порядку. Неудачные попытки учитываются, после
исчерпания попыток запись помечается как failed и удаляется из очереди.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, p, err := cli.FromCommand(cmd)
		if err != nil {
			return err
		}
		if !app.Online() {
			return fmt.Errorf("сервер %s недоступен, операции остаются в очереди", app.Config().ServerAddress)
		}

		result, err := app.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}
		return p.Fields(result, resultRows(result))
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Загрузить все данные с сервера",
	Long: `Загружает записи, комментарии и авторов одним пакетом.

Локальные изменения, еще не отправленные на сервер, не перезаписываются.
При ошибке любой из загрузок локальное хранилище не изменяется.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, p, err := cli.FromCommand(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := app.InitialSync(cmd.Context()); err != nil {
			return err
		}
		p.Message("✅ Данные загружены за %v", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

type status struct {
	Online  bool         `json:"online" yaml:"online"`
	Server  string       `json:"server" yaml:"server"`
	Pending int          `json:"pending" yaml:"pending"`
	Stats   engine.Stats `json:"stats" yaml:"stats"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние синхронизации",
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

		st := status{
			Online:  app.Online(),
			Server:  app.Config().ServerAddress,
			Pending: len(ops),
			Stats:   app.SyncStats(),
		}
		return p.Fields(st, statusRows(st))
	},
}

func resultRows(r engine.Result) [][2]string {
	if r.Skipped {
		return [][2]string{{"Результат", "синхронизация уже выполняется"}}
	}
	return [][2]string{
		{"Операций в очереди", strconv.Itoa(r.Total)},
		{"Отправлено", strconv.Itoa(r.Replayed)},
		{"Отложено", strconv.Itoa(r.Deferred)},
		{"Ошибок", strconv.Itoa(r.Failed)},
		{"Отброшено", strconv.Itoa(r.Abandoned)},
		{"Время выполнения", r.Duration.Round(time.Millisecond).String()},
	}
}

func statusRows(st status) [][2]string {
	conn := "❌ недоступен"
	if st.Online {
		conn = "✅ OK"
	}
	return [][2]string{
		{"Сервер", st.Server},
		{"Соединение", conn},
		{"Операций в очереди", strconv.Itoa(st.Pending)},
		{"Проходов", strconv.Itoa(st.Stats.Passes)},
		{"Отправлено", strconv.Itoa(st.Stats.Replayed)},
		{"Ошибок", strconv.Itoa(st.Stats.Failed)},
	}
}

func init() {
	SyncCmd.AddCommand(initCmd, statusCmd)
}

