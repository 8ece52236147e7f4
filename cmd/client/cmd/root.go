// cmd/client/cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"blogkeeper/cmd/client/cmd/cli"
	"blogkeeper/internal/app/client"
	"blogkeeper/internal/app/client/config"
	"blogkeeper/internal/utils/logger"
)

const probeTimeout = 3 * time.Second

var (
	cfgFile   string
	debug     bool
	offline   bool
	output    string
	serverURL string

	app *client.App
)

var rootCmd = &cobra.Command{
	Use:   "blogkeeper",
	Short: "Blogkeeper - офлайн-клиент блога",
	Long: `Blogkeeper - клиент для работы с записями, комментариями и авторами блога
без постоянного соединения с сервером.

Все изменения сначала сохраняются в локальной базе. Если сервер недоступен,
они попадают в очередь и отправляются командой sync или фоновым процессом run.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if app != nil {
		app.Shutdown()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseFormat(output)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if offline {
		cfg.Offline = true
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	log := newLogger(cfg)

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	// Однократная проверка связи, чтобы команды знали, доступен ли сервер
	probeCtx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()
	if !app.CheckConnection(probeCtx) {
		log.Debug("Сервер недоступен, работаем офлайн", "server", cfg.ServerAddress)
	}

	cmd.SetContext(cli.WithSession(cmd.Context(), app, cli.NewPrinter(cmd.OutOrStdout(), format)))
	return nil
}

// newLogger пишет логи в stderr, чтобы не смешивать их с результатом команды.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(cfg.LogLevel),
		logger.WithOutput(os.Stderr),
	}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	return logger.New(cfg.Env, opts...)
}

func init() {
	// Глобальные флаги
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (yaml, json, toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "не обращаться к серверу")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", string(cli.FormatTable), "формат вывода (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера Blogkeeper (host:port)")

	// Команды будут добавлены в init() соответствующих файлов
}
