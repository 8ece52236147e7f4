package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"blogkeeper/internal/app/client"
	"blogkeeper/internal/app/client/entity"
	"blogkeeper/internal/domain/blog"
)

// Source выбирает сервис сущности из приложения.
type Source[T blog.Entity[T]] func(app *client.App) *entity.Service[T]

// ParseID разбирает идентификатор записи. Временные (отрицательные) идентификаторы допустимы.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("некорректный идентификатор %q", s)
	}
	return id, nil
}

// GetCmd команда get <id>
func GetCmd[T blog.Entity[T]](src Source[T], cols Columns[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Показать запись по идентификатору",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, p, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			id, err := ParseID(args[0])
			if err != nil {
				return err
			}

			rec, err := src(app).Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("ошибка получения записи: %w", err)
			}
			return PrintOne(p, rec, cols)
		},
	}
}

// ListCmd команда list
func ListCmd[T blog.Entity[T]](src Source[T], cols Columns[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Список локальных записей",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, p, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			items, err := src(app).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка получения списка записей: %w", err)
			}
			return PrintList(p, items, cols)
		},
	}
}

// SearchCmd команда search <query>
func SearchCmd[T blog.Entity[T]](src Source[T], cols Columns[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Поиск подстроки без учета регистра",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, p, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			items, err := src(app).Search(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ошибка поиска: %w", err)
			}
			return PrintList(p, items, cols)
		},
	}
}

// DeleteCmd команда delete <id>
func DeleteCmd[T blog.Entity[T]](src Source[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить запись",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, p, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			id, err := ParseID(args[0])
			if err != nil {
				return err
			}

			if _, err := src(app).Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("ошибка удаления записи: %w", err)
			}
			p.Message("Запись %d удалена", id)
			return nil
		},
	}
}

// Run выполняет действие над сервисом и выводит одну запись. Используется в create и update.
func Run[T blog.Entity[T]](cmd *cobra.Command, cols Columns[T], action func(app *client.App) (T, error)) error {
	app, p, err := FromCommand(cmd)
	if err != nil {
		return err
	}

	rec, err := action(app)
	if err != nil {
		return err
	}
	if rec.Status() != blog.StatusSynced {
		p.Message("Сервер недоступен, изменение поставлено в очередь синхронизации")
	}
	return PrintOne(p, rec, cols)
}

// Changed возвращает указатель на значение флага, если флаг задан явно.
func Changed[V any](cmd *cobra.Command, name string, v V) *V {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}
