package post

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"blogkeeper/cmd/client/cmd/cli"
	"blogkeeper/internal/app/client"
	"blogkeeper/internal/app/client/entity"
	"blogkeeper/internal/domain/blog"
)

var (
	userID int64
	title  string
	body   string
)

// PostCmd - родительская команда для всех операций с записями блога
var PostCmd = &cobra.Command{
	Use:   "post",
	Short: "Управление записями блога",
	Long: `Создание, просмотр, поиск, обновление и удаление записей.

Изменения сохраняются локально сразу. Если сервер недоступен, они попадают
в очередь и отправляются при следующей синхронизации.`,
}

var columns = cli.Columns[blog.Post]{
	Headers: []string{"id", "user", "title", "status"},
	Row: func(p blog.Post) []string {
		return []string{
			strconv.FormatInt(p.ID, 10),
			strconv.FormatInt(p.UserID, 10),
			p.Title,
			cli.Status(p.SyncStatus),
		}
	},
}

func service(app *client.App) *entity.Service[blog.Post] {
	return app.Posts
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать запись",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cli.Run(cmd, columns, func(app *client.App) (blog.Post, error) {
			p, err := app.Posts.Create(cmd.Context(), blog.Post{UserID: userID, Title: title, Body: body})
			if err != nil {
				return p, fmt.Errorf("ошибка создания записи: %w", err)
			}
			return p, nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Изменить поля записи",
	Long:  `Изменяются только явно переданные флаги, остальные поля сохраняются.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cli.ParseID(args[0])
		if err != nil {
			return err
		}
		patch := blog.PostPatch{
			UserID: cli.Changed(cmd, "user", userID),
			Title:  cli.Changed(cmd, "title", title),
			Body:   cli.Changed(cmd, "body", body),
		}

		return cli.Run(cmd, columns, func(app *client.App) (blog.Post, error) {
			p, err := app.Posts.Update(cmd.Context(), id, patch)
			if err != nil {
				return p, fmt.Errorf("ошибка обновления записи: %w", err)
			}
			return p, nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().Int64VarP(&userID, "user", "u", 0, "идентификатор автора")
		c.Flags().StringVarP(&title, "title", "t", "", "заголовок")
		c.Flags().StringVarP(&body, "body", "b", "", "текст записи")
	}
	_ = createCmd.MarkFlagRequired("user")
	_ = createCmd.MarkFlagRequired("title")

	PostCmd.AddCommand(
		createCmd,
		updateCmd,
		cli.GetCmd(service, columns),
		cli.ListCmd(service, columns),
		cli.SearchCmd(service, columns),
		cli.DeleteCmd[blog.Post](service),
	)
}
