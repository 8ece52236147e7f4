package comment

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
	postID int64
	name   string
	email  string
	body   string
)

// CommentCmd - родительская команда для операций с комментариями
var CommentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Управление комментариями",
	Long:  `Создание, просмотр, поиск, обновление и удаление комментариев к записям.`,
}

var columns = cli.Columns[blog.Comment]{
	Headers: []string{"id", "post", "email", "body", "status"},
	Row: func(c blog.Comment) []string {
		return []string{
			strconv.FormatInt(c.ID, 10),
			strconv.FormatInt(c.PostID, 10),
			c.Email,
			c.Body,
			cli.Status(c.SyncStatus),
		}
	},
}

func service(app *client.App) *entity.Service[blog.Comment] {
	return app.Comments.Service
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Добавить комментарий",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cli.Run(cmd, columns, func(app *client.App) (blog.Comment, error) {
			c, err := app.Comments.Create(cmd.Context(), blog.Comment{
				PostID: postID,
				Name:   name,
				Email:  email,
				Body:   body,
			})
			if err != nil {
				return c, fmt.Errorf("ошибка создания комментария: %w", err)
			}
			return c, nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Изменить поля комментария",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cli.ParseID(args[0])
		if err != nil {
			return err
		}
		patch := blog.CommentPatch{
			PostID: cli.Changed(cmd, "post", postID),
			Name:   cli.Changed(cmd, "name", name),
			Email:  cli.Changed(cmd, "email", email),
			Body:   cli.Changed(cmd, "body", body),
		}

		return cli.Run(cmd, columns, func(app *client.App) (blog.Comment, error) {
			c, err := app.Comments.Update(cmd.Context(), id, patch)
			if err != nil {
				return c, fmt.Errorf("ошибка обновления комментария: %w", err)
			}
			return c, nil
		})
	},
}

var byPostCmd = &cobra.Command{
	Use:   "by-post <post-id>",
	Short: "Комментарии к записи",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, p, err := cli.FromCommand(cmd)
		if err != nil {
			return err
		}
		id, err := cli.ParseID(args[0])
		if err != nil {
			return err
		}

		items, err := app.Comments.ListByPost(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("ошибка получения комментариев: %w", err)
		}
		return cli.PrintList(p, items, columns)
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().Int64VarP(&postID, "post", "p", 0, "идентификатор записи")
		c.Flags().StringVarP(&name, "name", "n", "", "тема комментария")
		c.Flags().StringVarP(&email, "email", "e", "", "электронная почта автора")
		c.Flags().StringVarP(&body, "body", "b", "", "текст комментария")
	}
	_ = createCmd.MarkFlagRequired("post")
	_ = createCmd.MarkFlagRequired("body")

	CommentCmd.AddCommand(
		createCmd,
		updateCmd,
		byPostCmd,
		cli.GetCmd(service, columns),
		cli.ListCmd(service, columns),
		cli.SearchCmd(service, columns),
		cli.DeleteCmd[blog.Comment](service),
	)
}
