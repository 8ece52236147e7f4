package user

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
	name     string
	email    string
	username string
	website  string
)

// UserCmd - родительская команда для операций с авторами
var UserCmd = &cobra.Command{
	Use:   "user",
	Short: "Управление авторами",
	Long:  `Создание, просмотр, поиск, обновление и удаление авторов.`,
}

var columns = cli.Columns[blog.User]{
	Headers: []string{"id", "username", "name", "email", "status"},
	Row: func(u blog.User) []string {
		return []string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.Name,
			u.Email,
			cli.Status(u.SyncStatus),
		}
	},
}

func service(app *client.App) *entity.Service[blog.User] {
	return app.Users
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать автора",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cli.Run(cmd, columns, func(app *client.App) (blog.User, error) {
			u, err := app.Users.Create(cmd.Context(), blog.User{
				Name:     name,
				Email:    email,
				Username: username,
				Website:  website,
			})
			if err != nil {
				return u, fmt.Errorf("ошибка создания автора: %w", err)
			}
			return u, nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Изменить поля автора",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cli.ParseID(args[0])
		if err != nil {
			return err
		}
		patch := blog.UserPatch{
			Name:     cli.Changed(cmd, "name", name),
			Email:    cli.Changed(cmd, "email", email),
			Username: cli.Changed(cmd, "username", username),
			Website:  cli.Changed(cmd, "website", website),
		}

		return cli.Run(cmd, columns, func(app *client.App) (blog.User, error) {
			u, err := app.Users.Update(cmd.Context(), id, patch)
			if err != nil {
				return u, fmt.Errorf("ошибка обновления автора: %w", err)
			}
			return u, nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().StringVarP(&name, "name", "n", "", "имя")
		c.Flags().StringVarP(&email, "email", "e", "", "электронная почта")
		c.Flags().StringVarP(&username, "username", "u", "", "логин")
		c.Flags().StringVarP(&website, "website", "w", "", "сайт")
	}
	_ = createCmd.MarkFlagRequired("username")

	UserCmd.AddCommand(
		createCmd,
		updateCmd,
		cli.GetCmd(service, columns),
		cli.ListCmd(service, columns),
		cli.SearchCmd(service, columns),
		cli.DeleteCmd[blog.User](service),
	)
}
