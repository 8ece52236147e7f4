// cmd/client/cmd/init.go
package cmd

import (
	"blogkeeper/cmd/client/cmd/comment"
	"blogkeeper/cmd/client/cmd/post"
	"blogkeeper/cmd/client/cmd/sync"
	"blogkeeper/cmd/client/cmd/user"
)

func init() {
	// Команды работы с сущностями
	rootCmd.AddCommand(post.PostCmd)
	rootCmd.AddCommand(comment.CommentCmd)
	rootCmd.AddCommand(user.UserCmd)

	// Синхронизация и очередь
	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(runCmd)
}
