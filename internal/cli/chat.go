package cli

import (
	"os"

	"github.com/spf13/cobra"

	"ledgerbot/internal/console"
	"ledgerbot/internal/core"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Run a conversation on stdin/stdout as a single user. Type text as you
would in a chat; press an inline button with "#" followed by its token, for
example "#Confirm".`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().Int64("user", 1, "User id to converse as")
}

func runChat(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetInt64("user")

	ctx, stop, app, err := startup(BootstrapOptions{})
	if err != nil {
		return err
	}
	defer stop()
	defer closeApp(app)

	return console.New(app.Driver, core.UserID(user), os.Stdout, app.Logger).Run(ctx, os.Stdin)
}
