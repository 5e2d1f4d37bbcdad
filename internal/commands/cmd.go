package commands

import (
	"github.com/spf13/cobra"

	"github.com/user/thread-tracker/internal/commands/serve"
)

var rootCmd = &cobra.Command{
	Use:   "trackerbot",
	Short: "Discord forum thread to GitHub issue tracker bot",
}

func init() {
	rootCmd.AddCommand(serve.NewCommand())
}

func Execute() error {
	return rootCmd.Execute()
}
