package gen

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate man pages and shell completions",
	Long:  `Generate man pages and shell completions for eppctl`,
}

var CompletionCmd = &cobra.Command{
	Use:       "completion (bash|zsh|fish)",
	Short:     "Write a shell completion script to stdout",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish"},
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()

		switch args[0] {
		case "bash":
			return root.GenBashCompletion(os.Stdout)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		}

		return fmt.Errorf("unsupported shell %q", args[0])
	},
}

func init() {
	RootCmd.AddCommand(ManPagesCmd, CompletionCmd)
}
