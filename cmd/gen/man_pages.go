package gen

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/epp/internal/meta"
)

var manDir string

var ManPagesCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages for eppctl",
	Long: `Generate man pages for eppctl and every subcommand, one page per
command. Pages go to ./man unless --dir is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(manDir, 0750); err != nil {
			return err
		}

		now := time.Now()
		header := &doc.GenManHeader{
			Title:   "EPPCTL",
			Section: "1",
			Manual:  "eppctl Manual",
			Source:  meta.GetInfo().String(),
			Date:    &now,
		}

		root := cmd.Root()
		root.DisableAutoGenTag = true

		cmd.Printf("Writing man pages to %s\n", manDir)

		return doc.GenManTree(root, header, manDir)
	},
}

func init() {
	flags := ManPagesCmd.Flags()
	flags.StringVar(&manDir, "dir", "man", "directory to write the man pages to")

	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}
