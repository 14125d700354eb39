package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luma/epp/internal/meta"
)

var versionJSON bool

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := meta.GetInfo()
		if versionJSON {
			return printJSON(info)
		}

		cmd.Println(info.String())
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVar(&versionJSON, "json", false, "print as JSON")
}
