package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luma/epp/client"
)

var HelloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Connect and print the server greeting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint: errcheck

		opts, err := conf.ClientOptions(log)
		if err != nil {
			return err
		}

		c, err := client.New(opts)
		if err != nil {
			return err
		}
		defer c.Close()

		if _, err := c.Connect(cmd.Context(), conf.Host, conf.Port); err != nil {
			return err
		}

		greeting, err := c.Hello(cmd.Context())
		if err != nil {
			return err
		}

		return printDocument(greeting.Document)
	},
}
