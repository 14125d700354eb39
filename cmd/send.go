package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/luma/epp/client"
	"github.com/luma/epp/epp"
)

var (
	sendPipeline bool
	sendFailFast bool
)

var SendCmd = &cobra.Command{
	Use:   "send FILE...",
	Short: "Send hand written EPP commands",
	Long: `Send one or more EPP command documents read from files. Several files
are sent as a batch: every command is written before any response is
read. A missing clTRID is generated for commands that need one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs := make([]*epp.Document, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			doc, err := epp.ParseCommand(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs = append(docs, doc)
		}

		return session(cmd, func(ctx context.Context, c *client.Client) error {
			if len(docs) == 1 {
				return sendAndPrint(ctx, c, docs[0])
			}

			result, err := c.BatchSend(ctx, docs, client.BatchOptions{
				Pipeline: sendPipeline,
				FailFast: sendFailFast,
			})
			if err != nil {
				return err
			}

			for i, resp := range result.Responses {
				if resp == nil {
					result.Err = multierr.Append(result.Err, fmt.Errorf("%s: no response", args[i]))
					continue
				}
				if err := printDocument(resp.Document); err != nil {
					return err
				}
			}

			return result.Err
		})
	},
}

func init() {
	flags := SendCmd.Flags()

	flags.BoolVar(&sendPipeline, "pipeline", false, "write all commands in a single write")
	flags.BoolVar(&sendFailFast, "fail-fast", false, "stop at the first failed write")
}
