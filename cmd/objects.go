package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/epp/client"
	"github.com/luma/epp/epp"
	"github.com/luma/epp/tree"
)

var objectTypes = []string{"domain", "contact", "host"}

// objectKind finds the kind for a command on an object type, e.g. "info"
// and "host".
func objectKind(command, object string) (*epp.Kind, error) {
	k, ok := epp.Lookup(command + "-" + object)
	if !ok {
		return nil, fmt.Errorf("unknown object type %q, expected one of %v", object, objectTypes)
	}
	return k, nil
}

// sendAndPrint sends doc and prints the response. Registry errors are
// printed and returned.
func sendAndPrint(ctx context.Context, c *client.Client, doc *epp.Document) error {
	resp, err := c.Send(ctx, doc)
	if err != nil {
		return err
	}

	if err := printDocument(resp.Document); err != nil {
		return err
	}

	if !resp.Success() {
		return fmt.Errorf("%s: %s", resp.Code(), resp.Msg())
	}
	return nil
}

var CheckCmd = &cobra.Command{
	Use:       "check (domain|contact|host) NAME...",
	Short:     "Check whether objects are available",
	Args:      cobra.MinimumNArgs(2),
	ValidArgs: objectTypes,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := objectKind("check", args[0])
		if err != nil {
			return err
		}

		doc, err := epp.NewCheck(kind, args[1:]...)
		if err != nil {
			return err
		}

		return session(cmd, func(ctx context.Context, c *client.Client) error {
			return sendAndPrint(ctx, c, doc)
		})
	},
}

var infoAuth string

var InfoCmd = &cobra.Command{
	Use:       "info (domain|contact|host) NAME",
	Short:     "Show an object",
	Args:      cobra.ExactArgs(2),
	ValidArgs: objectTypes,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := objectKind("info", args[0])
		if err != nil {
			return err
		}

		doc, err := epp.NewInfo(kind, args[1])
		if err != nil {
			return err
		}
		if infoAuth != "" {
			doc.Set(tree.Of("pw", infoAuth), "authInfo")
		}

		return session(cmd, func(ctx context.Context, c *client.Client) error {
			return sendAndPrint(ctx, c, doc)
		})
	},
}

var pollAck string

var PollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Read the next message from the poll queue, or acknowledge one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		op, msgID := epp.PollRequest, ""
		if pollAck != "" {
			op, msgID = epp.PollAcknowledge, pollAck
		}

		doc, err := epp.NewPoll(op, msgID)
		if err != nil {
			return err
		}

		return session(cmd, func(ctx context.Context, c *client.Client) error {
			return sendAndPrint(ctx, c, doc)
		})
	},
}

func init() {
	InfoCmd.Flags().StringVar(&infoAuth, "auth", "", "authInfo password of the object")
	PollCmd.Flags().StringVar(&pollAck, "ack", "", "acknowledge the message with this id")
}
