package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/epp/epp"
	"github.com/luma/epp/namespace"
	"github.com/luma/epp/protocol"
	"github.com/luma/epp/transport"
	"github.com/luma/epp/tree"
)

var (
	mockHost      string
	mockPort      int
	mockListeners int
	mockCertFile  string
	mockKeyFile   string
)

var errSessionEnded = errors.New("session ended by logout")

var MockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a stand-in registry that accepts every command",
	Long: `Run a stand-in EPP server for trying out clients. It greets, accepts any
login, answers every command with 1000 and ends the session on logout. It
keeps no state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint: errcheck

		greeting, err := MockGreeting("eppctl mock")
		if err != nil {
			return err
		}

		opts := transport.ServerOptions{
			Host:         mockHost,
			Port:         mockPort,
			Reuseport:    mockListeners > 1,
			NumListeners: mockListeners,
			Greeting:     greeting,
			Handler:      MockHandler(log),
			Log:          log.Named("mock"),
		}

		if mockCertFile != "" {
			cert, err := tls.LoadX509KeyPair(mockCertFile, mockKeyFile)
			if err != nil {
				return err
			}
			opts.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		srv := transport.NewServer(opts)
		if err := srv.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.String("addr", srv.Addr().String()),
			zap.Bool("tls", opts.TLSConfig != nil))

		<-ctx.Done()

		log.Info("Shutting down")
		return srv.Close()
	},
}

func init() {
	flags := MockCmd.Flags()

	flags.StringVar(&mockHost, "listen", "127.0.0.1", "The host to listen on")
	flags.IntVar(&mockPort, "listen-port", 7000, "The port to listen for EPP clients on")
	flags.IntVar(&mockListeners, "listeners", 1, "Accept loops sharing the port through SO_REUSEPORT")
	flags.StringVar(&mockCertFile, "tls-cert", "", "Serve TLS with this certificate")
	flags.StringVar(&mockKeyFile, "tls-key", "", "Key of --tls-cert")
}

// MockHandler answers every command with success and closes the session
// after logout.
func MockHandler(log *zap.Logger) transport.Handler {
	var serial uint64

	return func(ctx context.Context, frame []byte, w io.Writer) error {
		svTRID := fmt.Sprintf("MOCK-%d", atomic.AddUint64(&serial, 1))

		doc, err := epp.ParseCommand(frame)
		if err != nil {
			log.Info("Rejecting frame", zap.Error(err))
			return writeMockResponse(w, epp.CodeCommandSyntax, "Command syntax error", "", svTRID)
		}

		switch doc.Kind() {
		case epp.Hello:
			greeting, err := MockGreeting("eppctl mock")
			if err != nil {
				return err
			}
			return protocol.WriteFrame(w, greeting)

		case epp.Logout:
			if err := writeMockResponse(w, epp.CodeLogoutOK, "Command completed successfully; ending session", doc.ClTRID(), svTRID); err != nil {
				return err
			}
			return errSessionEnded
		}

		return writeMockResponse(w, epp.CodeOK, "Command completed successfully", doc.ClTRID(), svTRID)
	}
}

func writeMockResponse(w io.Writer, code, msg, clTRID, svTRID string) error {
	trID := tree.NewMap()
	if clTRID != "" {
		trID.Set("clTRID", clTRID)
	}
	trID.Set("svTRID", svTRID)

	root := tree.Of("epp", tree.Of("response", tree.Of(
		"trID", trID,
		"result", tree.Of("@code", code, "msg", msg),
	)))

	payload, err := epp.NewResponse(root).Encode(false)
	if err != nil {
		return err
	}
	return protocol.WriteFrame(w, payload)
}

// MockGreeting renders a greeting offering the three core objects.
func MockGreeting(svID string) ([]byte, error) {
	root := tree.Of("epp", tree.Of("greeting", tree.Of(
		"svID", svID,
		"svDate", time.Now().UTC().Format(time.RFC3339),
		"svcMenu", tree.Of(
			"version", "1.0",
			"lang", "en",
			"objURI", tree.List{namespace.Domain, namespace.Host, namespace.Contact},
		),
	)))

	return epp.FromTree(epp.GreetingKind, root).Encode(false)
}
