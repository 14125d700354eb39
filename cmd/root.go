package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/epp/client"
	"github.com/luma/epp/cmd/gen"
	"github.com/luma/epp/epp"
	"github.com/luma/epp/internal/env"
)

var (
	// TOML connection profile
	profilePath string

	// Overrides for the matching EPP_* variables
	flagHost       string
	flagPort       int
	flagClientID   string
	flagPassword   string
	flagNoTLS      bool
	flagInsecure   bool
	flagLogLevel   string
	flagLogTraffic bool

	// Print responses as XML rather than JSON
	printXML bool
)

var RootCmd = &cobra.Command{
	Use:   "eppctl",
	Short: "Talk EPP to a domain registry",
	Long: `eppctl connects to an EPP (RFC 5730) registry server and runs commands
against it.

Connection settings come from EPP_* environment variables, .env.local, an
optional TOML profile (--config) and finally the flags below.`,
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&profilePath, "config", "c", "", "TOML connection profile")
	flags.StringVarP(&flagHost, "host", "H", "", "Registry host (EPP_HOST)")
	flags.IntVarP(&flagPort, "port", "p", 0, "Registry port (EPP_PORT)")
	flags.StringVarP(&flagClientID, "client-id", "u", "", "Client identifier (EPP_CLIENT_ID)")
	flags.StringVar(&flagPassword, "password", "", "Password (EPP_PASSWORD)")
	flags.BoolVar(&flagNoTLS, "no-tls", false, "Connect over plain TCP")
	flags.BoolVar(&flagInsecure, "insecure", false, "Skip server certificate validation")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level (EPP_LOG_LEVEL)")
	flags.BoolVar(&flagLogTraffic, "log-traffic", false, "Log every frame at debug level")
	flags.BoolVar(&printXML, "xml", false, "Print responses as XML")

	RootCmd.AddCommand(
		HelloCmd,
		CheckCmd,
		InfoCmd,
		PollCmd,
		SendCmd,
		StartCmd,
		MockCmd,
		VersionCmd,
		gen.RootCmd,
	)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := RootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func setup(cmd *cobra.Command) (*env.Config, *zap.Logger, error) {
	conf, err := env.LoadConfig(cmd.Context(), profilePath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		conf.Host = flagHost
	}
	if flags.Changed("port") {
		conf.Port = flagPort
	}
	if flags.Changed("client-id") {
		conf.ClientID = flagClientID
	}
	if flags.Changed("password") {
		conf.Password = flagPassword
	}
	if flagNoTLS {
		conf.TLS = false
	}
	if flagInsecure {
		conf.ValidateCert = false
	}
	if flags.Changed("log-level") {
		conf.LogLevel = flagLogLevel
	}
	if flagLogTraffic {
		conf.LogTraffic = true
		conf.LogLevel = "debug"
	}

	log, err := env.MakeLogger(conf.LogLevel, conf.LogDev)
	if err != nil {
		return nil, nil, err
	}

	return conf, log, nil
}

// session runs fn with a logged in client, logging out afterwards.
func session(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
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

	ctx := cmd.Context()

	if _, err := c.Login(ctx, conf.LoginOptions()); err != nil {
		return err
	}

	fnErr := fn(ctx, c)

	if _, err := c.Logout(ctx); err != nil {
		log.Warn("Logout failed", zap.Error(err))
	}

	return fnErr
}

// printDocument writes doc to stdout as indented JSON, or as XML with --xml.
func printDocument(doc *epp.Document) error {
	if printXML {
		_, err := fmt.Fprintln(os.Stdout, doc.String())
		return err
	}

	return printJSON(doc.Tree())
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
