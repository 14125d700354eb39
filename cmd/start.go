package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	reuseport "github.com/kavu/go_reuseport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/epp/client"
	"github.com/luma/epp/internal/meta"
	"github.com/luma/epp/storage"
)

var (
	// Gateway listen address
	host     string
	httpPort string

	// Journal request and response XML as well as the summary
	keepPayloads bool
)

func init() {
	flags := StartCmd.Flags()

	flags.StringVar(&httpPort, "http-port", "7362", "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "listen", "a", "127.0.0.1", "The host to listen on")
	flags.BoolVar(&keepPayloads, "keep-payloads", false, "Keep the XML of every exchange in the journal")
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an HTTP gateway to a logged in registry session",
	Long: `Start an HTTP gateway to a logged in registry session

Usage
	eppctl start --http-port 7362

Routes
	GET  /ping                  liveness
	GET  /version               build information
	GET  /greeting              the server greeting as JSON
	POST /hello                 send <hello/>
	POST /send                  send the EPP command in the request body
	GET  /transactions          every journaled exchange
	GET  /transactions/:clTRID  one journaled exchange
	GET  /failures              exchanges that did not succeed
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		conf, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint: errcheck

		log.Info("Starting", meta.GetInfo().Fields()...)

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		store := storage.NewInmemoryStore()
		defer store.Close()

		journal := storage.NewJournal(store)
		journal.KeepPayloads = keepPayloads

		opts, err := conf.ClientOptions(log)
		if err != nil {
			return err
		}
		opts.Journal = journal

		eppClient, err := client.New(opts)
		if err != nil {
			return err
		}
		defer eppClient.Close()

		login := conf.LoginOptions()
		if _, err := eppClient.Login(ctx, login); err != nil {
			return err
		}

		router := setupRouter(conf.DebugHTTP, log)
		NewGateway(ctx, eppClient, login, journal, log).Register(router)

		ln, err := reuseport.Listen("tcp", net.JoinHostPort(host, httpPort))
		if err != nil {
			return err
		}

		s := &http.Server{
			Handler: router,
		}

		go func() {
			if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Listening",
			zap.String("host", host),
			zap.String("httpPort", httpPort),
			zap.String("registry", eppClient.RemoteAddr().String()))

		// ctx is cancelled on SIGINT or SIGTERM
		<-ctx.Done()

		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// In flight requests and the logout share one deadline
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if _, err := eppClient.Logout(shutdownCtx); err != nil {
			log.Warn("Logout failed", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Access log for everything but liveness probes
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
