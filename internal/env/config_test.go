package env_test

import (
	"context"
	"crypto/tls"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/luma/epp/internal/env"
)

var _ = Describe("env", func() {
	var (
		ctx context.Context
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		dir, err = os.MkdirTemp("", "epp-env")
		Expect(err).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	writeProfile := func(body string) string {
		path := filepath.Join(dir, "profile.toml")
		Expect(os.WriteFile(path, []byte(body), 0600)).To(Succeed())
		return path
	}

	Describe("LoadConfigFrom()", func() {
		It("applies defaults", func() {
			conf, err := env.LoadConfigFrom(ctx, envconfig.MapLookuper(map[string]string{}), "")
			Expect(err).To(Succeed())

			Expect(conf.Port).To(Equal(700))
			Expect(conf.TLS).To(BeTrue())
			Expect(conf.ValidateCert).To(BeTrue())
			Expect(conf.ValidateHostname).To(BeTrue())
			Expect(conf.ConnectTimeout).To(Equal(15 * time.Second))
			Expect(conf.Timeout).To(Equal(60 * time.Second))
			Expect(conf.LogLevel).To(Equal("info"))
		})

		It("reads EPP_ variables", func() {
			conf, err := env.LoadConfigFrom(ctx, envconfig.MapLookuper(map[string]string{
				"EPP_HOST":           "epp.example",
				"EPP_PORT":           "3121",
				"EPP_CLIENT_ID":      "registrar",
				"EPP_TLS":            "false",
				"EPP_TIMEOUT":        "5s",
				"EPP_EXTENSION_URIS": "secDNS,rgp",
			}), "")
			Expect(err).To(Succeed())

			Expect(conf.Host).To(Equal("epp.example"))
			Expect(conf.Port).To(Equal(3121))
			Expect(conf.ClientID).To(Equal("registrar"))
			Expect(conf.TLS).To(BeFalse())
			Expect(conf.Timeout).To(Equal(5 * time.Second))
			Expect(conf.ExtensionURIs).To(Equal([]string{"secDNS", "rgp"}))
		})

		It("lets the profile override the environment", func() {
			path := writeProfile(`
host = "ote.example"
tls_min_version = "1.3"
connect_timeout = "2s"
validate_hostname = false
object_uris = ["domain", "host"]
`)

			conf, err := env.LoadConfigFrom(ctx, envconfig.MapLookuper(map[string]string{
				"EPP_HOST":      "epp.example",
				"EPP_CLIENT_ID": "registrar",
			}), path)
			Expect(err).To(Succeed())

			Expect(conf.Host).To(Equal("ote.example"))
			Expect(conf.ClientID).To(Equal("registrar"))
			Expect(conf.MinTLSVersion).To(Equal("1.3"))
			Expect(conf.ConnectTimeout).To(Equal(2 * time.Second))
			Expect(conf.ValidateHostname).To(BeFalse())
			Expect(conf.ValidateCert).To(BeTrue())
			Expect(conf.ObjectURIs).To(Equal([]string{"domain", "host"}))
		})

		It("rejects unknown profile keys", func() {
			path := writeProfile(`hots = "typo.example"`)

			_, err := env.LoadConfigFrom(ctx, envconfig.MapLookuper(map[string]string{}), path)
			Expect(err).To(MatchError(ContainSubstring("hots")))
		})

		It("rejects bad durations", func() {
			path := writeProfile(`timeout = "soon"`)

			_, err := env.LoadConfigFrom(ctx, envconfig.MapLookuper(map[string]string{}), path)
			Expect(err).To(MatchError(ContainSubstring("parse timeout")))
		})
	})

	Describe("ClientOptions()", func() {
		It("translates the transport settings", func() {
			conf, err := env.LoadConfigFrom(ctx, envconfig.MapLookuper(map[string]string{
				"EPP_HOST":            "epp.example",
				"EPP_TLS_MIN_VERSION": "1.3",
				"EPP_LOG_TRAFFIC":     "true",
			}), "")
			Expect(err).To(Succeed())

			opts, err := conf.ClientOptions(zap.NewNop())
			Expect(err).To(Succeed())
			Expect(opts.Host).To(Equal("epp.example"))
			Expect(opts.Port).To(Equal(700))
			Expect(opts.LogTraffic).To(BeTrue())
			Expect(opts.Transport.TLS).To(BeTrue())
			Expect(opts.Transport.MinVersion).To(Equal(uint16(tls.VersionTLS13)))
			Expect(opts.Transport.Timeout).To(Equal(60 * time.Second))
		})

		It("rejects unknown TLS versions", func() {
			conf := &env.Config{MinTLSVersion: "2.0"}

			_, err := conf.ClientOptions(zap.NewNop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MakeLogger()", func() {
		It("parses the level", func() {
			log, err := env.MakeLogger("warn", false)
			Expect(err).To(Succeed())
			Expect(log.Core().Enabled(zap.InfoLevel)).To(BeFalse())
			Expect(log.Core().Enabled(zap.WarnLevel)).To(BeTrue())
		})

		It("rejects unknown levels", func() {
			_, err := env.MakeLogger("chatty", false)
			Expect(err).To(HaveOccurred())
		})
	})
})
