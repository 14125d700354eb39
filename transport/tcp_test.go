package transport_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"os"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/epp/internal/tlstest"
	"github.com/luma/epp/protocol"
	"github.com/luma/epp/transport"
)

var greeting = []byte(`<epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><greeting><svID>test</svID></greeting></epp>`)

func echo(ctx context.Context, frame []byte, w io.Writer) error {
	return protocol.WriteFrame(w, frame)
}

func startServer(opts transport.ServerOptions) *transport.Server {
	opts.Host = "127.0.0.1"
	opts.Log = zap.NewNop()
	if opts.Greeting == nil {
		opts.Greeting = greeting
	}

	srv := transport.NewServer(opts)
	Expect(srv.Start(context.Background())).To(Succeed())
	return srv
}

func plainOptions() transport.Options {
	opts := transport.DefaultOptions()
	opts.TLS = false
	return opts
}

func dial(opts transport.Options, host string, port int) (net.Conn, error) {
	d, err := transport.NewTCP(opts)
	Expect(err).To(Succeed())
	return d.Dial(context.Background(), host, port)
}

func expectConnectionError(err error, op string) {
	var connErr *transport.ConnectionError
	ExpectWithOffset(1, errors.As(err, &connErr)).To(BeTrue(), "expected a ConnectionError, got %v", err)
	ExpectWithOffset(1, connErr.Op).To(Equal(op))
}

var _ = Describe("transport", func() {
	Describe("Server", func() {
		It("sends the greeting as the first frame", func() {
			srv := startServer(transport.ServerOptions{Handler: echo})
			defer func() {
				Expect(srv.Close()).To(Succeed())
			}()

			conn, err := net.Dial("tcp", srv.Addr().String())
			Expect(err).To(Succeed())
			defer conn.Close()

			frame, err := protocol.ReadFrame(conn)
			Expect(err).To(Succeed())
			Expect(frame).To(Equal(greeting))
		})

		It("passes every frame to the handler", func() {
			srv := startServer(transport.ServerOptions{Handler: echo})
			defer srv.Close()

			conn, err := net.Dial("tcp", srv.Addr().String())
			Expect(err).To(Succeed())
			defer conn.Close()

			_, err = protocol.ReadFrame(conn)
			Expect(err).To(Succeed())

			for _, msg := range []string{"<a/>", "<b/>"} {
				Expect(protocol.WriteFrame(conn, []byte(msg))).To(Succeed())

				frame, err := protocol.ReadFrame(conn)
				Expect(err).To(Succeed())
				Expect(string(frame)).To(Equal(msg))
			}
		})

		It("closes the session when the handler fails", func() {
			srv := startServer(transport.ServerOptions{
				Handler: func(ctx context.Context, frame []byte, w io.Writer) error {
					return errors.New("go away")
				},
			})
			defer srv.Close()

			conn, err := net.Dial("tcp", srv.Addr().String())
			Expect(err).To(Succeed())
			defer conn.Close()

			_, err = protocol.ReadFrame(conn)
			Expect(err).To(Succeed())

			Expect(protocol.WriteFrame(conn, []byte("<a/>"))).To(Succeed())

			_, err = protocol.ReadFrame(conn)
			Expect(err).To(MatchError(io.EOF))
		})

		It("shares the port between listeners with SO_REUSEPORT", func() {
			srv := startServer(transport.ServerOptions{Handler: echo, Reuseport: true, NumListeners: 2})
			defer srv.Close()

			for i := 0; i < 4; i++ {
				conn, err := net.Dial("tcp", srv.Addr().String())
				Expect(err).To(Succeed())

				_, err = protocol.ReadFrame(conn)
				Expect(err).To(Succeed())
				conn.Close()
			}
		})
	})

	Describe("TCP", func() {
		It("connects over plain TCP", func() {
			srv := startServer(transport.ServerOptions{Handler: echo})
			defer srv.Close()

			conn, err := dial(plainOptions(), "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())
			defer conn.Close()

			frame, err := protocol.ReadFrame(conn)
			Expect(err).To(Succeed())
			Expect(frame).To(Equal(greeting))
		})

		It("reports refused connections as a ConnectionError", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(Succeed())
			port := ln.Addr().(*net.TCPAddr).Port
			Expect(ln.Close()).To(Succeed())

			_, err = dial(plainOptions(), "127.0.0.1", port)
			expectConnectionError(err, "dial")
		})

		It("times out reads from a silent peer", func() {
			srv := startServer(transport.ServerOptions{
				Handler: func(ctx context.Context, frame []byte, w io.Writer) error {
					<-ctx.Done()
					return ctx.Err()
				},
			})
			defer srv.Close()

			opts := plainOptions()
			opts.Timeout = 50 * time.Millisecond

			conn, err := dial(opts, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())
			defer conn.Close()

			_, err = protocol.ReadFrame(conn)
			Expect(err).To(Succeed())

			Expect(protocol.WriteFrame(conn, []byte("<hello/>"))).To(Succeed())

			_, err = protocol.ReadFrame(conn)
			var netErr net.Error
			Expect(errors.As(err, &netErr)).To(BeTrue())
			Expect(netErr.Timeout()).To(BeTrue())
		})

		Describe("TLS", func() {
			var (
				dir string
				ca  *tlstest.Authority
			)

			BeforeEach(func() {
				var err error
				dir, err = os.MkdirTemp("", "epp-tls")
				Expect(err).To(Succeed())

				ca, err = tlstest.NewAuthority(dir, "Test CA")
				Expect(err).To(Succeed())
			})

			AfterEach(func() {
				Expect(os.RemoveAll(dir)).To(Succeed())
			})

			serve := func(dnsNames []string, ips []net.IP) *transport.Server {
				cfg, err := ca.ServerConfig("epp.test", dnsNames, ips)
				Expect(err).To(Succeed())
				return startServer(transport.ServerOptions{Handler: echo, TLSConfig: cfg})
			}

			tlsOptions := func() transport.Options {
				opts := transport.DefaultOptions()
				opts.CAFile = ca.CAFile()
				return opts
			}

			It("verifies the certificate and the host name", func() {
				srv := serve(nil, []net.IP{net.ParseIP("127.0.0.1")})
				defer srv.Close()

				conn, err := dial(tlsOptions(), "127.0.0.1", srv.Port())
				Expect(err).To(Succeed())
				defer conn.Close()

				frame, err := protocol.ReadFrame(conn)
				Expect(err).To(Succeed())
				Expect(frame).To(Equal(greeting))
			})

			It("fails the handshake on a host name mismatch", func() {
				srv := serve([]string{"registry.example"}, nil)
				defer srv.Close()

				_, err := dial(tlsOptions(), "127.0.0.1", srv.Port())
				expectConnectionError(err, "handshake")
			})

			It("accepts a mismatched name when host name validation is off", func() {
				srv := serve([]string{"registry.example"}, nil)
				defer srv.Close()

				opts := tlsOptions()
				opts.ValidateHostname = false

				conn, err := dial(opts, "127.0.0.1", srv.Port())
				Expect(err).To(Succeed())
				conn.Close()
			})

			It("still verifies the chain when host name validation is off", func() {
				srv := serve([]string{"registry.example"}, nil)
				defer srv.Close()

				opts := transport.DefaultOptions()
				opts.ValidateHostname = false

				_, err := dial(opts, "127.0.0.1", srv.Port())
				expectConnectionError(err, "handshake")
			})

			It("skips verification entirely when certificate validation is off", func() {
				srv := serve([]string{"registry.example"}, nil)
				defer srv.Close()

				opts := transport.DefaultOptions()
				opts.ValidateCert = false

				conn, err := dial(opts, "127.0.0.1", srv.Port())
				Expect(err).To(Succeed())
				conn.Close()
			})

			It("honours the minimum version", func() {
				cfg, err := ca.ServerConfig("epp.test", nil, []net.IP{net.ParseIP("127.0.0.1")})
				Expect(err).To(Succeed())
				cfg.MaxVersion = tls.VersionTLS12

				srv := startServer(transport.ServerOptions{Handler: echo, TLSConfig: cfg})
				defer srv.Close()

				opts := tlsOptions()
				opts.MinVersion = tls.VersionTLS13

				_, err = dial(opts, "127.0.0.1", srv.Port())
				expectConnectionError(err, "handshake")
			})
		})

		Describe("NewTCP()", func() {
			It("rejects unknown cipher suites", func() {
				opts := transport.DefaultOptions()
				opts.CipherSuites = []string{"TLS_MADE_UP"}

				_, err := transport.NewTCP(opts)
				Expect(errors.Is(err, transport.ErrUnknownCipherSuite)).To(BeTrue())
			})

			It("rejects a missing CA bundle", func() {
				opts := transport.DefaultOptions()
				opts.CAFile = "/does/not/exist.pem"

				_, err := transport.NewTCP(opts)
				expectConnectionError(err, "configure")
			})

			It("accepts known cipher suites", func() {
				opts := transport.DefaultOptions()
				opts.CipherSuites = []string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"}

				_, err := transport.NewTCP(opts)
				Expect(err).To(Succeed())
			})
		})
	})

	Describe("ParseTLSVersion()", func() {
		It("maps version names", func() {
			for in, want := range map[string]uint16{
				"":       0,
				"1.2":    tls.VersionTLS12,
				"TLS1.3": tls.VersionTLS13,
				"tls12":  tls.VersionTLS12,
			} {
				got, err := transport.ParseTLSVersion(in)
				Expect(err).To(Succeed())
				Expect(got).To(Equal(want), in)
			}
		})

		It("rejects unknown versions", func() {
			_, err := transport.ParseTLSVersion("9.9")
			Expect(err).To(HaveOccurred())
		})
	})
})
