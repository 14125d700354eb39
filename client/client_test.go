package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/epp/client"
	"github.com/luma/epp/epp"
	"github.com/luma/epp/protocol"
	"github.com/luma/epp/storage"
	"github.com/luma/epp/transport"
	"github.com/luma/epp/tree"
)

func newClient(opts client.Options) *client.Client {
	if opts.Dialer == nil {
		opts.Transport = plainTransport()
	}

	c, err := client.New(opts)
	Expect(err).To(Succeed())
	return c
}

func createDomain(name, clTRID string) *epp.Document {
	doc := epp.New(epp.CreateDomain)
	doc.Focus().Set("name", name)
	doc.Focus().Set("period", tree.Of("@unit", "y", "_text", "1"))
	if clTRID != "" {
		doc.SetClTRID(clTRID)
	}
	return doc
}

func expectConnectionError(err error, op string) {
	var connErr *transport.ConnectionError
	ExpectWithOffset(1, errors.As(err, &connErr)).To(BeTrue(), "expected a ConnectionError, got %v", err)
	ExpectWithOffset(1, connErr.Op).To(Equal(op))
}

var _ = Describe("client", func() {
	var (
		ctx context.Context
		srv *transport.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if srv != nil {
			Expect(srv.Close()).To(Succeed())
			srv = nil
		}
	})

	Describe("Connect()", func() {
		It("reads the greeting", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{})
			defer c.Close()

			greeting, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())
			Expect(greeting.ServerID()).To(Equal("Fake Registry"))
			Expect(greeting.ObjectURIs()).To(Equal([]string{"urn:ietf:params:xml:ns:domain-1.0"}))

			Expect(c.Connected()).To(BeTrue())
			Expect(c.Greeting()).To(BeIdenticalTo(greeting))
			Expect(c.RemoteAddr().String()).To(Equal(srv.Addr().String()))
		})

		It("reports refused connections", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(Succeed())
			port := ln.Addr().(*net.TCPAddr).Port
			Expect(ln.Close()).To(Succeed())

			c := newClient(client.Options{})
			_, err = c.Connect(ctx, "127.0.0.1", port)
			expectConnectionError(err, "dial")
			Expect(c.Connected()).To(BeFalse())
		})

		It("rejects a greeting that is not one", func() {
			srv = transport.NewServer(transport.ServerOptions{
				Host:     "127.0.0.1",
				Greeting: responseXML("1000", "hi", "x"),
			})
			Expect(srv.Start(ctx)).To(Succeed())

			c := newClient(client.Options{})
			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(MatchError(epp.ErrNotGreeting))
			Expect(c.Connected()).To(BeFalse())
		})
	})

	Describe("Hello()", func() {
		It("returns a fresh greeting", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{})
			defer c.Close()

			first, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			greeting, err := c.Hello(ctx)
			Expect(err).To(Succeed())
			Expect(greeting).NotTo(BeIdenticalTo(first))
			Expect(greeting.ServerDate()).To(Equal("2021-07-01T00:00:00.0Z"))
			Expect(c.Greeting()).To(BeIdenticalTo(greeting))
		})
	})

	Describe("Send()", func() {
		It("fails when not connected", func() {
			c := newClient(client.Options{})

			_, err := c.Send(ctx, createDomain("example.com", ""))
			Expect(err).To(MatchError(client.ErrNotConnected))
		})

		It("returns the parsed response", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{})
			defer c.Close()

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			resp, err := c.Send(ctx, createDomain("example.com", "ABC-1"))
			Expect(err).To(Succeed())
			Expect(resp.Success()).To(BeTrue())
			Expect(resp.OK()).To(BeTrue())
			Expect(resp.ClTRID()).To(Equal("ABC-1"))
			Expect(resp.SvTRID()).To(Equal("SV-ABC-1"))
			Expect(resp.Results()).To(HaveLen(1))
		})

		It("strips decode hints unless asked to keep them", func() {
			srv = startRegistry(registry)

			for _, keep := range []bool{false, true} {
				c := newClient(client.Options{KeepHints: keep})

				_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
				Expect(err).To(Succeed())

				resp, err := c.Send(ctx, createDomain("example.com", ""))
				Expect(err).To(Succeed())

				response, ok := resp.Tree().LookupMap("epp", "response")
				Expect(ok).To(BeTrue())
				if keep {
					Expect(response.Order).To(Equal([]string{"result", "trID"}))
				} else {
					Expect(response.Order).To(BeNil())
				}

				Expect(c.Close()).To(Succeed())
			}
		})

		It("assigns a clTRID once", func() {
			srv = startRegistry(registry)

			calls := 0
			c := newClient(client.Options{
				TRID: func() string {
					calls++
					return fmt.Sprintf("trid%08d", calls)
				},
			})
			defer c.Close()

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			doc := createDomain("example.com", "")

			first, err := c.Send(ctx, doc)
			Expect(err).To(Succeed())
			Expect(first.ClTRID()).To(Equal("trid00000001"))

			second, err := c.Send(ctx, doc)
			Expect(err).To(Succeed())
			Expect(second.ClTRID()).To(Equal("trid00000001"))

			Expect(doc.ClTRID()).To(Equal("trid00000001"))
			Expect(calls).To(Equal(1))
		})

		It("generates 12 character clTRIDs by default", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{})
			defer c.Close()

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			doc := createDomain("example.com", "")
			_, err = c.Send(ctx, doc)
			Expect(err).To(Succeed())
			Expect(doc.ClTRID()).To(MatchRegexp(`^[0-9a-zA-Z]{12}$`))
		})

		It("closes the connection after a short read", func() {
			srv = startRegistry(func(ctx context.Context, frame []byte, w io.Writer) error {
				if _, err := w.Write([]byte{0, 0, 0, 100}); err != nil {
					return err
				}
				if _, err := w.Write([]byte("<epp><resp")); err != nil {
					return err
				}
				return errors.New("hang up")
			})
			c := newClient(client.Options{})

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			_, err = c.Send(ctx, createDomain("example.com", ""))
			expectConnectionError(err, "read")

			var short *protocol.ShortReadError
			Expect(errors.As(err, &short)).To(BeTrue())
			Expect(short.Expected).To(Equal(100))
			Expect(short.Received).To(Equal(14))

			Expect(c.Connected()).To(BeFalse())
		})

		It("closes the connection when the server hangs up", func() {
			srv = startRegistry(func(ctx context.Context, frame []byte, w io.Writer) error {
				return errors.New("hang up")
			})
			c := newClient(client.Options{})

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			_, err = c.Send(ctx, createDomain("example.com", ""))
			expectConnectionError(err, "read")
			Expect(errors.Is(err, io.EOF)).To(BeTrue())
			Expect(c.Connected()).To(BeFalse())
		})

		It("keeps the connection after a malformed response", func() {
			srv = startRegistry(func(ctx context.Context, frame []byte, w io.Writer) error {
				return protocol.WriteFrame(w, []byte("<epp><response>"))
			})
			c := newClient(client.Options{})
			defer c.Close()

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			_, err = c.Send(ctx, createDomain("example.com", ""))
			var parseErr *tree.ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(c.Connected()).To(BeTrue())
		})

		It("gives up when the context is done", func() {
			srv = startRegistry(func(ctx context.Context, frame []byte, w io.Writer) error {
				<-ctx.Done()
				return ctx.Err()
			})
			c := newClient(client.Options{})

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			sendCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			_, err = c.Send(sendCtx, createDomain("example.com", ""))
			expectConnectionError(err, "read")
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(c.Connected()).To(BeFalse())
		})

		It("journals exchanges", func() {
			srv = startRegistry(registry)

			store := storage.NewInmemoryStore()
			defer store.Close()
			journal := storage.NewJournal(store)

			c := newClient(client.Options{Journal: journal})
			defer c.Close()

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			_, err = c.Send(ctx, createDomain("example.com", "JRNL-1"))
			Expect(err).To(Succeed())

			tx, err := journal.Lookup(ctx, "JRNL-1")
			Expect(err).To(Succeed())
			Expect(tx.Command).To(Equal("create-domain"))
			Expect(tx.Code).To(Equal("1000"))
			Expect(tx.SvTRID).To(Equal("SV-JRNL-1"))
			Expect(tx.Remote).To(Equal(srv.Addr().String()))
		})
	})

	Describe("Login()", func() {
		login := func(pw string) client.LoginOptions {
			return client.LoginOptions{
				LoginOptions: epp.LoginOptions{ClientID: "registrar", Password: pw},
			}
		}

		It("connects first when needed", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{Host: "127.0.0.1", Port: srv.Port()})
			defer c.Close()

			resp, err := c.Login(ctx, login("secret"))
			Expect(err).To(Succeed())
			Expect(resp.Code()).To(Equal(epp.CodeOK))
			Expect(c.Connected()).To(BeTrue())
			Expect(c.Greeting().ServerID()).To(Equal("Fake Registry"))
		})

		It("needs somewhere to connect to", func() {
			c := newClient(client.Options{})

			_, err := c.Login(ctx, login("secret"))
			Expect(err).To(MatchError(client.ErrNoLoginAddress))
		})

		It("returns a LoginError when rejected", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{Host: "127.0.0.1", Port: srv.Port()})
			defer c.Close()

			resp, err := c.Login(ctx, login("wrong"))

			var loginErr *client.LoginError
			Expect(errors.As(err, &loginErr)).To(BeTrue())
			Expect(loginErr.Response).To(BeIdenticalTo(resp))
			Expect(loginErr.Error()).To(ContainSubstring("2200"))
			Expect(resp.Code()).To(Equal(epp.CodeAuthenticationError))
		})

		It("returns the rejection as data when failure is allowed", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{Host: "127.0.0.1", Port: srv.Port()})
			defer c.Close()

			opts := login("wrong")
			opts.AllowFailure = true

			resp, err := c.Login(ctx, opts)
			Expect(err).To(Succeed())
			Expect(resp.Success()).To(BeFalse())
			Expect(resp.Msg()).To(Equal("Authentication error"))
		})
	})

	Describe("Logout()", func() {
		It("closes the connection", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{Host: "127.0.0.1", Port: srv.Port()})

			_, err := c.Login(ctx, client.LoginOptions{
				LoginOptions: epp.LoginOptions{ClientID: "registrar", Password: "secret"},
			})
			Expect(err).To(Succeed())

			resp, err := c.Logout(ctx)
			Expect(err).To(Succeed())
			Expect(resp.Code()).To(Equal(epp.CodeLogoutOK))
			Expect(c.Connected()).To(BeFalse())
		})
	})

	Describe("BatchSend()", func() {
		batch := func(n int) []*epp.Document {
			docs := make([]*epp.Document, n)
			for i := range docs {
				docs[i] = createDomain(fmt.Sprintf("example%d.com", i), fmt.Sprintf("batch-%d", i))
			}
			return docs
		}

		frameSize := func(docs ...*epp.Document) int {
			size := 0
			for _, doc := range docs {
				payload, err := doc.Encode(true)
				Expect(err).To(Succeed())
				size += len(payload) + protocol.HeaderLen
			}
			return size
		}

		for _, pipeline := range []bool{false, true} {
			pipeline := pipeline

			It(fmt.Sprintf("reads one response per document (pipeline=%v)", pipeline), func() {
				srv = startRegistry(registry)
				c := newClient(client.Options{})
				defer c.Close()

				_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
				Expect(err).To(Succeed())

				result, err := c.BatchSend(ctx, batch(5), client.BatchOptions{Pipeline: pipeline})
				Expect(err).To(Succeed())
				Expect(result.Err).To(Succeed())
				Expect(result.Sent).To(Equal(5))
				Expect(result.Responses).To(HaveLen(5))

				for i, resp := range result.Responses {
					Expect(resp.ClTRID()).To(Equal(fmt.Sprintf("batch-%d", i)))
				}

				Expect(c.Connected()).To(BeTrue())
			})

			It(fmt.Sprintf("pads the responses of unsent documents (pipeline=%v)", pipeline), func() {
				srv = startRegistry(registry)

				docs := batch(5)
				tcp, err := transport.NewTCP(plainTransport())
				Expect(err).To(Succeed())

				c := newClient(client.Options{
					Dialer: &flakyDialer{Dialer: tcp, budget: frameSize(docs[:3]...)},
				})

				_, err = c.Connect(ctx, "127.0.0.1", srv.Port())
				Expect(err).To(Succeed())

				result, err := c.BatchSend(ctx, docs, client.BatchOptions{Pipeline: pipeline})
				Expect(err).To(Succeed())
				Expect(result.Sent).To(Equal(3))
				Expect(result.Responses).To(HaveLen(5))

				for i := 0; i < 3; i++ {
					Expect(result.Responses[i]).NotTo(BeNil())
					Expect(result.Responses[i].ClTRID()).To(Equal(fmt.Sprintf("batch-%d", i)))
				}
				Expect(result.Responses[3]).To(BeNil())
				Expect(result.Responses[4]).To(BeNil())

				Expect(errors.Is(result.Err, errInjected)).To(BeTrue())
				Expect(c.Connected()).To(BeFalse())
			})
		}

		It("stops at the first write failure with FailFast", func() {
			srv = startRegistry(registry)

			docs := batch(5)
			tcp, err := transport.NewTCP(plainTransport())
			Expect(err).To(Succeed())

			c := newClient(client.Options{
				Dialer: &flakyDialer{Dialer: tcp, budget: frameSize(docs[:3]...)},
			})

			_, err = c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			result, err := c.BatchSend(ctx, docs, client.BatchOptions{Pipeline: true, FailFast: true})
			Expect(errors.Is(err, errInjected)).To(BeTrue())
			expectConnectionError(err, "write")

			Expect(result.Sent).To(Equal(3))
			Expect(result.Responses).To(Equal(make([]*epp.Response, 5)))
			Expect(c.Connected()).To(BeFalse())
		})

		It("can skip reading responses", func() {
			srv = startRegistry(registry)
			c := newClient(client.Options{})
			defer c.Close()

			_, err := c.Connect(ctx, "127.0.0.1", srv.Port())
			Expect(err).To(Succeed())

			result, err := c.BatchSend(ctx, batch(3), client.BatchOptions{SkipResponses: true})
			Expect(err).To(Succeed())
			Expect(result.Sent).To(Equal(3))
			Expect(result.Responses).To(BeEmpty())
		})
	})
})
