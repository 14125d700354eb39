// Package client talks EPP to a registry over a single connection.
//
// A Client is synchronous: each Send writes one frame and blocks for the
// matching response. Methods may be called from several goroutines but are
// serialized; open more Clients to run commands in parallel.
package client

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/epp/epp"
	"github.com/luma/epp/protocol"
	"github.com/luma/epp/transport"
)

type Client struct {
	opts   Options
	dialer transport.Dialer
	trid   func() string

	// mu serializes all use of conn
	mu       sync.Mutex
	conn     net.Conn
	addr     string
	greeting *epp.Greeting

	log *zap.Logger
}

func New(opts Options) (*Client, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	dialer := opts.Dialer
	if dialer == nil {
		topts := opts.Transport
		if topts.Log == nil {
			topts.Log = log
		}

		tcp, err := transport.NewTCP(topts)
		if err != nil {
			return nil, err
		}
		dialer = tcp
	}

	trid := opts.TRID
	if trid == nil {
		trid = epp.NewTRIDGenerator().Next
	}

	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = protocol.MaxFrameSize
	}

	return &Client{
		opts:   opts,
		dialer: dialer,
		trid:   trid,
		log:    log.Named("client"),
	}, nil
}

// Connect dials host:port and reads the server greeting. An existing
// connection is closed first.
func (c *Client) Connect(ctx context.Context, host string, port int) (*epp.Greeting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connect(ctx, host, port)
}

func (c *Client) connect(ctx context.Context, host string, port int) (*epp.Greeting, error) {
	if c.conn != nil {
		c.closeConn()
	}

	if port == 0 {
		port = transport.DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := c.dialer.Dial(ctx, host, port)
	if err != nil {
		return nil, connectionError("dial", addr, err)
	}

	c.conn = conn
	c.addr = conn.RemoteAddr().String()

	frame, err := c.readFrame(ctx)
	if err != nil {
		return nil, err
	}

	greeting, err := epp.ParseGreeting(frame, c.opts.Namespaces...)
	if err != nil {
		c.closeConn()
		return nil, err
	}
	c.greeting = greeting

	c.log.Info("Connected",
		zap.String("remote", c.addr),
		zap.String("svID", greeting.ServerID()))

	return greeting, nil
}

// Connected reports whether the client holds an open connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

// Greeting returns the greeting received on connect, or from the latest
// Hello.
func (c *Client) Greeting() *epp.Greeting {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.greeting
}

// RemoteAddr returns the address of the connected server, or nil.
func (c *Client) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

// Hello sends <hello/> and returns the fresh greeting.
func (c *Client) Hello(ctx context.Context) (*epp.Greeting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := epp.NewHello().Encode(true)
	if err != nil {
		return nil, err
	}

	if err := c.writeFrame(ctx, payload); err != nil {
		return nil, err
	}

	frame, err := c.readFrame(ctx)
	if err != nil {
		return nil, err
	}

	greeting, err := epp.ParseGreeting(frame, c.opts.Namespaces...)
	if err != nil {
		return nil, err
	}
	c.greeting = greeting

	return greeting, nil
}

// Close closes the connection. Closing a closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	c.log.Info("Closing connection", zap.String("remote", c.addr))

	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}

// fail closes the connection after an I/O error and wraps err.
func (c *Client) fail(ctx context.Context, op string, err error) error {
	c.log.Warn("Closing connection after I/O failure",
		zap.String("op", op),
		zap.String("remote", c.addr),
		zap.Error(err))

	c.closeConn()

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &transport.ConnectionError{Op: op, Addr: c.addr, Err: err}
}

// watch closes the connection when ctx is done, unblocking any pending
// read or write. The returned func stops watching.
func (c *Client) watch(ctx context.Context) func() bool {
	conn := c.conn
	return context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
}

// unwatch stops watching. If ctx already fired the connection is gone.
func (c *Client) unwatch(stop func() bool) {
	if !stop() {
		c.conn = nil
	}
}

func (c *Client) writeFrame(ctx context.Context, payload []byte) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	stop := c.watch(ctx)
	defer c.unwatch(stop)

	c.logTraffic("SEND", payload)

	if err := protocol.WriteFrame(c.conn, payload); err != nil {
		return c.fail(ctx, "write", err)
	}
	return nil
}

func (c *Client) readFrame(ctx context.Context) ([]byte, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	stop := c.watch(ctx)
	defer c.unwatch(stop)

	frame, err := protocol.ReadFrameLimit(c.conn, c.opts.MaxFrameSize)
	if err != nil {
		return nil, c.fail(ctx, "read", err)
	}

	c.logTraffic("RECV", frame)

	return frame, nil
}

func (c *Client) logTraffic(direction string, payload []byte) {
	if !c.opts.LogTraffic {
		return
	}
	c.log.Debug(direction,
		zap.String("remote", c.addr),
		zap.ByteString("payload", payload))
}

func connectionError(op, addr string, err error) error {
	var connErr *transport.ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	return &transport.ConnectionError{Op: op, Addr: addr, Err: err}
}
