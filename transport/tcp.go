package transport

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"

	"go.uber.org/zap"
)

// Dialer opens connections to EPP servers. TCP is the blocking default;
// anything that yields a net.Conn can stand in for it.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (net.Conn, error)
}

// TCP dials plain TCP or TLS connections.
type TCP struct {
	opts Options
	tls  *tls.Config
	log  *zap.Logger
}

var _ Dialer = (*TCP)(nil)

// NewTCP validates opts and loads any TLS material.
func NewTCP(opts Options) (*TCP, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	t := &TCP{
		opts: opts,
		log:  log.Named("transport"),
	}

	if opts.TLS {
		cfg, err := opts.tlsConfig()
		if err != nil {
			return nil, &ConnectionError{Op: "configure", Err: err}
		}
		t.tls = cfg
	}

	return t, nil
}

// Dial connects to host:port, doing the TLS handshake when enabled. Both
// are bounded by the connect timeout; the returned Conn applies the steady
// state timeout to each read and write.
func (t *TCP) Dial(ctx context.Context, host string, port int) (net.Conn, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if t.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.ConnectTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: addr, Err: err}
	}

	log := t.log.With(
		zap.String("local", raw.LocalAddr().String()),
		zap.String("remote", raw.RemoteAddr().String()),
	)
	log.Debug("Connected")

	if t.tls == nil {
		return NewConn(raw, t.opts.Timeout), nil
	}

	cfg := t.tls.Clone()
	cfg.ServerName = host

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		log.Warn("TLS handshake failed", zap.Error(err))
		return nil, &ConnectionError{Op: "handshake", Addr: addr, Err: err}
	}

	state := conn.ConnectionState()
	log.Debug("TLS negotiated",
		zap.String("version", tls.VersionName(state.Version)),
		zap.String("cipher", tls.CipherSuiteName(state.CipherSuite)))

	return NewConn(conn, t.opts.Timeout), nil
}
