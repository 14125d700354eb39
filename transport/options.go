package transport

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPort           = 700
	DefaultConnectTimeout = 15 * time.Second
	DefaultTimeout        = 60 * time.Second
)

// Options configures the TCP dialer.
type Options struct {
	// TLS wraps connections in TLS.
	TLS bool

	// CertFile and KeyFile hold the client certificate presented to the
	// server. Both empty means no client certificate.
	CertFile string
	KeyFile  string

	// CAFile is a PEM bundle of roots used to verify the server. Empty
	// means the system roots.
	CAFile string

	// CipherSuites restricts the TLS 1.2 suites offered, by Go name
	// (e.g. "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"). Empty means Go's
	// defaults.
	CipherSuites []string

	// MinVersion is the lowest TLS version accepted. Zero means TLS 1.2.
	MinVersion uint16

	// ValidateCert verifies the server certificate chain.
	ValidateCert bool

	// ValidateHostname additionally checks the certificate against the
	// host that was dialed. Ignored when ValidateCert is false.
	ValidateHostname bool

	// ConnectTimeout bounds the TCP connect and the TLS handshake.
	ConnectTimeout time.Duration

	// Timeout bounds every read and write once connected.
	Timeout time.Duration

	Log *zap.Logger
}

// DefaultOptions returns validating TLS options with the default timeouts.
func DefaultOptions() Options {
	return Options{
		TLS:              true,
		ValidateCert:     true,
		ValidateHostname: true,
		ConnectTimeout:   DefaultConnectTimeout,
		Timeout:          DefaultTimeout,
	}
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free port
	Port int

	// Reuseport controls setting SO_REUSEPORT
	Reuseport bool

	// NumListeners is the number of accept loops sharing the port. It
	// only has an effect with Reuseport.
	NumListeners int

	// TLSConfig, when set, serves TLS.
	TLSConfig *tls.Config

	// Greeting is written as the first frame of every session.
	Greeting []byte

	Handler Handler

	Log *zap.Logger
}
