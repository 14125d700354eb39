package transport

import (
	"net"
	"time"
)

// Conn applies a fresh deadline before every read and write, so a stalled
// peer fails the operation after the steady state timeout.
type Conn struct {
	net.Conn

	timeout time.Duration
}

// NewConn wraps c. A zero timeout disables deadlines.
func NewConn(c net.Conn, timeout time.Duration) *Conn {
	return &Conn{Conn: c, timeout: timeout}
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// Unwrap returns the underlying connection.
func (c *Conn) Unwrap() net.Conn {
	return c.Conn
}
