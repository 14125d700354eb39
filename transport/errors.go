package transport

import "fmt"

// ConnectionError reports a socket or TLS failure. The connection it
// happened on is unusable.
type ConnectionError struct {
	// Op is what was being done: "dial", "handshake", "read", "write".
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("epp connection %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("epp connection %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
