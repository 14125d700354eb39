package client

import (
	"errors"
	"fmt"

	"github.com/luma/epp/epp"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrNoLoginAddress = errors.New("no host to connect to")
)

// LoginError is returned by Login when the server rejects the credentials.
type LoginError struct {
	Response *epp.Response
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("epp login failed: %s %s", e.Response.Code(), e.Response.Msg())
}
