package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/luma/epp/epp"
)

// LoginOptions configures Login.
type LoginOptions struct {
	epp.LoginOptions

	// AllowFailure returns a rejected login as a plain response instead
	// of a *LoginError.
	AllowFailure bool
}

// Login authenticates the session, connecting to Options.Host first if
// needed.
func (c *Client) Login(ctx context.Context, opts LoginOptions) (*epp.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if c.opts.Host == "" {
			return nil, ErrNoLoginAddress
		}
		if _, err := c.connect(ctx, c.opts.Host, c.opts.Port); err != nil {
			return nil, err
		}
	}

	doc, err := epp.NewLogin(opts.LoginOptions)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, doc)
	if err != nil {
		return nil, err
	}

	if !resp.Success() {
		c.log.Warn("Login rejected",
			zap.String("clID", opts.ClientID),
			zap.String("code", resp.Code()),
			zap.String("msg", resp.Msg()))

		if !opts.AllowFailure {
			return resp, &LoginError{Response: resp}
		}
		return resp, nil
	}

	c.log.Info("Logged in", zap.String("clID", opts.ClientID))

	return resp, nil
}

// Logout ends the session. The server closes the connection after a
// successful logout, so the client does too.
func (c *Client) Logout(ctx context.Context) (*epp.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.send(ctx, epp.NewLogout(""))
	if err != nil {
		return nil, err
	}

	if resp.Code() == epp.CodeLogoutOK || epp.IsClosingCode(resp.Code()) {
		c.closeConn()
	}

	return resp, nil
}
