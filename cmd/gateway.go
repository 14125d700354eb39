package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luma/epp/client"
	"github.com/luma/epp/epp"
	"github.com/luma/epp/internal/meta"
	"github.com/luma/epp/storage"
)

// Gateway exposes one logged in registry session over HTTP.
type Gateway struct {
	// ctx bounds registry I/O; request contexts are not used so an HTTP
	// client hanging up does not kill the session.
	ctx context.Context

	client  *client.Client
	login   client.LoginOptions
	journal *storage.Journal

	// mu makes re-login and the command that follows atomic
	mu sync.Mutex

	log *zap.Logger
}

func NewGateway(ctx context.Context, c *client.Client, login client.LoginOptions, journal *storage.Journal, log *zap.Logger) *Gateway {
	return &Gateway{
		ctx:     ctx,
		client:  c,
		login:   login,
		journal: journal,
		log:     log.Named("gateway"),
	}
}

// Register adds the gateway routes to r.
func (g *Gateway) Register(r gin.IRouter) {
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, meta.GetInfo())
	})

	r.GET("/greeting", g.greeting)
	r.POST("/hello", g.hello)
	r.POST("/send", g.send)
	r.GET("/transactions", g.transactions)
	r.GET("/transactions/:clTRID", g.transaction)
	r.GET("/failures", g.failures)
}

// session logs in again if the connection was lost.
func (g *Gateway) session() error {
	if g.client.Connected() {
		return nil
	}

	g.log.Info("Session lost, logging in again")

	_, err := g.client.Login(g.ctx, g.login)
	return err
}

func (g *Gateway) greeting(c *gin.Context) {
	greeting := g.client.Greeting()
	if greeting == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not connected"})
		return
	}

	c.JSON(http.StatusOK, greeting.Tree())
}

func (g *Gateway) hello(c *gin.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.session(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	greeting, err := g.client.Hello(g.ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, greeting.Tree())
}

func (g *Gateway) send(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := epp.ParseCommand(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if doc.Kind() == epp.Login || doc.Kind() == epp.Logout {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the gateway manages the session itself"})
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.session(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	resp, err := g.client.Send(g.ctx, doc)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     resp.Code(),
		"msg":      resp.Msg(),
		"success":  resp.Success(),
		"clTRID":   resp.ClTRID(),
		"svTRID":   resp.SvTRID(),
		"response": resp.Tree(),
	})
}

func (g *Gateway) transactions(c *gin.Context) {
	all, err := g.journal.Store().Backup()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", all)
}

func (g *Gateway) transaction(c *gin.Context) {
	tx, err := g.journal.Lookup(c.Request.Context(), c.Param("clTRID"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown clTRID"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (g *Gateway) failures(c *gin.Context) {
	failures, err := g.journal.Failures()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if failures == nil {
		failures = []*storage.Transaction{}
	}
	c.JSON(http.StatusOK, failures)
}
