package client

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/epp/epp"
	"github.com/luma/epp/protocol"
	"github.com/luma/epp/storage"
)

// BatchResult is the outcome of BatchSend.
type BatchResult struct {
	// Sent is the number of documents completely written.
	Sent int

	// Responses has one slot per document. Slots are nil for documents
	// that were not sent, or whose response could not be read or parsed.
	// It is empty when responses were skipped.
	Responses []*epp.Response

	// Err collects every failure that did not abort the batch.
	Err error
}

// Send writes doc and waits for its response. A command that needs a
// clTRID and has none gets one assigned, and keeps it across sends.
//
// Socket failures close the connection and are returned as
// *transport.ConnectionError. A response that is not well formed XML is
// returned as *tree.ParseError and leaves the connection open. Registry
// errors are not Go errors: check Response.Success.
func (c *Client) Send(ctx context.Context, doc *epp.Document) (*epp.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.send(ctx, doc)
}

func (c *Client) send(ctx context.Context, doc *epp.Document) (*epp.Response, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	clTRID := doc.EnsureClTRID(c.trid)

	payload, err := doc.Encode(true)
	if err != nil {
		return nil, err
	}

	sentAt := time.Now()

	if err := c.writeFrame(ctx, payload); err != nil {
		return nil, err
	}

	frame, err := c.readFrame(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.parseResponse(doc, frame)
	if err != nil {
		return nil, err
	}

	c.checkClTRID(clTRID, resp)
	c.record(ctx, doc, payload, resp, frame, sentAt)

	return resp, nil
}

// BatchSend writes every document before reading any response, then reads
// one response per document that was sent. The server must answer in
// order.
//
// The returned error is only set when the batch could not start, or when
// FailFast is set and a write failed. Other failures are collected in
// BatchResult.Err.
func (c *Client) BatchSend(ctx context.Context, docs []*epp.Document, opts BatchOptions) (*BatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	ids := make([]string, len(docs))
	payloads := make([][]byte, len(docs))
	for i, doc := range docs {
		ids[i] = doc.EnsureClTRID(c.trid)

		payload, err := doc.Encode(true)
		if err != nil {
			return nil, err
		}
		payloads[i] = payload
	}

	result := &BatchResult{}
	sentAt := time.Now()

	sent, writeErr := c.writeBatch(ctx, payloads, opts.Pipeline)
	result.Sent = sent

	if writeErr != nil {
		c.log.Error("Batch write failed",
			zap.Int("sent", sent),
			zap.Int("total", len(docs)),
			zap.Error(writeErr))

		if opts.FailFast {
			c.closeConn()
			if !opts.SkipResponses {
				result.Responses = make([]*epp.Response, len(docs))
			}
			return result, writeErr
		}
		result.Err = multierr.Append(result.Err, writeErr)
	}

	if opts.SkipResponses {
		if writeErr != nil {
			c.closeConn()
		}
		return result, nil
	}

	result.Responses = make([]*epp.Response, len(docs))

	received := 0
	for i := 0; i < sent; i++ {
		frame, err := c.readFrame(ctx)
		if err != nil {
			result.Err = multierr.Append(result.Err, err)
			break
		}
		received++

		resp, err := c.parseResponse(docs[i], frame)
		if err != nil {
			result.Err = multierr.Append(result.Err, err)
			continue
		}

		c.checkClTRID(ids[i], resp)
		c.record(ctx, docs[i], payloads[i], resp, frame, sentAt)
		result.Responses[i] = resp
	}

	if received < sent {
		c.log.Error("Batch read failed",
			zap.Int("sent", sent),
			zap.Int("received", received))
	}

	// The frames after a failed write may be half sent, so the session
	// cannot carry on.
	if writeErr != nil {
		c.closeConn()
	}

	return result, nil
}

// writeBatch writes payloads and returns how many frames went out whole.
func (c *Client) writeBatch(ctx context.Context, payloads [][]byte, pipeline bool) (int, error) {
	stop := c.watch(ctx)
	defer c.unwatch(stop)

	if pipeline {
		for _, p := range payloads {
			c.logTraffic("SEND", p)
		}

		n, err := protocol.WriteFrames(c.conn, payloads...)
		if err != nil {
			return n, c.wrapWrite(ctx, err)
		}
		return n, nil
	}

	for i, p := range payloads {
		c.logTraffic("SEND", p)

		if err := protocol.WriteFrame(c.conn, p); err != nil {
			return i, c.wrapWrite(ctx, err)
		}
	}

	return len(payloads), nil
}

// wrapWrite wraps a batch write failure without closing the connection, so
// the responses to the frames already sent can still be read.
func (c *Client) wrapWrite(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return connectionError("write", c.addr, err)
}

func (c *Client) parseResponse(doc *epp.Document, frame []byte) (*epp.Response, error) {
	resp, err := epp.ParseResponse(frame, c.opts.Namespaces...)
	if err != nil {
		c.log.Warn("Failed to parse response", zap.Error(err))
		return nil, err
	}

	if !c.opts.KeepHints {
		resp.StripHints()
	}
	doc.NormalizeResponse(resp)

	return resp, nil
}

func (c *Client) checkClTRID(sent string, resp *epp.Response) {
	got := resp.ClTRID()
	if sent == "" || got == "" || got == sent {
		return
	}

	c.log.Warn("Response clTRID does not match the command",
		zap.String("sent", sent),
		zap.String("received", got))
}

func (c *Client) record(ctx context.Context, doc *epp.Document, request []byte, resp *epp.Response, response []byte, sentAt time.Time) {
	if c.opts.Journal == nil {
		return
	}

	err := c.opts.Journal.Record(ctx, storage.Transaction{
		ClTRID:   doc.ClTRID(),
		SvTRID:   resp.SvTRID(),
		Command:  doc.Kind().Name,
		Code:     resp.Code(),
		Msg:      resp.Msg(),
		Remote:   c.addr,
		SentAt:   sentAt,
		Duration: time.Since(sentAt),
		Request:  string(request),
		Response: string(response),
	})
	if err != nil {
		c.log.Warn("Failed to journal transaction", zap.Error(err))
	}
}
