package client

import (
	"go.uber.org/zap"

	"github.com/luma/epp/namespace"
	"github.com/luma/epp/storage"
	"github.com/luma/epp/transport"
)

// Options configures a Client.
type Options struct {
	// Host and Port are used by Login when the client is not connected yet.
	Host string
	Port int

	// Dialer opens connections. Nil means a transport.TCP built from
	// Transport.
	Dialer    transport.Dialer
	Transport transport.Options

	// Namespaces are extra bindings used to parse responses.
	Namespaces []namespace.Binding

	// KeepHints leaves decode bookkeeping (order trails and schema
	// locations) in parsed responses.
	KeepHints bool

	// LogTraffic logs every frame sent and received at debug level.
	LogTraffic bool

	// MaxFrameSize bounds received frames. Zero means
	// protocol.MaxFrameSize.
	MaxFrameSize int

	// TRID generates client transaction ids. Nil means a fresh
	// epp.TRIDGenerator.
	TRID func() string

	// Journal, when set, records every command exchange.
	Journal *storage.Journal

	Log *zap.Logger
}

// BatchOptions controls BatchSend.
type BatchOptions struct {
	// Pipeline writes every frame in a single write.
	Pipeline bool

	// FailFast returns as soon as a write fails. Otherwise the failure is
	// logged and the responses to the frames that were sent are read.
	FailFast bool

	// SkipResponses returns after writing, without reading any response.
	SkipResponses bool
}
