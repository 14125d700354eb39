package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"runtime"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/epp/protocol"
)

// Handler answers one client frame. It writes zero or more bytes to w,
// normally a single protocol.WriteFrame. Returning an error ends the
// session and closes the connection.
type Handler func(ctx context.Context, frame []byte, w io.Writer) error

// Server accepts framed EPP sessions: it writes the greeting, then passes
// every frame the client sends to the handler. It keeps no registry state
// and is meant for local tooling and tests.
type Server struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	opts ServerOptions

	mu        sync.Mutex
	addr      net.Addr
	listeners []*serverListener

	log *zap.Logger
}

func NewServer(opts ServerOptions) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	if opts.NumListeners < 1 {
		opts.NumListeners = 1
		if opts.Reuseport {
			opts.NumListeners = runtime.NumCPU()
		}
	}
	if !opts.Reuseport {
		opts.NumListeners = 1
	}

	return &Server{
		opts: opts,
		log:  log.Named("server"),
	}
}

// Start binds the listeners and begins accepting. It returns once the
// address is bound.
func (s *Server) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))

	s.log.Info("Starting listeners", zap.Int("count", s.opts.NumListeners))

	for i := 0; i < s.opts.NumListeners; i++ {
		ln, err := s.listen(addr)
		if err != nil {
			cancel()
			return multierr.Append(err, s.closeListeners())
		}

		// Later listeners share whatever port the first one got.
		if i == 0 {
			s.addr = ln.Addr()
			addr = ln.Addr().String()
		}

		s.startListener(ctx, ln, i)
	}

	return nil
}

func (s *Server) listen(addr string) (net.Listener, error) {
	var (
		ln  net.Listener
		err error
	)

	if s.opts.Reuseport {
		ln, err = reuseport.Listen("tcp", addr)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	if s.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, s.opts.TLSConfig)
	}

	return ln, nil
}

// Addr is the bound address, once started.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Port is the bound port, once started.
func (s *Server) Port() int {
	if tcp, ok := s.addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

func (s *Server) startListener(ctx context.Context, ln net.Listener, index int) {
	listener := &serverListener{
		ctx:         ctx,
		listener:    ln,
		greeting:    s.opts.Greeting,
		handler:     s.opts.Handler,
		activeConns: make(map[*session]struct{}),
		log:         s.log.Named("listener").With(zap.Int("listener", index)),
	}

	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()

	s.stopWaiter.Add(1)
	go func() {
		defer s.stopWaiter.Done()

		if err := listener.serve(); err != nil {
			s.log.Error("Failed to accept", zap.Error(err))
		}
	}()
}

// Close immediately closes all listeners and sessions.
func (s *Server) Close() error {
	s.log.Info("Stopping server")
	if s.cancel != nil {
		s.cancel()
	}

	err := s.closeListeners()
	s.stopWaiter.Wait()

	return err
}

func (s *Server) closeListeners() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listeners {
		err = multierr.Append(err, l.close())
	}
	s.listeners = nil

	return err
}

type serverListener struct {
	ctx      context.Context
	listener net.Listener
	greeting []byte
	handler  Handler

	mu          sync.Mutex
	activeConns map[*session]struct{}
	closed      bool
	loopWaiter  sync.WaitGroup

	log *zap.Logger
}

func (l *serverListener) serve() error {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || l.ctx.Err() != nil {
				// The listener was closed while we were waiting for new
				// connections, that's fine.
				l.loopWaiter.Wait()
				return nil
			}
			return err
		}

		sess := &session{
			conn:    conn,
			handler: l.handler,
			log:     l.log.Named("session").With(zap.String("remote", conn.RemoteAddr().String())),
		}
		if !l.addConn(sess) {
			// Accepted while the listener was closing.
			_ = conn.Close()
			continue
		}

		l.loopWaiter.Add(1)
		go func() {
			defer l.loopWaiter.Done()
			defer l.removeConn(sess)

			sess.run(l.ctx, l.greeting)
		}()
	}
}

// addConn tracks s, unless the listener is already closed.
func (l *serverListener) addConn(s *session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.activeConns[s] = struct{}{}
	return true
}

func (l *serverListener) removeConn(s *session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.activeConns, s)
}

func (l *serverListener) close() error {
	err := l.listener.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for s := range l.activeConns {
		// Unblocks the session's pending read.
		_ = s.conn.Close()
	}

	return err
}

type session struct {
	conn    net.Conn
	handler Handler
	log     *zap.Logger
}

func (s *session) run(ctx context.Context, greeting []byte) {
	defer s.conn.Close()

	if greeting != nil {
		if err := protocol.WriteFrame(s.conn, greeting); err != nil {
			s.log.Warn("Failed to send greeting", zap.Error(err))
			return
		}
	}

	for ctx.Err() == nil {
		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Warn("Failed to read client frame", zap.Error(err))
			}
			return
		}

		if s.handler == nil {
			continue
		}

		if err := s.handler(ctx, frame, s.conn); err != nil {
			s.log.Info("Handler ended session", zap.Error(err))
			return
		}
	}
}
