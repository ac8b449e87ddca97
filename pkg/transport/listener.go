package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/annetutil/tlsengine/pkg/handshake"
)

// HandshakeFunc drives one accepted connection to completion: it is
// handed a RecordConn already wrapping the raw socket and is
// responsible for calling handshake.Run (and whatever follows once the
// handshake is over). A non-nil error is logged; it does not stop the
// listener.
type HandshakeFunc func(ctx context.Context, rc *RecordConn) error

// Listener accepts TCP connections and runs HandshakeFunc over each one
// concurrently, in the same accept-loop/errgroup-per-connection shape
// the teacher's tunnel forwarder uses for its two copy goroutines: one
// errgroup per connection, logged and discarded on completion, so a
// single bad peer never blocks or crashes the accept loop.
type Listener struct {
	addr    string
	logger  *zap.Logger
	handler HandshakeFunc

	ln net.Listener

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

type ListenerOption func(*Listener)

func WithLogger(log *zap.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = log
	}
}

// NewListener constructs a Listener bound to addr (host:port); it does
// not start accepting until Serve is called.
func NewListener(addr string, handler HandshakeFunc, opts ...ListenerOption) *Listener {
	l := &Listener{
		addr:    addr,
		logger:  zap.NewNop(),
		handler: handler,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Serve binds addr and accepts connections until ctx is canceled or
// Close is called. Each connection is handed to handler on its own
// goroutine; Serve itself blocks until the accept loop exits.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.logger.Info("listening", zap.String("addr", l.addr))

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				l.running.Wait()
				return nil
			}
			return err
		}

		l.running.Add(1)
		go func() {
			defer l.running.Done()
			l.serveConn(ctx, conn)
		}()
	}
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	rc := NewRecordConn(conn, handshake.MajorVersion, handshake.MinorTLS12)

	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return l.handler(gctx, rc)
	})

	if err := wg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Error("handshake failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
	} else {
		l.logger.Debug("handshake done", zap.String("remote", conn.RemoteAddr().String()))
	}
	_ = conn.Close()
}

// Close stops the accept loop; in-flight connections are allowed to
// finish.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.ln != nil {
		return l.ln.Close()
	}
	return nil
}
