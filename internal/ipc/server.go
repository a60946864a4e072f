package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	maxRequestBytes    = 4 << 10
	defaultReadTimeout = 2 * time.Second
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// ServeOption tunes Serve.
type ServeOption func(*server)

// WithLogger logs rejected requests at debug level.
func WithLogger(logger *slog.Logger) ServeOption {
	return func(s *server) { s.logger = logger }
}

// WithReadTimeout bounds how long a client may take to send its request line.
func WithReadTimeout(d time.Duration) ServeOption {
	return func(s *server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

type server struct {
	handler     Handler
	logger      *slog.Logger
	readTimeout time.Duration
}

// Serve accepts unix-socket clients until ctx is cancelled or the listener
// closes. Each connection carries one request line and one response line.
func Serve(ctx context.Context, listener net.Listener, handler Handler, opts ...ServeOption) error {
	s := &server{handler: handler, readTimeout: defaultReadTimeout}
	for _, opt := range opts {
		opt(s)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	req, err := readRequest(conn)
	if err != nil {
		s.reject(conn, err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	resp := s.handler.Handle(ctx, req)
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *server) reject(conn net.Conn, err error) {
	if s.logger != nil {
		s.logger.Debug("ipc request rejected", "error", err.Error())
	}
	_ = json.NewEncoder(conn).Encode(Response{OK: false, Error: err.Error()})
}

func readRequest(r io.Reader) (Request, error) {
	reader := bufio.NewReader(io.LimitReader(r, maxRequestBytes))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) == maxRequestBytes {
			return Request{}, fmt.Errorf("read request: exceeds %d bytes", maxRequestBytes)
		}
		return Request{}, fmt.Errorf("read request: %w", err)
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Request{}, errors.New("decode request: missing command")
	}
	return req, nil
}
