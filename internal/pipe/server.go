// Package pipe serves the command protocol over a local Unix domain socket.
// Each connection carries newline terminated command lines and receives one
// reply line per command, in order. An empty line ends the connection.
package pipe

import (
	"bufio"
	"context"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/internal/protocol"
)

const (
	socketMode  = 0o600
	maxLineSize = 64 * 1024
	dialTimeout = 500 * time.Millisecond
)

// ErrInUse is returned when another process is serving the socket
var ErrInUse = errors.New("socket is already in use")

type Server struct {
	path   string
	svc    protocol.Service
	logger *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(path string, svc protocol.Service, logger *slog.Logger) *Server {
	return &Server{
		path:   path,
		svc:    svc,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Path returns the socket path
func (s *Server) Path() string {
	return s.path
}

// Listen creates the socket, replacing a stale socket file left behind by a
// previous process.
func (s *Server) Listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create socket directory")
	}
	if err := removeStale(s.path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", s.path)
	}
	if err := os.Chmod(s.path, socketMode); err != nil {
		ln.Close()
		return nil, errors.Wrap(err, "restrict socket permissions")
	}
	return ln, nil
}

func removeStale(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return errors.Errorf("%s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err == nil {
		conn.Close()
		return errors.Wrap(ErrInUse, path)
	}
	return errors.Wrap(os.Remove(path), "remove stale socket")
}

// Run listens on the socket and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. On return the
// listener and every open connection are closed and the socket file removed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting pipe server", "path", s.path)

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeConns()
	})
	defer stop()

	var serveErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				serveErr = errors.Wrap(err, "accept")
			}
			break
		}
		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handle(conn)
		}()
	}

	ln.Close()
	s.closeConns()
	s.wg.Wait()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("cannot remove socket", "path", s.path, "error", err)
	}
	s.logger.Info("pipe server stopped")
	return serveErr
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Text()
		if isBlank(line) {
			return
		}
		reply := s.Handle(line)
		if _, err := w.WriteString(reply + "\n"); err != nil {
			s.logger.Debug("pipe write failed", "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			s.logger.Debug("pipe write failed", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("pipe read failed", "error", err)
	}
}

// Handle answers a single command line
func (s *Server) Handle(line string) string {
	req, err := protocol.ParseLine(line)
	if err != nil {
		return protocol.EncodeLine(nil, err)
	}
	result, err := protocol.Execute(s.svc, req)
	if err != nil && protocol.Status(err) >= 500 {
		s.logger.Error("pipe command failed", "command", req.Verb, "error", err)
	}
	return protocol.EncodeLine(result, err)
}

func isBlank(line string) bool {
	return strings.TrimSpace(strings.TrimPrefix(line, "\uFEFF")) == ""
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
