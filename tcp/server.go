// Package tcp carries the line protocol: one goroutine per accepted
// connection, a name handshake, then a dispatch loop feeding the chat
// service. All routing and group work lives behind the service; this
// package owns only socket IO and the connection lifecycle.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"

	chaterrors "chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/protocol"
	"chat-relay/services"
)

type Server struct {
	log     *slog.Logger
	service services.IChatService
	metrics *observability.Metrics
	maxLine int
}

func NewServer(log *slog.Logger, service services.IChatService, metrics *observability.Metrics, maxLineBytes int) *Server {
	return &Server{log: log, service: service, metrics: metrics, maxLine: maxLineBytes}
}

// Serve accepts until ctx is cancelled, then closes the listener and
// waits for every handler to finish. Accept errors on a live listener
// are logged and skipped so one bad connection cannot stop the server.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stopClose := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stopClose()

	var wg sync.WaitGroup
	for {
		sock, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn("Accept failed", "error", err)
			continue
		}
		s.metrics.IncrConnections()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, sock)
		}()
	}

	wg.Wait()
	return nil
}

// handle runs a connection from handshake to teardown. The deferred
// Close unblocks nothing here; the AfterFunc does, so a shutdown
// reaches sessions parked on a read.
func (s *Server) handle(ctx context.Context, sock net.Conn) {
	conn := newConn(sock)
	defer func() { _ = conn.Close() }()

	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	scanner := bufio.NewScanner(sock)
	scanner.Buffer(make([]byte, 0, s.maxLine), s.maxLine)

	if !s.handshake(conn, scanner) {
		s.log.Debug("Handshake abandoned", "remote", conn.RemoteAddr())
		return
	}
	s.log.Info("Session started", "name", conn.Name(), "remote", conn.RemoteAddr())
	defer s.service.Leave(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.service.Handle(ctx, conn, line) {
			s.log.Info("Session quit", "name", conn.Name())
			return
		}
	}

	if err := scanCause(scanner); err != nil {
		s.log.Warn("Session dropped", "name", conn.Name(), "error", err)
		return
	}
	s.log.Info("Session disconnected", "name", conn.Name())
}

// handshake loops prompt, read, claim until a name is accepted or the
// peer goes away. Rejections re-prompt rather than close, matching the
// "please try again" wording clients rely on.
func (s *Server) handshake(conn *Conn, scanner *bufio.Scanner) bool {
	for {
		if err := conn.Send(protocol.NamePrompt); err != nil {
			return false
		}
		if !scanner.Scan() {
			return false
		}
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}

		conn.name = name
		err := s.service.Join(conn)
		if err == nil {
			return true
		}

		reply := protocol.InvalidNameReply
		if errors.Is(err, chaterrors.ErrNameTaken) {
			reply = protocol.NameTakenReply
		}
		if err := conn.Send(reply); err != nil {
			return false
		}
	}
}

// scanCause reports why reading stopped. A clean EOF returns nil, an
// oversized line surfaces as the protocol error.
func scanCause(scanner *bufio.Scanner) error {
	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		return chaterrors.ErrLineTooLong
	}
	return err
}
