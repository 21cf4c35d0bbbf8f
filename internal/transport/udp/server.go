// Package udp serves FlowProtocol over UDP. Each datagram is one request and gets one reply.
// UDP requests carry their own session token; nothing is remembered between datagrams.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/transport"
)

// Server answers datagrams through an Exchanger.
type Server struct {
	addr string
	ex   *transport.Exchanger
	log  *zerolog.Logger
	conn net.PacketConn

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New creates a server for addr. Call Listen, then Serve.
func New(addr string, ex *transport.Exchanger, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{addr: addr, ex: ex, log: logger, shutdown: make(chan struct{})}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", s.addr, err)
	}
	s.conn = conn
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.LocalAddr().String()
}

// pollInterval bounds how long a read blocks before shutdown is rechecked.
const pollInterval = 500 * time.Millisecond

// Serve handles datagrams until ctx is done or Stop is called, then closes the socket.
// Datagrams are handled in order on the calling goroutine, so a reply in flight
// is always sent before the socket closes.
func (s *Server) Serve(ctx context.Context) error {
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	defer s.conn.Close()
	s.log.Info().Str("addr", s.Addr()).Msg("udp server listening")

	buf := make([]byte, proto.FrameSize)
	for {
		select {
		case <-s.shutdown:
			s.log.Info().Msg("udp server stopped")
			return nil
		case <-ctx.Done():
			s.log.Info().Msg("udp server stopped")
			return nil
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return fmt.Errorf("set udp deadline: %w", err)
		}
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Debug().Err(err).Msg("udp read failed")
			continue
		}
		if n == 0 {
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		out := s.ex.Handle(ctx, proto.TransportUDP, frame, "")
		if _, err := s.conn.WriteTo(out.Reply, peer); err != nil {
			s.log.Debug().Err(err).Str("peer", peer.String()).Msg("udp write failed")
		}
	}
}

// Stop asks Serve to return. It takes effect within pollInterval.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
	})
}
