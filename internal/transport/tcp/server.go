// Package tcp serves FlowProtocol over TCP.
//
// Each connection carries a sequence of request/reply frames. A successful AUTH on a
// connection binds its session token, so later requests on the same connection are
// resolved under that session even when they carry no token of their own.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/metrics"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/transport"
)

// Config holds the TCP listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server accepts TCP connections and answers frames through an Exchanger.
type Server struct {
	cfg      Config
	ex       *transport.Exchanger
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	listener net.Listener

	conns        *xsync.MapOf[string, net.Conn]
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New creates a server. Call Listen, then Serve.
func New(cfg Config, ex *transport.Exchanger, m *metrics.Metrics, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		cfg:      cfg,
		ex:       ex,
		metrics:  m,
		log:      logger,
		conns:    xsync.NewMapOf[string, net.Conn](),
		shutdown: make(chan struct{}),
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve accepts connections until ctx is done or Stop is called.
// It returns after every connection handler has finished.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.log.Info().Str("addr", s.Addr()).Msg("tcp server listening")

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	var acceptErr error
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
			default:
				acceptErr = fmt.Errorf("accept: %w", err)
				s.Stop()
			}
			break
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	s.log.Info().Msg("tcp server stopped")
	return acceptErr
}

// Stop closes the listener and wakes every connection blocked in a read.
// A reply already being written is finished before its connection closes.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		now := time.Now()
		s.conns.Range(func(_ string, c net.Conn) bool {
			_ = c.SetReadDeadline(now)
			return true
		})
	})
}

func (s *Server) stopping() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	s.conns.Store(id, conn)
	s.metrics.ConnOpened(proto.TransportTCP)

	l := s.log.With().Str("conn_id", id).Str("remote", conn.RemoteAddr().String()).Logger()
	l.Debug().Msg("connection opened")

	defer func() {
		s.conns.Delete(id)
		_ = conn.Close()
		s.metrics.ConnClosed(proto.TransportTCP)
		l.Debug().Msg("connection closed")
	}()

	var session string
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		// Checked after the deadline is set so a concurrent Stop cannot be overwritten.
		if s.stopping() {
			return
		}
		frame, err := proto.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				l.Debug().Err(err).Msg("read failed")
			}
			return
		}

		out := s.ex.Handle(ctx, proto.TransportTCP, frame, session)
		if out.Session != "" {
			session = out.Session
		}

		if s.cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := proto.WriteFrame(conn, out.Reply); err != nil {
			l.Debug().Err(err).Msg("write failed")
			return
		}
		if out.Close {
			return
		}
	}
}
