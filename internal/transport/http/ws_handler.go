package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/metrics"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/transport"
)

// TransportWS labels frames that arrive over /ws.
const TransportWS = "ws"

// CodeRateLimited is sent when a connection exceeds its frame budget.
const CodeRateLimited = "RATE_LIMITED"

// WSHandler upgrades HTTP connections and carries one FlowProtocol line per text message.
// Like TCP, a successful AUTH binds its session to the connection.
type WSHandler struct {
	ex      *transport.Exchanger
	metrics *metrics.Metrics
	opts    WSOptions
	log     *zerolog.Logger
}

// WSOptions tune the /ws bridge.
type WSOptions struct {
	// RateLimit is frames per second per connection, 0 for none.
	RateLimit    int
	WriteTimeout time.Duration
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(ex *transport.Exchanger, m *metrics.Metrics, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &WSHandler{ex: ex, metrics: m, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(proto.FrameSize)

	id := uuid.NewString()
	l := h.log.With().Str("conn_id", id).Logger()
	h.metrics.ConnOpened(TransportWS)
	defer h.metrics.ConnClosed(TransportWS)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	limiter := newRateLimiter(h.opts.RateLimit, time.Second)
	limiter.startReset(ctx.Done())

	err = h.serve(ctx, conn, limiter, &l)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			reason = err.Error()
			l.Warn().Err(err).Msg("ws connection closed with error")
		}
	}
	_ = conn.Close(status, reason)
}

func (h *WSHandler) serve(ctx context.Context, conn *websocket.Conn, limiter *rateLimiter, l *zerolog.Logger) error {
	var session string
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			return conn.Close(websocket.StatusUnsupportedData, "text frames only")
		}

		if !limiter.allow() {
			l.Debug().Msg("ws frame rate limited")
			reply := proto.Reply(proto.StatusError, proto.StatusError)
			reply.Set(proto.KeyStatusCode, CodeRateLimited)
			frame, _ := proto.EncodeFields(reply)
			if err := h.write(ctx, conn, frame); err != nil {
				return err
			}
			continue
		}

		out := h.ex.Handle(ctx, TransportWS, data, session)
		if out.Session != "" {
			session = out.Session
		}
		if err := h.write(ctx, conn, out.Reply); err != nil {
			return err
		}
		if out.Close {
			return nil
		}
	}
}

// write sends one reply. Writes outlive request cancellation, bounded by WriteTimeout.
func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.opts.WriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, frame)
}
