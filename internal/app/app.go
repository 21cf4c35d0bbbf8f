package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/command"
	"github.com/vovakirdan/flowchat/internal/config"
	"github.com/vovakirdan/flowchat/internal/log"
	"github.com/vovakirdan/flowchat/internal/metrics"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/service/chat"
	"github.com/vovakirdan/flowchat/internal/store"
	"github.com/vovakirdan/flowchat/internal/store/sqlite"
	"github.com/vovakirdan/flowchat/internal/translate"
	"github.com/vovakirdan/flowchat/internal/transport"
	transporthttp "github.com/vovakirdan/flowchat/internal/transport/http"
	"github.com/vovakirdan/flowchat/internal/transport/tcp"
	"github.com/vovakirdan/flowchat/internal/transport/udp"
)

// App wires the command stack to the TCP, UDP and admin HTTP servers.
type App struct {
	tcp             *tcp.Server
	udp             *udp.Server
	http            *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	sessions        *auth.Sessions
	log             *zerolog.Logger

	quit     chan struct{}
	quitOnce sync.Once
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	// Initialize database store
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
		quit:            make(chan struct{}),
	}

	a.sessions = auth.NewSessions(cfg.SessionTTL)
	authService := auth.NewService(st, a.sessions)
	translator := translate.New(cfg.TranslateURL, cfg.TranslateAPIKey, cfg.TranslateTimeout)
	if cfg.TranslateURL != "" {
		logger.Info().Str("url", cfg.TranslateURL).Msg("translation backend configured")
	}

	reg := command.NewRegistry()
	if _, err := chat.Register(reg, chat.Deps{
		Auth:            authService,
		Users:           st,
		Messages:        st,
		Translator:      translator,
		Logger:          log.Component(logger, "chat"),
		AllowRemoteQuit: cfg.AllowRemoteQuit,
		Quit:            a.requestQuit,
	}); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("register commands: %w", err)
	}
	dispatcher, err := command.NewDispatcher(reg, proto.NewParser())
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	m := metrics.New()
	ex := transport.NewExchanger(dispatcher, m, log.Component(logger, "exchange"))

	a.tcp = tcp.New(tcp.Config{
		Addr:         cfg.TCPAddr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, ex, m, log.Component(logger, "tcp"))
	a.udp = udp.New(cfg.UDPAddr, ex, log.Component(logger, "udp"))
	a.http = transporthttp.NewServer(transporthttp.Deps{
		Exchanger: ex,
		Registry:  reg,
		Sessions:  authService.Sessions(),
		Users:     st,
		Metrics:   m,
	}, cfg, log.Component(logger, "http"))

	return a, nil
}

// requestQuit is called when a QUIT_SERVER request is accepted.
func (a *App) requestQuit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Run starts all servers and blocks until context cancellation, remote quit or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	if err := a.tcp.Listen(); err != nil {
		return err
	}
	if err := a.udp.Listen(); err != nil {
		a.tcp.Stop()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Shutdown does not track hijacked /ws connections; they end with ctx instead.
	a.http.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-a.quit:
			a.log.Warn().Msg("remote quit accepted, shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		a.sessions.Run(gctx, sweepInterval(a.sessions.TTL()))
		return nil
	})
	g.Go(func() error { return a.tcp.Serve(gctx) })
	g.Go(func() error { return a.udp.Serve(gctx) })
	g.Go(func() error {
		a.log.Info().Str("addr", a.http.Addr).Msg("admin http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("admin http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return min(max(ttl/4, time.Second), time.Hour)
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
