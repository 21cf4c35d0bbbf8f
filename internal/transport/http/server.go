package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/command"
	"github.com/vovakirdan/flowchat/internal/config"
	"github.com/vovakirdan/flowchat/internal/metrics"
	"github.com/vovakirdan/flowchat/internal/store"
	"github.com/vovakirdan/flowchat/internal/transport"
)

// Deps are the services the admin surface reads from.
type Deps struct {
	Exchanger *transport.Exchanger
	Registry  *command.Registry
	Sessions  *auth.Sessions
	Users     store.UserStore
	Metrics   *metrics.Metrics
}

// NewServer builds the admin HTTP server: health, metrics, stats and the /ws protocol bridge.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	started := time.Now()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := NewAPIHandlers(deps.Registry, deps.Sessions, deps.Users, logger)
	jwtConfig := AdminJWTConfig(cfg.AdminJWTSecret, cfg.AdminJWTIssuer, 0)
	admin := router.Group("/api", AdminAuthMiddleware(jwtConfig, logger))
	admin.GET("/stats", api.Stats)

	// /ws stays outside gin: its writer refuses the hijack after the 101 is sent.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Exchanger, deps.Metrics, WSOptions{
		RateLimit:    cfg.WSRateLimit,
		WriteTimeout: cfg.WriteTimeout,
	}, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.AdminAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.WriteTimeout,
	}
}
