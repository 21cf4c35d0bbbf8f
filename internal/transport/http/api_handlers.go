package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/command"
	"github.com/vovakirdan/flowchat/internal/store"
)

// APIHandlers provides the admin REST endpoints.
type APIHandlers struct {
	registry *command.Registry
	sessions *auth.Sessions
	users    store.UserStore
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. Any dependency may be nil.
func NewAPIHandlers(registry *command.Registry, sessions *auth.Sessions, users store.UserStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		sessions: sessions,
		users:    users,
		log:      logger,
	}
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Commands       []string `json:"commands"`
	ActiveSessions int      `json:"active_sessions"`
	Users          int      `json:"users"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stats reports registered commands, live sessions and user count.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	resp := StatsResponse{Commands: []string{}}
	if h.registry != nil {
		resp.Commands = h.registry.Names()
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.Count()
	}
	if h.users != nil {
		n, err := h.users.CountUsers(c.Request.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("failed to count users")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		resp.Users = n
	}
	c.JSON(http.StatusOK, resp)
}
