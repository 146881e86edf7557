package handler

import (
	"errors"
	"net/http"
	"strings"

	"tinypot-server/internal/auth"
	"tinypot-server/internal/config"
	"tinypot-server/internal/engine"
	"tinypot-server/internal/models"
	"tinypot-server/internal/service"
	"tinypot-server/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	playthroughsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinypot_playthroughs_started_total",
		Help: "Total number of playthroughs started.",
	})
	choicesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinypot_choices_applied_total",
		Help: "Total number of menu choices applied.",
	})
	textTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tinypot_text_turns_total",
		Help: "Total number of free-text turns by match outcome.",
	}, []string{"outcome"})
)

// PlayHandler handles HTTP requests of the play server.
type PlayHandler struct {
	playService service.PlayService
	verifier    *auth.JWTVerifier
	manager     *ws.ConnectionManager
	cfg         *config.Config
	logger      *zap.Logger
}

// NewPlayHandler creates a new PlayHandler.
func NewPlayHandler(
	playService service.PlayService,
	verifier *auth.JWTVerifier,
	manager *ws.ConnectionManager,
	cfg *config.Config,
	logger *zap.Logger,
) *PlayHandler {
	return &PlayHandler{
		playService: playService,
		verifier:    verifier,
		manager:     manager,
		cfg:         cfg,
		logger:      logger.Named("PlayHandler"),
	}
}

// RegisterRoutes registers the play server routes.
func (h *PlayHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", h.AuthMiddleware())
	{
		api.POST("/scripts/:script_id/playthroughs", h.startPlaythrough)
		api.GET("/playthroughs", h.listPlaythroughs)
		api.GET("/playthroughs/:id", h.getPlaythrough)
		api.DELETE("/playthroughs/:id", h.deletePlaythrough)
		api.POST("/playthroughs/:id/choice", h.makeChoice)
		api.POST("/playthroughs/:id/text", h.submitText)
	}

	internal := router.Group("/internal", h.InternalAuthMiddleware())
	{
		internal.POST("/scripts", h.createScript)
		internal.PUT("/scripts/:script_id/content", h.updateScriptContent)
	}

	router.GET("/ws", h.serveWs)
}

// AuthMiddleware verifies the bearer token and stores the player id in the
// request context under "user_id".
func (h *PlayHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			h.logger.Warn("Authorization header missing", zap.String("path", c.Request.URL.Path))
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.logger.Warn("Invalid Authorization header format")
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		claims, err := h.verifier.VerifyToken(c.Request.Context(), parts[1])
		if err != nil {
			handleServiceError(c, err)
			return
		}
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

// InternalAuthMiddleware guards the inter-service surface with a static
// shared secret.
func (h *PlayHandler) InternalAuthMiddleware() gin.HandlerFunc {
	staticSecret := h.cfg.InterServiceSecret
	if staticSecret == "" {
		h.logger.Warn("INTER_SERVICE_SECRET is not configured; internal endpoints will reject all requests")
	}
	return func(c *gin.Context) {
		token := c.GetHeader("X-Internal-Service-Token")
		if token == "" || staticSecret == "" || token != staticSecret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "invalid internal service token",
			})
			return
		}
		c.Next()
	}
}

// getUserIDFromContext extracts the player id set by AuthMiddleware.
func getUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "resource not found"
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		message = "access denied"
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		message = "token has expired"
	case errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenMalformed),
		errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "token is invalid or malformed"
	case errors.Is(err, service.ErrInvalidChoiceIndex):
		statusCode = http.StatusBadRequest
		message = "choice index out of range"
	case errors.Is(err, service.ErrInvalidScript):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, engine.ErrSessionEnded):
		statusCode = http.StatusConflict
		message = "the playthrough has already ended"
	case errors.Is(err, engine.ErrOptionNotOffered):
		statusCode = http.StatusConflict
		message = "the selected option is not currently offered"
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error()
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		message = "an unexpected internal error occurred"
	}

	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Error: message})
}
