package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/internal/status"
	apperrors "aisreporter/pkg/errors"
	"aisreporter/pkg/health"
)

// ReporterView is the read side of the reporter exposed over HTTP.
type ReporterView interface {
	Running() bool
	Buffered() int
	Channels() []string
}

type StatusSource interface {
	Snapshot() status.Snapshot
}

type StatusResponse struct {
	PluginID string          `json:"plugin_id"`
	Name     string          `json:"name"`
	Running  bool            `json:"running"`
	Channels []string        `json:"channels"`
	Buffered int             `json:"buffered"`
	Status   status.Snapshot `json:"status"`
}

type Handler struct {
	reporter ReporterView
	statuses StatusSource
	health   *health.CheckerRegistry
	name     string
	logger   logger.Logger
}

func NewHandler(reporter ReporterView, statuses StatusSource, registry *health.CheckerRegistry, name string, log logger.Logger) *Handler {
	if name == "" {
		name = constants.DefaultSenderName
	}
	return &Handler{
		reporter: reporter,
		statuses: statuses,
		health:   registry,
		name:     name,
		logger:   log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Health answers 503 only when a check is unhealthy; degraded is still 200.
func (h *Handler) Health(c *gin.Context) {
	result := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		h.logger.WarnwCtx(c.Request.Context(), "Health check failed", "checks", result.Checks)
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, result)
}

func (h *Handler) Status(c *gin.Context) {
	channels := h.reporter.Channels()
	if channels == nil {
		channels = []string{}
	}
	c.JSON(http.StatusOK, StatusResponse{
		PluginID: constants.PluginID,
		Name:     h.name,
		Running:  h.reporter.Running(),
		Channels: channels,
		Buffered: h.reporter.Buffered(),
		Status:   h.statuses.Snapshot(),
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	err := apperrors.ErrNotFound.WithDetail("path", c.Request.URL.Path)
	c.JSON(apperrors.ToHTTPStatus(err), apperrors.ToErrorResponse(err))
}
