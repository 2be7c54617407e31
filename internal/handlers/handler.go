package handlers

import (
	"net/http"

	"controlling_fermenter/internal/logger"
	"controlling_fermenter/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	metrics  http.Handler
	log      *logger.Logger
}

type Option func(*Handler)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(hd *Handler) { hd.metrics = h }
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{services: services, log: logger.OrNop(log)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// status stream on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireUser)
	{
		h.registerRunRoutes(api)
		h.registerControllerRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerRunRoutes(api *gin.RouterGroup) {
	runs := api.Group("/runs")
	{
		// Body example: {"name":"lager","mode":"GRADUAL","levels":[{"target_temp_c":20,"duration_sec":3600}]}
		runs.POST("", h.startRun)
		runs.GET("", h.listRuns)
		runs.GET("/:id", h.getRun)
		runs.GET("/:id/readings", h.getRunReadings)
	}
}

func (h *Handler) registerControllerRoutes(api *gin.RouterGroup) {
	ctl := api.Group("/controller")
	{
		ctl.POST("/stop", h.stopRun)
		ctl.POST("/abort", h.abortRun)
		ctl.GET("/status", h.getStatus)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}
