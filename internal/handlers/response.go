package handlers

import (
	"errors"
	"net/http"

	"controlling_fermenter/internal/profile"
	"controlling_fermenter/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusStopping = "stopping"
	statusAborting = "aborting"

	errStartRun        = "failed to start run"
	errStopRun         = "failed to stop run"
	errAbortRun        = "failed to abort run"
	errGetStatus       = "failed to load status"
	errListRuns        = "failed to load runs"
	errGetRun          = "failed to load run"
	errListReadings    = "failed to load readings"
	errInvalidBodyPref = "invalid body: "
	errInvalidRunID    = "invalid run id"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondServiceError maps service errors to status codes. Client errors
// echo the error text; anything else is logged and answered with userMsg.
func (h *Handler) respondServiceError(c *gin.Context, err error, userMsg, logKey string, kv ...interface{}) {
	switch {
	case errors.Is(err, profile.ErrInvalidProfile),
		errors.Is(err, service.ErrRunNameTaken),
		errors.Is(err, service.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRunActive),
		errors.Is(err, service.ErrNoActiveRun):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, userMsg, logKey, err, kv...)
	}
}

// Respond with a status and include the controller status if available (best-effort).
func (h *Handler) respondWithStatusAndController(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if h.services.Monitoring != nil {
		if st, err := h.services.Monitoring.GetStatus(ctx); err == nil {
			resp["controller"] = st
		}
	}
	c.JSON(http.StatusOK, resp)
}
