package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AbortRequest is the optional payload of POST /api/v1/controller/abort.
type AbortRequest struct {
	Reason string `json:"reason" example:"lid open"`
}

const defaultAbortReason = "aborted by user"

// @Summary      Stop the active run
// @Description  The run ends ABORTED with a STOP event at the next control tick.
// @Tags         controller
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, controller"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/controller/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRun(c *gin.Context) {
	if err := h.services.Controller.Stop(c.Request.Context()); err != nil {
		h.respondServiceError(c, err, errStopRun, "run_stop_failed")
		return
	}
	h.log.Infow("run_stop_requested", "user_id", userID(c))
	h.respondWithStatusAndController(c, statusStopping, gin.H{})
}

// @Summary      Abort the active run
// @Tags         controller
// @Accept       json
// @Produce      json
// @Param        body  body      AbortRequest  false  "Abort reason"
// @Success      200   {object}  map[string]interface{}  "status, reason, controller"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/controller/abort [post]
// @Security     BearerAuth
func (h *Handler) abortRun(c *gin.Context) {
	var req AbortRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultAbortReason
	}
	if err := h.services.Controller.Abort(c.Request.Context(), reason); err != nil {
		h.respondServiceError(c, err, errAbortRun, "run_abort_failed", "reason", reason)
		return
	}
	h.log.Infow("run_abort_requested", "user_id", userID(c), "reason", reason)
	h.respondWithStatusAndController(c, statusAborting, gin.H{"reason": reason})
}

// @Summary      Controller status
// @Description  Live run snapshot, or the latest stored run when the controller has none.
// @Tags         controller
// @Produce      json
// @Success      200  {object}  service.Status
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/controller/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "status_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
