package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/service"

	"github.com/gin-gonic/gin"
)

// StartRunRequest is the payload of POST /api/v1/runs.
type StartRunRequest struct {
	// Unique run name. Optional for IDLE runs.
	Name string `json:"name" example:"lager-2026-03"`
	// Allowed: IDLE, CONSTANT, GRADUAL
	Mode string `json:"mode" binding:"required" example:"GRADUAL"`
	// 0 levels for IDLE, 1 for CONSTANT, 1-5 for GRADUAL. Durations in seconds.
	Levels []models.Level `json:"levels,omitempty"`
}

// @Summary      Start a run
// @Description  Validates the profile and queues the run; it becomes ACTIVE at the next control tick.
// @Tags         runs
// @Accept       json
// @Produce      json
// @Param        body  body      StartRunRequest  true  "Run definition"
// @Success      201   {object}  models.Run
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/runs [post]
// @Security     BearerAuth
func (h *Handler) startRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	def := models.RunDefinition{
		Name:   req.Name,
		Mode:   models.Mode(req.Mode),
		Levels: req.Levels,
	}
	run, err := h.services.Controller.Start(c.Request.Context(), def)
	if err != nil {
		h.respondServiceError(c, err, errStartRun, "run_start_failed", "name", req.Name, "mode", req.Mode)
		return
	}
	h.log.Infow("run_queued", "run_id", run.ID, "name", run.Name, "mode", run.Mode, "user_id", userID(c))
	c.JSON(http.StatusCreated, run)
}

// @Summary      List runs
// @Tags         runs
// @Produce      json
// @Param        status  query     string  false  "Run status"  Enums(PENDING,ACTIVE,COMPLETED,ABORTED)
// @Param        limit   query     int     false  "Max runs, newest first"  example(50)
// @Success      200     {object}  map[string]interface{}  "count, runs"
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/runs [get]
// @Security     BearerAuth
func (h *Handler) listRuns(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	status := models.RunStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	runs, err := h.services.Runs.ListRuns(c.Request.Context(), service.RunFilter{Status: status, Limit: limit})
	if err != nil {
		h.respondServiceError(c, err, errListRuns, "runs_list_failed", "status", status)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

// @Summary      Get run
// @Tags         runs
// @Produce      json
// @Param        id   path      int  true  "Run id"
// @Success      200  {object}  models.Run
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/runs/{id} [get]
// @Security     BearerAuth
func (h *Handler) getRun(c *gin.Context) {
	id, ok := runIDParam(c)
	if !ok {
		return
	}
	run, err := h.services.Runs.GetRun(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err, errGetRun, "run_get_failed", "run_id", id)
		return
	}
	c.JSON(http.StatusOK, run)
}

// @Summary      List readings of a run
// @Description  Time bounds accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'. A date-only 'to' covers the whole day.
// @Tags         runs
// @Produce      json
// @Param        id      path      int     true   "Run id"
// @Param        from    query     string  false  "Start of range"  example(2026-03-01)
// @Param        to      query     string  false  "End of range"    example(2026-03-02)
// @Param        sensor  query     string  false  "Sensor id"       example(28-000005e2fdc3)
// @Param        limit   query     int     false  "Max readings"
// @Success      200     {object}  map[string]interface{}  "count, readings"
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/runs/{id}/readings [get]
// @Security     BearerAuth
func (h *Handler) getRunReadings(c *gin.Context) {
	id, ok := runIDParam(c)
	if !ok {
		return
	}
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	readings, err := h.services.Runs.ListReadings(c.Request.Context(), service.ReadingFilter{
		RunID:    id,
		SensorID: strings.TrimSpace(c.Query("sensor")),
		From:     from,
		To:       to,
		Limit:    limit,
	})
	if err != nil {
		h.respondServiceError(c, err, errListReadings, "readings_list_failed", "run_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}

func runIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRunID})
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, key string) (int, bool) {
	s := c.Query(key)
	if s == "" {
		return 0, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid '" + key + "'"})
		return 0, false
	}
	return v, true
}

// queryRange parses optional 'from' and 'to'. A date-only 'to' is the end of that day.
func queryRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return time.Time{}, time.Time{}, false
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return time.Time{}, time.Time{}, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be <= 'to'"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
