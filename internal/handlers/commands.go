package handlers

import (
	"net/http"
	"strconv"

	"zonectl/internal/commands"
	"zonectl/internal/protocol"
	"zonectl/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	defaultRawName = "RAW"

	errDispatch        = "command could not be dispatched"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// rawRequest is the payload for sending an explicit zone/opcode pair.
// Pointers keep 0 a valid value under the required rule.
type rawRequest struct {
	Zone   *int   `json:"zone" binding:"required,min=0,max=255"`
	Opcode *int   `json:"opcode" binding:"required,min=0,max=255"`
	Name   string `json:"name,omitempty"`
}

// RawRequest is an exported model for Swagger docs of the raw payload.
type RawRequest struct {
	// Zone byte, 0..255 (the relay accepts 1..9)
	Zone int `json:"zone" example:"3"`
	// Opcode byte, 0..255
	Opcode int `json:"opcode" example:"16"`
	// Label used in the result and the journal
	Name string `json:"name,omitempty" example:"MANUAL"`
}

// anomalyView is the JSON shape of a table row that was skipped or flagged at load.
type anomalyView struct {
	Line    int    `json:"line"`
	Raw     string `json:"raw"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error"`
}

func toAnomalyViews(in []commands.Anomaly) []anomalyView {
	out := make([]anomalyView, 0, len(in))
	for _, a := range in {
		v := anomalyView{Line: a.Line, Raw: a.Raw, Skipped: a.Skipped}
		if a.Err != nil {
			v.Error = a.Err.Error()
		}
		out = append(out, v)
	}
	return out
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

// @Summary      List commands
// @Description  Command table in load order, plus rows skipped or flagged while loading
// @Tags         commands
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, commands, anomalies"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/commands [get]
// @Security     BearerAuth
func (h *Handler) listCommands(c *gin.Context) {
	defs := h.services.Catalog.Commands()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(defs),
		"commands":  defs,
		"anomalies": toAnomalyViews(h.services.Catalog.Anomalies()),
	})
}

// @Summary      Execute command
// @Description  Looks the name up in the command table and runs one request/acknowledge cycle.
// @Description  A failed outcome is still 200 unless strict=true, which answers 502.
// @Tags         commands
// @Produce      json
// @Param        name    path   string  true   "Command name (case-sensitive)"
// @Param        strict  query  bool    false  "Answer 502 when the outcome is FAILED"
// @Success      200  {object}  protocol.Result
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  protocol.Result
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/commands/{name}/execute [post]
// @Security     BearerAuth
func (h *Handler) executeCommand(c *gin.Context) {
	name := c.Param("name")
	res, err := h.services.Dispatch.Execute(service.WithSource(c.Request.Context(), service.SourceAPI), name)
	if err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, errDispatch, "command_dispatch_failed", err, "command", name)
		return
	}
	h.respondWithResult(c, res)
}

// @Summary      Send raw frame
// @Description  Sends an explicit zone/opcode pair without a table lookup.
// @Tags         commands
// @Accept       json
// @Produce      json
// @Param        body    body   RawRequest  true   "Raw payload"
// @Param        strict  query  bool        false  "Answer 502 when the outcome is FAILED"
// @Success      200  {object}  protocol.Result
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  protocol.Result
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/raw [post]
// @Security     BearerAuth
func (h *Handler) sendRaw(c *gin.Context) {
	var req rawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	name := req.Name
	if name == "" {
		name = defaultRawName
	}
	ctx := service.WithSource(c.Request.Context(), service.SourceAPI)
	res, err := h.services.Dispatch.Send(ctx, uint8(*req.Zone), uint8(*req.Opcode), name)
	if err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, errDispatch, "raw_dispatch_failed", err,
			"zone", *req.Zone, "opcode", *req.Opcode)
		return
	}
	h.respondWithResult(c, res)
}

func (h *Handler) respondWithResult(c *gin.Context, res protocol.Result) {
	code := http.StatusOK
	if !res.OK() && strictMode(c) {
		code = http.StatusBadGateway
	}
	c.JSON(code, res)
}

func strictMode(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.Query("strict"))
	return err == nil && v
}
