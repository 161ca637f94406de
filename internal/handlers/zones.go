package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List zone status
// @Description  Last outcome and consecutive failure count of every zone addressed so far
// @Tags         zones
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, zones"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/zones [get]
// @Security     BearerAuth
func (h *Handler) listZones(c *gin.Context) {
	zones, err := h.services.Zones.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load zones", "zones_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(zones),
		"zones": zones,
	})
}
