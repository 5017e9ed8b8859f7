package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lastseat/server/internal/services"
)

// RestAuditHandler serves the audit log to main admins.
type RestAuditHandler struct {
	auditService services.IAuditService
}

// NewRestAuditHandler creates a new RestAuditHandler.
func NewRestAuditHandler(auditService services.IAuditService) *RestAuditHandler {
	return &RestAuditHandler{auditService: auditService}
}

// List handles GET /v1/admin/audit?limit=
// The service caps the window at the most recent 100 entries.
func (h *RestAuditHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	entries, err := h.auditService.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
