package handlers

import (
	"net/http"

	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/gin-gonic/gin"
)

type auditItem struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	CreatedAt string `json:"created_at"`
}

type listAuditResponse struct {
	Events []auditItem `json:"events"`
}

func (h *Handler) ListAudit(c *gin.Context) {
	limit, errs := validation.ParseAuditLimit(c.Query("limit"))
	if len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid limit", errs)
		return
	}

	events, err := h.Audit.ListAudit(c.Request.Context(), principal(c), limit)
	if err != nil {
		h.writeServiceError(c, "list audit", err)
		return
	}
	items := make([]auditItem, 0, len(events))
	for _, ev := range events {
		items = append(items, auditItem{
			ID:        ev.ID.String(),
			UserID:    ev.UserID.String(),
			Action:    ev.Action,
			Details:   ev.Details,
			IPAddress: ev.IPAddress,
			UserAgent: ev.UserAgent,
			CreatedAt: timestamp(ev.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, listAuditResponse{Events: items})
}
