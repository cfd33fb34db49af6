package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type statsResponse struct {
	TotalShareholders int64       `json:"total_shareholders"`
	TotalSharesIssued json.Number `json:"total_shares_issued"`
	TotalValue        string      `json:"total_value"`
}

type distributionItem struct {
	ShareholderName string      `json:"shareholder_name"`
	Shares          json.Number `json:"shares"`
	Percentage      string      `json:"percentage"`
	Value           string      `json:"value"`
}

type distributionResponse struct {
	Distribution []distributionItem `json:"distribution"`
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.Aggregate.DashboardStats(c.Request.Context(), principal(c))
	if err != nil {
		h.writeServiceError(c, "dashboard stats", err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{
		TotalShareholders: stats.TotalShareholders,
		TotalSharesIssued: shareCount(stats.TotalSharesIssued),
		TotalValue:        money(stats.TotalValue),
	})
}

func (h *Handler) OwnershipDistribution(c *gin.Context) {
	rows, err := h.Aggregate.OwnershipDistribution(c.Request.Context(), principal(c))
	if err != nil {
		h.writeServiceError(c, "ownership distribution", err)
		return
	}
	items := make([]distributionItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, distributionItem{
			ShareholderName: row.ShareholderName,
			Shares:          shareCount(row.Shares),
			Percentage:      row.Percentage.StringFixed(2),
			Value:           money(row.Value),
		})
	}
	c.JSON(http.StatusOK, distributionResponse{Distribution: items})
}
