package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/gin-gonic/gin"
)

type createShareholderRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	TaxID     string `json:"tax_id"`
}

type shareholderItem struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Phone       string      `json:"phone,omitempty"`
	Address     string      `json:"address,omitempty"`
	TaxID       string      `json:"tax_id,omitempty"`
	TotalShares json.Number `json:"total_shares"`
	TotalValue  string      `json:"total_value"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

type listShareholdersResponse struct {
	Shareholders []shareholderItem `json:"shareholders"`
}

func (h *Handler) CreateShareholder(c *gin.Context) {
	var req createShareholderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}

	created, err := h.Registry.CreateShareholder(c.Request.Context(), principal(c), service.CreateShareholderInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Address:     req.Address,
		TaxID:       req.TaxID,
		RequestMeta: requestMeta(c),
	})
	if err != nil {
		h.writeServiceError(c, "create shareholder", err)
		return
	}
	c.JSON(http.StatusCreated, shareholderToItem(*created))
}

func (h *Handler) ListShareholders(c *gin.Context) {
	rows, err := h.Aggregate.ShareholdersWithTotals(c.Request.Context(), principal(c))
	if err != nil {
		h.writeServiceError(c, "list shareholders", err)
		return
	}
	items := make([]shareholderItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, shareholderToItem(row))
	}
	c.JSON(http.StatusOK, listShareholdersResponse{Shareholders: items})
}

func (h *Handler) GetOwnProfile(c *gin.Context) {
	me, err := h.Registry.GetOwnProfile(c.Request.Context(), principal(c))
	if err != nil {
		h.writeServiceError(c, "get own profile", err)
		return
	}
	c.JSON(http.StatusOK, shareholderToItem(*me))
}

func shareholderToItem(s service.Shareholder) shareholderItem {
	return shareholderItem{
		ID:          s.ID.String(),
		UserID:      s.UserID.String(),
		Email:       s.Email,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Phone:       s.Phone,
		Address:     s.Address,
		TaxID:       s.TaxID,
		TotalShares: shareCount(s.TotalShares),
		TotalValue:  money(s.TotalValue),
		CreatedAt:   timestamp(s.CreatedAt),
		UpdatedAt:   timestamp(s.UpdatedAt),
	}
}
