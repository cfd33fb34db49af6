package handlers

import (
	"net/http"
	"strings"

	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// price_per_share accepts a JSON number or a decimal string.
type createIssuanceRequest struct {
	ShareholderID  string           `json:"shareholder_id"`
	NumberOfShares int64            `json:"number_of_shares"`
	PricePerShare  *decimal.Decimal `json:"price_per_share"`
	Notes          string           `json:"notes"`
}

type issuanceItem struct {
	ID                string `json:"id"`
	ShareholderID     string `json:"shareholder_id"`
	NumberOfShares    int64  `json:"number_of_shares"`
	PricePerShare     string `json:"price_per_share"`
	TotalValue        string `json:"total_value"`
	IssuanceDate      string `json:"issuance_date"`
	CertificateNumber string `json:"certificate_number"`
	Notes             string `json:"notes,omitempty"`
	CreatedAt         string `json:"created_at"`
}

type listIssuancesResponse struct {
	Issuances []issuanceItem `json:"issuances"`
}

func (h *Handler) CreateIssuance(c *gin.Context) {
	var req createIssuanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}
	if req.PricePerShare == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", validation.ValidationErrors{
			{Field: "price_per_share", Message: "price_per_share is required"},
		})
		return
	}
	shareholderID := uuid.Nil
	if raw := strings.TrimSpace(req.ShareholderID); raw != "" {
		id, errs := validation.ParseID("shareholder_id", raw)
		if len(errs) > 0 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", errs)
			return
		}
		shareholderID = id
	}

	issuance, err := h.Ledger.CreateIssuance(c.Request.Context(), principal(c), service.CreateIssuanceInput{
		ShareholderID:  shareholderID,
		NumberOfShares: req.NumberOfShares,
		PricePerShare:  *req.PricePerShare,
		Notes:          req.Notes,
		RequestMeta:    requestMeta(c),
	})
	if err != nil {
		h.writeServiceError(c, "create issuance", err)
		return
	}
	c.JSON(http.StatusCreated, issuanceToItem(*issuance))
}

func (h *Handler) ListIssuances(c *gin.Context) {
	issuances, err := h.Ledger.ListAll(c.Request.Context(), principal(c))
	if err != nil {
		h.writeServiceError(c, "list issuances", err)
		return
	}
	c.JSON(http.StatusOK, listIssuancesResponse{Issuances: issuancesToItems(issuances)})
}

func (h *Handler) ListOwnIssuances(c *gin.Context) {
	issuances, err := h.Ledger.ListForShareholder(c.Request.Context(), principal(c))
	if err != nil {
		h.writeServiceError(c, "list own issuances", err)
		return
	}
	c.JSON(http.StatusOK, listIssuancesResponse{Issuances: issuancesToItems(issuances)})
}

func (h *Handler) Certificate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	doc, err := h.Ledger.Certificate(c.Request.Context(), principal(c), id)
	if err != nil {
		h.writeServiceError(c, "render certificate", err)
		return
	}
	writeDocument(c, doc)
}

func (h *Handler) OwnCertificate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	doc, err := h.Ledger.OwnCertificate(c.Request.Context(), principal(c), id)
	if err != nil {
		h.writeServiceError(c, "render own certificate", err)
		return
	}
	writeDocument(c, doc)
}

func writeDocument(c *gin.Context, doc certificate.Document) {
	c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func issuancesToItems(issuances []storage.Issuance) []issuanceItem {
	items := make([]issuanceItem, 0, len(issuances))
	for _, is := range issuances {
		items = append(items, issuanceToItem(is))
	}
	return items
}

func issuanceToItem(is storage.Issuance) issuanceItem {
	return issuanceItem{
		ID:                is.ID.String(),
		ShareholderID:     is.ShareholderID.String(),
		NumberOfShares:    is.NumberOfShares,
		PricePerShare:     money(is.PricePerShare),
		TotalValue:        money(is.TotalValue),
		IssuanceDate:      timestamp(is.IssuanceDate),
		CertificateNumber: is.CertificateNumber,
		Notes:             is.Notes,
		CreatedAt:         timestamp(is.CreatedAt),
	}
}
