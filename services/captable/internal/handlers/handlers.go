package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AfshinJalili/captable/libs/auth"
	"github.com/AfshinJalili/captable/libs/httpmiddleware"
	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuthService interface {
	Authenticate(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
}

type RegistryService interface {
	CreateShareholder(ctx context.Context, caller access.Principal, input service.CreateShareholderInput) (*service.Shareholder, error)
	GetOwnProfile(ctx context.Context, caller access.Principal) (*service.Shareholder, error)
}

type LedgerService interface {
	CreateIssuance(ctx context.Context, caller access.Principal, input service.CreateIssuanceInput) (*storage.Issuance, error)
	ListAll(ctx context.Context, caller access.Principal) ([]storage.Issuance, error)
	ListForShareholder(ctx context.Context, caller access.Principal) ([]storage.Issuance, error)
	Certificate(ctx context.Context, caller access.Principal, id uuid.UUID) (certificate.Document, error)
	OwnCertificate(ctx context.Context, caller access.Principal, id uuid.UUID) (certificate.Document, error)
}

type AggregateService interface {
	DashboardStats(ctx context.Context, caller access.Principal) (service.DashboardStats, error)
	OwnershipDistribution(ctx context.Context, caller access.Principal) ([]service.OwnershipShare, error)
	ShareholdersWithTotals(ctx context.Context, caller access.Principal) ([]service.Shareholder, error)
}

type AuditService interface {
	ListAudit(ctx context.Context, caller access.Principal, limit int) ([]storage.AuditEvent, error)
}

type Services struct {
	Auth      AuthService
	Registry  RegistryService
	Ledger    LedgerService
	Aggregate AggregateService
	Audit     AuditService
}

type Info struct {
	Name    string
	Version string
}

type Handler struct {
	Services
	Info   Info
	Logger *slog.Logger
}

type errorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func New(services Services, info Info, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Services: services, Info: info, Logger: logger}
}

func (h *Handler) Register(r *gin.Engine, jwtSecret []byte) {
	r.GET("/", h.Root)

	api := r.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/token", h.Token)

	protected := api.Group("", auth.Middleware(jwtSecret))
	protected.POST("/shareholders", h.CreateShareholder)
	protected.GET("/shareholders", h.ListShareholders)
	protected.GET("/shareholders/me", h.GetOwnProfile)

	protected.POST("/issuances", h.CreateIssuance)
	protected.GET("/issuances", h.ListIssuances)
	protected.GET("/issuances/my", h.ListOwnIssuances)
	protected.GET("/issuances/:id/certificate", h.Certificate)
	protected.GET("/issuances/:id/certificate/my", h.OwnCertificate)

	protected.GET("/dashboard/stats", h.DashboardStats)
	protected.GET("/dashboard/ownership-distribution", h.OwnershipDistribution)

	protected.GET("/audit", h.ListAudit)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": h.Info.Name, "version": h.Info.Version})
}

// principal turns the claims stored by auth.Middleware into a caller. Bad
// claims yield the anonymous principal, which every service gate rejects.
func principal(c *gin.Context) access.Principal {
	subject, role := auth.Subject(c)
	p, err := access.ParsePrincipal(subject, role)
	if err != nil {
		return access.Principal{}
	}
	return p
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func writeError(c *gin.Context, status int, code, message string, fields []validation.FieldError) {
	c.JSON(status, errorResponse{Code: code, Message: message, Fields: fields})
}

// writeServiceError maps service sentinels to the HTTP error contract. Only
// unexpected failures are logged here.
func (h *Handler) writeServiceError(c *gin.Context, op string, err error) {
	var limited *service.RateLimitedError
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", service.FieldErrors(err))
	case errors.Is(err, service.ErrUnauthenticated):
		c.Header("WWW-Authenticate", "Bearer")
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.Is(err, service.ErrConflict):
		writeError(c, http.StatusConflict, "CONFLICT", "already exists", nil)
	case errors.As(err, &limited):
		c.Header("Retry-After", retryAfterSeconds(limited.RetryAfter))
		writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
	case errors.Is(err, service.ErrRateLimited):
		writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
	case errors.Is(err, service.ErrIntegrity):
		h.Logger.Error(op+" failed", "error", err, "request_id", c.GetString(httpmiddleware.RequestIDHeader))
		writeError(c, http.StatusInternalServerError, "INTEGRITY_ERROR", "integrity error", nil)
	default:
		h.Logger.Error(op+" failed", "error", err, "request_id", c.GetString(httpmiddleware.RequestIDHeader))
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// money renders two decimals unless the stored amount carries sub-cent
// precision, in which case it keeps the full price scale.
func money(d decimal.Decimal) string {
	if d.Equal(d.Truncate(2)) {
		return d.StringFixed(2)
	}
	return d.StringFixed(validation.PriceScale)
}

func shareCount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, errs := validation.ParseID("id", c.Param("id"))
	if len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid id", errs)
		return uuid.Nil, false
	}
	return id, true
}
