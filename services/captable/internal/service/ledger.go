package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AfshinJalili/captable/libs/trace"
	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultMintAttempts = 3

type LedgerStore interface {
	CreateIssuance(ctx context.Context, in storage.NewIssuance) (*storage.Issuance, error)
	GetIssuance(ctx context.Context, id uuid.UUID) (*storage.Issuance, error)
	ListIssuances(ctx context.Context) ([]storage.Issuance, error)
	ListIssuancesByProfile(ctx context.Context, profileID uuid.UUID) ([]storage.Issuance, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (*storage.Profile, error)
	FindProfileByAccount(ctx context.Context, accountID uuid.UUID) (*storage.Profile, error)
}

type NumberMinter interface {
	Next(now time.Time) string
}

type LedgerService struct {
	store        LedgerStore
	numbers      NumberMinter
	renderer     certificate.Renderer
	format       string
	audit        AuditEmitter
	logger       *slog.Logger
	metrics      *Metrics
	mintAttempts int
	now          func() time.Time
}

type CreateIssuanceInput struct {
	ShareholderID  uuid.UUID
	NumberOfShares int64
	PricePerShare  decimal.Decimal
	Notes          string
	RequestMeta
}

func NewLedgerService(store LedgerStore, numbers NumberMinter, renderer certificate.Renderer, format string, emitter AuditEmitter, logger *slog.Logger, metrics *Metrics, mintAttempts int) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if numbers == nil {
		numbers = certificate.NewNumberGenerator()
	}
	if mintAttempts < 1 {
		mintAttempts = defaultMintAttempts
	}
	if format == "" {
		format = certificate.FormatPDF
	}
	return &LedgerService{
		store:        store,
		numbers:      numbers,
		renderer:     renderer,
		format:       format,
		audit:        emitterOrNoop(emitter),
		logger:       logger,
		metrics:      metrics,
		mintAttempts: mintAttempts,
		now:          time.Now,
	}
}

// CreateIssuance records a new issuance under a freshly minted certificate
// number. Records are never updated afterwards.
func (s *LedgerService) CreateIssuance(ctx context.Context, caller access.Principal, input CreateIssuanceInput) (*storage.Issuance, error) {
	ctx, span := trace.StartSpan(ctx, tracerName, "LedgerService.CreateIssuance")
	defer span.End()

	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if errs := validation.ValidateIssuance(input.ShareholderID, input.NumberOfShares, input.PricePerShare, input.Notes); len(errs) > 0 {
		s.metrics.ObserveIssuance("invalid", 0)
		return nil, invalid(errs)
	}
	span.SetAttributes(
		attribute.String("shareholder_id", input.ShareholderID.String()),
		attribute.Int64("number_of_shares", input.NumberOfShares),
	)

	total := decimal.NewFromInt(input.NumberOfShares).Mul(input.PricePerShare)
	now := s.now().UTC()

	var created *storage.Issuance
	for attempt := 1; ; attempt++ {
		number := s.numbers.Next(now)
		issuance, err := s.store.CreateIssuance(ctx, storage.NewIssuance{
			ID:                uuid.New(),
			ShareholderID:     input.ShareholderID,
			NumberOfShares:    input.NumberOfShares,
			PricePerShare:     input.PricePerShare,
			TotalValue:        total,
			IssuanceDate:      now,
			CertificateNumber: number,
			Notes:             input.Notes,
		})
		if err == nil {
			created = issuance
			break
		}
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.ObserveIssuance("not_found", 0)
			return nil, fmt.Errorf("%w: shareholder %s", ErrNotFound, input.ShareholderID)
		}
		if !errors.Is(err, storage.ErrDuplicateCertificate) {
			s.metrics.ObserveIssuance("error", 0)
			span.RecordError(err)
			span.SetStatus(codes.Error, "create issuance failed")
			return nil, fmt.Errorf("create issuance: %w", err)
		}

		s.metrics.IncCertificateConflict()
		s.logger.Warn("certificate number collision",
			"certificate_number", number,
			"attempt", attempt,
		)
		if attempt >= s.mintAttempts {
			s.metrics.ObserveIssuance("error", 0)
			s.logger.Error("certificate numbers exhausted, operator attention required",
				"shareholder_id", input.ShareholderID.String(),
				"attempts", attempt,
			)
			span.SetStatus(codes.Error, "certificate numbers exhausted")
			return nil, fmt.Errorf("%w: no unique certificate number after %d attempts", ErrIntegrity, attempt)
		}
	}
	s.metrics.ObserveIssuance("success", created.NumberOfShares)
	span.SetAttributes(attribute.String("certificate_number", created.CertificateNumber))

	s.audit.Emit(ctx, audit.Event{
		ActorID:   caller.AccountID,
		Action:    audit.ActionShareIssuance,
		Details:   fmt.Sprintf("Issued %d shares to shareholder ID %s", created.NumberOfShares, created.ShareholderID),
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})

	return created, nil
}

func (s *LedgerService) ListAll(ctx context.Context, caller access.Principal) ([]storage.Issuance, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	issuances, err := s.store.ListIssuances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	return issuances, nil
}

func (s *LedgerService) ListForShareholder(ctx context.Context, caller access.Principal) ([]storage.Issuance, error) {
	if err := access.RequireShareholder(caller); err != nil {
		return nil, err
	}
	profile, err := s.callerProfile(ctx, caller)
	if err != nil {
		return nil, err
	}
	issuances, err := s.store.ListIssuancesByProfile(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("list issuances: %w", err)
	}
	return issuances, nil
}

func (s *LedgerService) GetByID(ctx context.Context, id uuid.UUID) (*storage.Issuance, error) {
	issuance, err := s.store.GetIssuance(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: issuance %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get issuance: %w", err)
	}
	return issuance, nil
}

// Certificate renders the certificate of any issuance.
func (s *LedgerService) Certificate(ctx context.Context, caller access.Principal, id uuid.UUID) (certificate.Document, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return certificate.Document{}, err
	}
	issuance, err := s.GetByID(ctx, id)
	if err != nil {
		return certificate.Document{}, err
	}
	profile, err := s.store.GetProfileByID(ctx, issuance.ShareholderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return certificate.Document{}, fmt.Errorf("%w: shareholder profile %s", ErrNotFound, issuance.ShareholderID)
		}
		return certificate.Document{}, fmt.Errorf("get profile: %w", err)
	}
	return s.render(ctx, issuance, profile)
}

// OwnCertificate renders a certificate only when the issuance belongs to the
// caller. A missing issuance is reported as forbidden as well.
func (s *LedgerService) OwnCertificate(ctx context.Context, caller access.Principal, id uuid.UUID) (certificate.Document, error) {
	if err := access.RequireShareholder(caller); err != nil {
		return certificate.Document{}, err
	}
	profile, err := s.callerProfile(ctx, caller)
	if err != nil {
		return certificate.Document{}, err
	}
	issuance, err := s.store.GetIssuance(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return certificate.Document{}, ErrForbidden
		}
		return certificate.Document{}, fmt.Errorf("get issuance: %w", err)
	}
	if err := access.RequireOwner(issuance.ShareholderID, profile.ID); err != nil {
		return certificate.Document{}, err
	}
	return s.render(ctx, issuance, profile)
}

func (s *LedgerService) render(ctx context.Context, issuance *storage.Issuance, profile *storage.Profile) (certificate.Document, error) {
	if s.renderer == nil {
		return certificate.Document{}, errors.New("certificate renderer not configured")
	}
	doc, err := s.renderer.Render(ctx, certificate.Data{
		Number:        issuance.CertificateNumber,
		HolderName:    profile.FullName(),
		Shares:        issuance.NumberOfShares,
		PricePerShare: issuance.PricePerShare,
		TotalValue:    issuance.TotalValue,
		IssuedAt:      issuance.IssuanceDate,
		GeneratedAt:   s.now().UTC(),
	})
	if err != nil {
		s.metrics.ObserveCertificate(s.format, "error")
		return certificate.Document{}, fmt.Errorf("render certificate %s: %w", issuance.CertificateNumber, err)
	}
	s.metrics.ObserveCertificate(s.format, "success")
	return doc, nil
}

func (s *LedgerService) callerProfile(ctx context.Context, caller access.Principal) (*storage.Profile, error) {
	profile, err := s.store.FindProfileByAccount(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: shareholder profile", ErrNotFound)
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}
