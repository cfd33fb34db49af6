package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RegistryStore interface {
	CreateShareholder(ctx context.Context, in storage.NewShareholder) (*storage.Profile, error)
	FindProfileByAccount(ctx context.Context, accountID uuid.UUID) (*storage.Profile, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*storage.Account, error)
	SumIssuancesByProfile(ctx context.Context, profileID uuid.UUID) (decimal.Decimal, decimal.Decimal, error)
	ListShareholderTotals(ctx context.Context) ([]storage.ProfileTotals, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type RegistryService struct {
	store   RegistryStore
	hasher  PasswordHasher
	audit   AuditEmitter
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type CreateShareholderInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	TaxID     string
	RequestMeta
}

// Shareholder is a profile with the account email and current holdings.
type Shareholder = storage.ProfileTotals

func NewRegistryService(store RegistryStore, hasher PasswordHasher, emitter AuditEmitter, logger *slog.Logger, metrics *Metrics) *RegistryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryService{
		store:   store,
		hasher:  hasher,
		audit:   emitterOrNoop(emitter),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *RegistryService) CreateShareholder(ctx context.Context, caller access.Principal, input CreateShareholderInput) (*Shareholder, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if errs := validation.ValidateShareholder(validation.ShareholderFields{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Address:   input.Address,
		TaxID:     input.TaxID,
	}); len(errs) > 0 {
		s.metrics.ObserveShareholder("invalid")
		return nil, invalid(errs)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := validation.NormalizeEmail(input.Email)
	profile, err := s.store.CreateShareholder(ctx, storage.NewShareholder{
		AccountID:    uuid.New(),
		ProfileID:    uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
		TaxID:        strings.TrimSpace(input.TaxID),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			s.metrics.ObserveShareholder("conflict")
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		s.metrics.ObserveShareholder("error")
		return nil, fmt.Errorf("create shareholder: %w", err)
	}
	s.metrics.ObserveShareholder("success")

	s.audit.Emit(ctx, audit.Event{
		ActorID:   caller.AccountID,
		Action:    audit.ActionShareholderCreated,
		Details:   fmt.Sprintf("Created shareholder: %s %s (%s)", profile.FirstName, profile.LastName, email),
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})

	return &Shareholder{Profile: *profile, Email: email, TotalShares: decimal.Zero, TotalValue: decimal.Zero}, nil
}

func (s *RegistryService) ListShareholders(ctx context.Context, caller access.Principal) ([]Shareholder, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	rows, err := s.store.ListShareholderTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shareholders: %w", err)
	}
	return rows, nil
}

// GetOwnProfile returns the caller's profile with its current holdings.
func (s *RegistryService) GetOwnProfile(ctx context.Context, caller access.Principal) (*Shareholder, error) {
	if err := access.RequireShareholder(caller); err != nil {
		return nil, err
	}
	profile, err := s.store.FindProfileByAccount(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: shareholder profile", ErrNotFound)
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	account, err := s.store.GetAccountByID(ctx, caller.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	shares, value, err := s.store.SumIssuancesByProfile(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("sum issuances: %w", err)
	}
	return &Shareholder{
		Profile:     *profile,
		Email:       account.Email,
		TotalShares: shares,
		TotalValue:  value,
	}, nil
}
