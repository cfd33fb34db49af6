package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/rate"
	"github.com/AfshinJalili/captable/services/captable/internal/security"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/google/uuid"
)

type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*storage.Account, error)
}

type PasswordVerifier interface {
	Verify(password, encoded string) (bool, error)
}

type TokenIssuer interface {
	Issue(accountID uuid.UUID, email, role string) (security.AccessToken, error)
}

// RateLimitedError carries how long the client should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

type AuthService struct {
	store    AccountStore
	verifier PasswordVerifier
	tokens   TokenIssuer
	limiter  rate.Limiter
	audit    AuditEmitter
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

type LoginInput struct {
	Email    string
	Password string
	RequestMeta
}

type LoginResult struct {
	AccountID uuid.UUID
	Role      string
	Token     security.AccessToken
}

func NewAuthService(store AccountStore, verifier PasswordVerifier, tokens TokenIssuer, limiter rate.Limiter, emitter AuditEmitter, logger *slog.Logger, metrics *Metrics) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:    store,
		verifier: verifier,
		tokens:   tokens,
		limiter:  limiter,
		audit:    emitterOrNoop(emitter),
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Authenticate exchanges credentials for an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if errs := validation.ValidateCredentials(input.Email, input.Password); len(errs) > 0 {
		s.metrics.ObserveLogin("invalid")
		return nil, invalid(errs)
	}

	if s.limiter != nil {
		allowed, retryAfter, err := s.limiter.Allow(ctx, input.IP, s.now())
		switch {
		case err != nil:
			s.logger.Warn("login rate limiter unavailable", "error", err)
		case !allowed:
			s.metrics.ObserveLogin("rate_limited")
			return nil, &RateLimitedError{RetryAfter: retryAfter}
		}
	}

	email := validation.NormalizeEmail(input.Email)
	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.ObserveLogin("failure")
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	ok, err := s.verifier.Verify(input.Password, account.PasswordHash)
	if err != nil {
		if errors.Is(err, security.ErrInvalidHash) {
			s.logger.Error("stored password hash is malformed", "account_id", account.ID.String())
			s.metrics.ObserveLogin("failure")
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.ObserveLogin("failure")
		return nil, ErrUnauthenticated
	}

	token, err := s.tokens.Issue(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.ObserveLogin("success")

	s.audit.Emit(ctx, audit.Event{
		ActorID:   account.ID,
		Action:    audit.ActionLogin,
		Details:   fmt.Sprintf("User %s logged in successfully", account.Email),
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})

	return &LoginResult{AccountID: account.ID, Role: account.Role, Token: token}, nil
}
