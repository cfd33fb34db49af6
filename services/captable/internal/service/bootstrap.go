package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
	"github.com/google/uuid"
)

type BootstrapStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*storage.Account, error)
	CreateAccount(ctx context.Context, acc storage.Account) error
}

// EnsureAdmin creates the administrator account when it does not exist yet.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, store BootstrapStore, hasher PasswordHasher, email, password string, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, errors.New("bootstrap admin email and password are required")
	}

	existing, err := store.GetAccountByEmail(ctx, email)
	if err == nil {
		if existing.Role != storage.RoleAdmin {
			logger.Warn("bootstrap email belongs to a non-admin account", "email", email)
		}
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	err = store.CreateAccount(ctx, storage.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         storage.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	logger.Info("default admin user created", "email", email)
	return true, nil
}
