package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/AfshinJalili/captable/libs/logging"
	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/config"
	"github.com/AfshinJalili/captable/services/captable/internal/migrations"
	"github.com/AfshinJalili/captable/services/captable/internal/security"
	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

const (
	demoEmail    = "shareholder@company.com"
	demoPassword = "shareholder123"
)

func main() {
	configPath := pflag.String("config", os.Getenv("CAPTABLE_CONFIG"), "path to the YAML config file")
	withIssuances := pflag.Bool("with-issuances", false, "also record sample issuances for the demo shareholder")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.App.IsDev() {
		log.Fatalf("refusing to seed: env must be 'dev' or 'test' (got '%s')", cfg.App.Env)
	}
	if cfg.DB.Driver != config.DriverPostgres {
		log.Fatalf("refusing to seed: db.driver must be %q (got %q)", config.DriverPostgres, cfg.DB.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	if err := migrations.Run(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, "captable-seed", cfg.App.Env)
	store := storage.New(pool)
	hasher := security.NewHasher(security.Argon2Params(cfg.Argon2))

	fmt.Println("Seeding database...")

	if _, err := service.EnsureAdmin(ctx, store, hasher, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, logger); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	fmt.Println("✓ Admin seeded")

	admin, err := store.GetAccountByEmail(ctx, cfg.Bootstrap.AdminEmail)
	if err != nil {
		log.Fatalf("load admin: %v", err)
	}
	caller := access.Principal{AccountID: admin.ID, Role: access.RoleAdmin}

	profile, err := seedShareholder(ctx, store, hasher, caller, logger)
	if err != nil {
		log.Fatalf("seed shareholder: %v", err)
	}
	fmt.Println("✓ Demo shareholder seeded")

	if *withIssuances {
		if err := seedIssuances(ctx, store, caller, profile, cfg.Certificate.MaxAttempts, logger); err != nil {
			log.Fatalf("seed issuances: %v", err)
		}
		fmt.Println("✓ Sample issuances seeded")
	}

	fmt.Println()
	fmt.Println("Accounts:")
	fmt.Printf("  admin:       %s / %s\n", cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
	fmt.Printf("  shareholder: %s / %s\n", demoEmail, demoPassword)
}

func seedShareholder(ctx context.Context, store *storage.Store, hasher *security.Hasher, caller access.Principal, logger *slog.Logger) (*storage.Profile, error) {
	registry := service.NewRegistryService(store, hasher, nil, logger, nil)
	created, err := registry.CreateShareholder(ctx, caller, service.CreateShareholderInput{
		Email:     demoEmail,
		Password:  demoPassword,
		FirstName: "John",
		LastName:  "Doe",
		Phone:     "+1234567890",
		Address:   "123 Main St, City, Country",
		TaxID:     "TAX123456",
	})
	if err == nil {
		return &created.Profile, nil
	}
	if !errors.Is(err, service.ErrConflict) {
		return nil, err
	}

	account, err := store.GetAccountByEmail(ctx, demoEmail)
	if err != nil {
		return nil, err
	}
	return store.FindProfileByAccount(ctx, account.ID)
}
