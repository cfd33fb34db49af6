package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/AfshinJalili/captable/services/captable/internal/migrations"
	"github.com/AfshinJalili/captable/services/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func setupStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()
	if os.Getenv("RUN_DB_INTEGRATION") == "" {
		t.Skip("set RUN_DB_INTEGRATION=1 to run")
	}

	pool, err := testutil.SetupTestDB()
	if err != nil {
		t.Skipf("db connection failed: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx := context.Background()
	if err := migrations.Run(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := testutil.CleanupTestData(ctx, pool); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	t.Cleanup(func() { _ = testutil.CleanupTestData(context.Background(), pool) })

	return New(pool), pool
}

func createProfile(t *testing.T, store *Store, email string) *Profile {
	t.Helper()
	p, err := store.CreateShareholder(context.Background(), NewShareholder{
		AccountID:    uuid.New(),
		ProfileID:    uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Smith",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create shareholder: %v", err)
	}
	return p
}

func TestPostgresCreateShareholderDuplicateEmail(t *testing.T) {
	store, _ := setupStore(t)
	createProfile(t, store, "dup@example.com")

	_, err := store.CreateShareholder(context.Background(), NewShareholder{
		AccountID: uuid.New(), ProfileID: uuid.New(), Email: "dup@example.com",
		PasswordHash: "hash", FirstName: "A", LastName: "B", CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPostgresIssuanceRoundTrip(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	p := createProfile(t, store, "jane@example.com")

	price := decimal.RequireFromString("10.5")
	in := NewIssuance{
		ID:                uuid.New(),
		ShareholderID:     p.ID,
		NumberOfShares:    1000,
		PricePerShare:     price,
		TotalValue:        decimal.NewFromInt(1000).Mul(price),
		IssuanceDate:      time.Now().UTC(),
		CertificateNumber: "CERT-20260101-0A1B2C3D",
		Notes:             "seed round",
	}
	created, err := store.CreateIssuance(ctx, in)
	if err != nil {
		t.Fatalf("create issuance: %v", err)
	}
	if !created.TotalValue.Equal(decimal.RequireFromString("10500")) {
		t.Fatalf("expected total 10500, got %s", created.TotalValue)
	}

	in.ID = uuid.New()
	if _, err := store.CreateIssuance(ctx, in); !errors.Is(err, ErrDuplicateCertificate) {
		t.Fatalf("expected ErrDuplicateCertificate, got %v", err)
	}

	in.ID = uuid.New()
	in.ShareholderID = uuid.New()
	in.CertificateNumber = "CERT-20260101-FFFFFFFF"
	if _, err := store.CreateIssuance(ctx, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := store.GetIssuance(ctx, created.ID)
	if err != nil {
		t.Fatalf("get issuance: %v", err)
	}
	if got.Notes != "seed round" || got.CertificateNumber != "CERT-20260101-0A1B2C3D" {
		t.Fatalf("unexpected issuance %+v", got)
	}

	mine, err := store.ListIssuancesByProfile(ctx, p.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1 issuance for profile, got %d (%v)", len(mine), err)
	}

	totals, err := store.SumIssuances(ctx)
	if err != nil {
		t.Fatalf("sum issuances: %v", err)
	}
	if !totals.Shares.Equal(decimal.NewFromInt(1000)) || !totals.Value.Equal(decimal.RequireFromString("10500")) {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestPostgresShareholderTotalsLeftJoin(t *testing.T) {
	store, _ := setupStore(t)
	createProfile(t, store, "empty@example.com")

	rows, err := store.ListShareholderTotals(context.Background())
	if err != nil {
		t.Fatalf("list totals: %v", err)
	}
	if len(rows) != 1 || !rows[0].TotalShares.IsZero() || !rows[0].TotalValue.IsZero() {
		t.Fatalf("expected one zero-total row, got %+v", rows)
	}
}

func TestPostgresShareTotalsBeyondInt64(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com"} {
		p := createProfile(t, store, email)
		_, err := store.CreateIssuance(ctx, NewIssuance{
			ID:                uuid.New(),
			ShareholderID:     p.ID,
			NumberOfShares:    5_000_000_000_000_000_000,
			PricePerShare:     decimal.Zero,
			TotalValue:        decimal.Zero,
			IssuanceDate:      time.Now().UTC(),
			CertificateNumber: "CERT-20260101-0000000" + string(rune('A'+i)),
		})
		if err != nil {
			t.Fatalf("create issuance: %v", err)
		}
	}

	totals, err := store.SumIssuances(ctx)
	if err != nil {
		t.Fatalf("sum issuances: %v", err)
	}
	if !totals.Shares.Equal(decimal.RequireFromString("10000000000000000000")) {
		t.Fatalf("unexpected share total %s", totals.Shares)
	}
}
