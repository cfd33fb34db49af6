package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AfshinJalili/captable/libs/logging"
	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/audit"
	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func newLedger(store LedgerStore, minter NumberMinter, emitter AuditEmitter, metrics *Metrics) (*LedgerService, *stubRenderer) {
	renderer := &stubRenderer{}
	return NewLedgerService(store, minter, renderer, certificate.FormatPDF, emitter, logging.Discard(), metrics, 3), renderer
}

func TestCreateIssuanceComputesExactTotal(t *testing.T) {
	tests := []struct {
		name   string
		shares int64
		price  string
		total  string
	}{
		{name: "whole price", shares: 1000, price: "10", total: "10000"},
		{name: "cents", shares: 1000, price: "10.50", total: "10500"},
		{name: "four places", shares: 3, price: "0.3333", total: "0.9999"},
		{name: "tiny price", shares: 1000000, price: "0.0001", total: "100"},
		{name: "zero price", shares: 5, price: "0", total: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemory()
			_, profile := seedShareholder(t, store, "Jane", "Smith")
			ledger, _ := newLedger(store, nil, nil, nil)

			issuance, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), CreateIssuanceInput{
				ShareholderID:  profile.ID,
				NumberOfShares: tc.shares,
				PricePerShare:  decimal.RequireFromString(tc.price),
			})
			if err != nil {
				t.Fatalf("create issuance: %v", err)
			}
			want := decimal.RequireFromString(tc.total)
			if !issuance.TotalValue.Equal(want) {
				t.Fatalf("expected total %s, got %s", want, issuance.TotalValue)
			}
			if _, err := certificate.ParseNumber(issuance.CertificateNumber); err != nil {
				t.Fatalf("expected well-formed certificate number, got %q", issuance.CertificateNumber)
			}
		})
	}
}

func TestCreateIssuanceRejectsInvalidInputBeforeStorage(t *testing.T) {
	tests := []struct {
		name   string
		shares int64
		price  string
		field  string
	}{
		{name: "zero shares", shares: 0, price: "1", field: "number_of_shares"},
		{name: "negative shares", shares: -5, price: "1", field: "number_of_shares"},
		{name: "negative price", shares: 10, price: "-0.01", field: "price_per_share"},
		{name: "too precise", shares: 10, price: "0.00001", field: "price_per_share"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mem := storage.NewMemory()
			_, profile := seedShareholder(t, mem, "Jane", "Smith")
			store := &countingStore{MemoryStore: mem}
			ledger, _ := newLedger(store, nil, nil, nil)

			_, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), CreateIssuanceInput{
				ShareholderID:  profile.ID,
				NumberOfShares: tc.shares,
				PricePerShare:  decimal.RequireFromString(tc.price),
			})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			fields := FieldErrors(err)
			if len(fields) == 0 || fields[0].Field != tc.field {
				t.Fatalf("expected field error on %s, got %+v", tc.field, fields)
			}
			if store.creates != 0 {
				t.Fatalf("expected no storage writes, got %d", store.creates)
			}
		})
	}
}

func TestCreateIssuanceMissingShareholder(t *testing.T) {
	store := storage.NewMemory()
	emitter := &recordEmitter{}
	ledger, _ := newLedger(store, nil, emitter, nil)

	_, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), CreateIssuanceInput{
		ShareholderID:  uuid.New(),
		NumberOfShares: 10,
		PricePerShare:  decimal.NewFromInt(1),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	all, _ := store.ListIssuances(context.Background())
	if len(all) != 0 {
		t.Fatalf("expected nothing persisted, got %d issuances", len(all))
	}
	if len(emitter.all()) != 0 {
		t.Fatalf("expected no audit event")
	}
}

func TestCreateIssuanceRequiresAdmin(t *testing.T) {
	store := storage.NewMemory()
	caller, profile := seedShareholder(t, store, "Jane", "Smith")
	ledger, _ := newLedger(store, nil, nil, nil)
	input := CreateIssuanceInput{ShareholderID: profile.ID, NumberOfShares: 10, PricePerShare: decimal.NewFromInt(1)}

	if _, err := ledger.CreateIssuance(context.Background(), caller, input); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for shareholder, got %v", err)
	}
	if _, err := ledger.CreateIssuance(context.Background(), access.Principal{}, input); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for anonymous caller, got %v", err)
	}
}

func TestCreateIssuanceEmitsAudit(t *testing.T) {
	store := storage.NewMemory()
	_, profile := seedShareholder(t, store, "Jane", "Smith")
	emitter := &recordEmitter{}
	ledger, _ := newLedger(store, nil, emitter, nil)
	admin := adminPrincipal()

	_, err := ledger.CreateIssuance(context.Background(), admin, CreateIssuanceInput{
		ShareholderID:  profile.ID,
		NumberOfShares: 1000,
		PricePerShare:  decimal.RequireFromString("10.50"),
		RequestMeta:    RequestMeta{IP: "10.0.0.1", UserAgent: "test"},
	})
	if err != nil {
		t.Fatalf("create issuance: %v", err)
	}

	events := emitter.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	ev := events[0]
	if ev.Action != audit.ActionShareIssuance || ev.ActorID != admin.AccountID {
		t.Fatalf("unexpected audit event %+v", ev)
	}
	want := "Issued 1000 shares to shareholder ID " + profile.ID.String()
	if ev.Details != want {
		t.Fatalf("expected details %q, got %q", want, ev.Details)
	}
	if ev.IP != "10.0.0.1" {
		t.Fatalf("expected ip recorded, got %q", ev.IP)
	}
}

func TestCreateIssuanceDistinctCertificates(t *testing.T) {
	store := storage.NewMemory()
	_, profile := seedShareholder(t, store, "Jane", "Smith")
	ledger, _ := newLedger(store, nil, nil, nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		issuance, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), CreateIssuanceInput{
			ShareholderID:  profile.ID,
			NumberOfShares: 1,
			PricePerShare:  decimal.NewFromInt(1),
		})
		if err != nil {
			t.Fatalf("create issuance %d: %v", i, err)
		}
		if seen[issuance.CertificateNumber] {
			t.Fatalf("duplicate certificate number %s", issuance.CertificateNumber)
		}
		seen[issuance.CertificateNumber] = true
	}
}

func TestCreateIssuanceRetriesCertificateCollision(t *testing.T) {
	store := storage.NewMemory()
	_, profile := seedShareholder(t, store, "Jane", "Smith")
	minter := &fixedMinter{numbers: []string{"CERT-20240101-AAAAAAAA", "CERT-20240101-AAAAAAAA", "CERT-20240101-BBBBBBBB"}}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	ledger, _ := newLedger(store, minter, nil, metrics)
	input := CreateIssuanceInput{ShareholderID: profile.ID, NumberOfShares: 1, PricePerShare: decimal.NewFromInt(1)}

	if _, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), input); err != nil {
		t.Fatalf("first issuance: %v", err)
	}
	second, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), input)
	if err != nil {
		t.Fatalf("second issuance: %v", err)
	}
	if second.CertificateNumber != "CERT-20240101-BBBBBBBB" {
		t.Fatalf("expected retried number, got %s", second.CertificateNumber)
	}
	if got := testutil.ToFloat64(metrics.CertificateConflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.SharesIssued); got != 2 {
		t.Fatalf("expected 2 shares issued, got %v", got)
	}
}

func TestCreateIssuanceCollisionExhausted(t *testing.T) {
	store := storage.NewMemory()
	_, profile := seedShareholder(t, store, "Jane", "Smith")
	minter := &fixedMinter{numbers: []string{"CERT-20240101-AAAAAAAA"}}
	ledger, _ := newLedger(store, minter, nil, nil)
	input := CreateIssuanceInput{ShareholderID: profile.ID, NumberOfShares: 1, PricePerShare: decimal.NewFromInt(1)}

	if _, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), input); err != nil {
		t.Fatalf("first issuance: %v", err)
	}
	_, err := ledger.CreateIssuance(context.Background(), adminPrincipal(), input)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if minter.calls != 4 {
		t.Fatalf("expected 1 + 3 mint attempts, got %d", minter.calls)
	}
	all, _ := store.ListIssuances(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected only the first issuance persisted, got %d", len(all))
	}
}

func TestShareholderIsolation(t *testing.T) {
	store := storage.NewMemory()
	jane, janeProfile := seedShareholder(t, store, "Jane", "Smith")
	john, johnProfile := seedShareholder(t, store, "John", "Doe")
	ledger, renderer := newLedger(store, nil, nil, nil)
	admin := adminPrincipal()
	ctx := context.Background()

	janeIssuance, err := ledger.CreateIssuance(ctx, admin, CreateIssuanceInput{ShareholderID: janeProfile.ID, NumberOfShares: 1000, PricePerShare: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("issue to jane: %v", err)
	}
	johnIssuance, err := ledger.CreateIssuance(ctx, admin, CreateIssuanceInput{ShareholderID: johnProfile.ID, NumberOfShares: 500, PricePerShare: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("issue to john: %v", err)
	}

	mine, err := ledger.ListForShareholder(ctx, jane)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != janeIssuance.ID {
		t.Fatalf("expected only jane's issuance, got %+v", mine)
	}

	if _, err := ledger.OwnCertificate(ctx, jane, johnIssuance.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for foreign certificate, got %v", err)
	}
	if _, err := ledger.OwnCertificate(ctx, jane, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for missing certificate, got %v", err)
	}

	doc, err := ledger.OwnCertificate(ctx, john, johnIssuance.ID)
	if err != nil {
		t.Fatalf("own certificate: %v", err)
	}
	if !strings.Contains(doc.Filename, johnIssuance.CertificateNumber) {
		t.Fatalf("expected filename with certificate number, got %q", doc.Filename)
	}
	if renderer.last.HolderName != "John Doe" || renderer.last.Shares != 500 {
		t.Fatalf("unexpected certificate data %+v", renderer.last)
	}

	if _, err := ledger.ListAll(ctx, jane); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden list all for shareholder, got %v", err)
	}
	if _, err := ledger.ListForShareholder(ctx, admin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden own list for admin, got %v", err)
	}
	if _, err := ledger.Certificate(ctx, jane, janeIssuance.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden admin certificate for shareholder, got %v", err)
	}
}

func TestAdminCertificate(t *testing.T) {
	store := storage.NewMemory()
	_, profile := seedShareholder(t, store, "Jane", "Smith")
	ledger, renderer := newLedger(store, nil, nil, nil)
	ctx := context.Background()
	admin := adminPrincipal()

	issuance, err := ledger.CreateIssuance(ctx, admin, CreateIssuanceInput{ShareholderID: profile.ID, NumberOfShares: 1000, PricePerShare: decimal.RequireFromString("10.50")})
	if err != nil {
		t.Fatalf("create issuance: %v", err)
	}
	if _, err := ledger.Certificate(ctx, admin, issuance.ID); err != nil {
		t.Fatalf("certificate: %v", err)
	}
	if !renderer.last.TotalValue.Equal(decimal.NewFromInt(10500)) {
		t.Fatalf("expected total 10500, got %s", renderer.last.TotalValue)
	}
	if _, err := ledger.Certificate(ctx, admin, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// orphanStore loses every profile after issuances are written.
type orphanStore struct {
	*storage.MemoryStore
}

func (orphanStore) GetProfileByID(context.Context, uuid.UUID) (*storage.Profile, error) {
	return nil, storage.ErrNotFound
}

func TestAdminCertificateMissingProfile(t *testing.T) {
	store := storage.NewMemory()
	_, profile := seedShareholder(t, store, "Jane", "Smith")
	writer, _ := newLedger(store, nil, nil, nil)
	ctx := context.Background()

	issuance, err := writer.CreateIssuance(ctx, adminPrincipal(), CreateIssuanceInput{ShareholderID: profile.ID, NumberOfShares: 10, PricePerShare: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create issuance: %v", err)
	}

	reader, renderer := newLedger(orphanStore{store}, nil, nil, nil)
	if _, err := reader.Certificate(ctx, adminPrincipal(), issuance.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if renderer.last.Number != "" {
		t.Fatalf("expected nothing rendered, got %+v", renderer.last)
	}
}

func TestListForShareholderWithoutProfile(t *testing.T) {
	ledger, _ := newLedger(storage.NewMemory(), nil, nil, nil)
	_, err := ledger.ListForShareholder(context.Background(), shareholderPrincipal(uuid.New()))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
