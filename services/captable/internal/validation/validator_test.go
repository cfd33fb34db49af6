package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func hasField(errs ValidationErrors, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateIssuance(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		id     uuid.UUID
		shares int64
		price  string
		notes  string
		field  string
	}{
		{"valid", id, 1000, "10.50", "", ""},
		{"zero price allowed", id, 1, "0", "", ""},
		{"zero shares", id, 0, "1", "", "number_of_shares"},
		{"negative shares", id, -5, "1", "", "number_of_shares"},
		{"negative price", id, 10, "-0.01", "", "price_per_share"},
		{"too precise price", id, 10, "1.00001", "", "price_per_share"},
		{"trailing zeros ok", id, 10, "1.500000", "", ""},
		{"missing shareholder", uuid.Nil, 10, "1", "", "shareholder_id"},
		{"long notes", id, 10, "1", strings.Repeat("n", MaxNotesLength+1), "notes"},
		{"max price", id, 1, "9999999999999999.9999", "", ""},
		{"price above column precision", id, 1, "10000000000000000", "", "price_per_share"},
		{"max shares at zero price", id, math.MaxInt64, "0", "", ""},
		{"total at column limit", id, 1_000_000_000_000, "9999999999999999.9999", "", ""},
		{"total above column precision", id, 10_000_000_000_000, "9999999999999999.9999", "", "number_of_shares"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateIssuance(tc.id, tc.shares, decimal.RequireFromString(tc.price), tc.notes)
			if tc.field == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if !hasField(errs, tc.field) {
				t.Fatalf("expected error on %s, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateShareholder(t *testing.T) {
	valid := ShareholderFields{
		Email:     "jane@example.com",
		Password:  "password123",
		FirstName: "Jane",
		LastName:  "Smith",
	}
	if errs := ValidateShareholder(valid); len(errs) != 0 {
		t.Fatalf("expected valid shareholder, got %v", errs)
	}

	bad := ShareholderFields{Email: "not-an-email", Password: "short", FirstName: " ", LastName: ""}
	errs := ValidateShareholder(bad)
	for _, field := range []string{"email", "password", "first_name", "last_name"} {
		if !hasField(errs, field) {
			t.Fatalf("expected error on %s, got %v", field, errs)
		}
	}
	if !strings.Contains(errs.Error(), "password") {
		t.Fatalf("expected error string to name fields, got %q", errs.Error())
	}
}

func TestParseAuditLimit(t *testing.T) {
	if n, errs := ParseAuditLimit(""); n != DefaultAuditLimit || errs != nil {
		t.Fatalf("expected default limit, got %d %v", n, errs)
	}
	if n, errs := ParseAuditLimit("1000"); n != 1000 || errs != nil {
		t.Fatalf("expected 1000, got %d %v", n, errs)
	}
	for _, raw := range []string{"0", "1001", "-1", "abc"} {
		if _, errs := ParseAuditLimit(raw); len(errs) == 0 {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	got, errs := ParseID("id", id.String())
	if errs != nil || got != id {
		t.Fatalf("expected %s, got %s %v", id, got, errs)
	}
	if _, errs := ParseID("id", "42"); len(errs) == 0 {
		t.Fatalf("expected error for non-uuid id")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane@Example.COM "); got != "jane@example.com" {
		t.Fatalf("unexpected %q", got)
	}
}
