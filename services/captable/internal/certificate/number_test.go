package certificate

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNextFormat(t *testing.T) {
	fixed := uuid.MustParse("0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
	gen := NewNumberGeneratorWith(func() uuid.UUID { return fixed })

	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	got := gen.Next(now)
	if got != "CERT-20260310-0A1B2C3D" {
		t.Fatalf("unexpected number %s", got)
	}

	day, err := ParseNumber(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !day.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %s", day)
	}
}

func TestNextDistinct(t *testing.T) {
	gen := NewNumberGenerator()
	now := time.Now()
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		n := gen.Next(now)
		if _, err := ParseNumber(n); err != nil {
			t.Fatalf("generated invalid number %s: %v", n, err)
		}
		if _, dup := seen[n]; dup {
			t.Fatalf("duplicate number %s after %d draws", n, i)
		}
		seen[n] = struct{}{}
	}
}

func TestParseNumberRejects(t *testing.T) {
	for _, bad := range []string{"", "CERT-2026-ABCDEFGH", "CERT-20260101-abcdef12", "CERT-20261301-ABCDEF12", "INV-20260101-ABCDEF12"} {
		if _, err := ParseNumber(bad); !errors.Is(err, ErrInvalidNumber) {
			t.Fatalf("expected ErrInvalidNumber for %q, got %v", bad, err)
		}
	}
}
