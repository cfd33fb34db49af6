package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AfshinJalili/captable/libs/auth"
	"github.com/google/uuid"
)

var fastParams = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(fastParams)
	encoded, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %s", encoded)
	}

	ok, err := h.Verify("password123", encoded)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, got ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-password", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}

	other, _ := h.Hash("password123")
	if other == encoded {
		t.Fatalf("expected random salt to change the hash")
	}
}

func TestVerifyUsesStoredParams(t *testing.T) {
	encoded, err := NewHasher(fastParams).Hash("secret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	stronger := NewHasher(Argon2Params{Memory: 2048, Iterations: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if ok, err := stronger.Verify("secret-pass", encoded); err != nil || !ok {
		t.Fatalf("expected verify with stored params, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h := NewHasher(fastParams)
	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=19$m=x$a$b"} {
		if _, err := h.Verify("x", bad); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", bad, err)
		}
	}
}

func TestTokenIssuer(t *testing.T) {
	secret := []byte("secret")
	issuer := NewTokenIssuer(secret, "captable", 30*time.Minute)
	id := uuid.New()

	tok, err := issuer.Issue(id, "jane@example.com", "shareholder")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.ExpiresIn != 1800 {
		t.Fatalf("expected 1800s expiry, got %d", tok.ExpiresIn)
	}

	claims, err := auth.ParseJWT(tok.Token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != id.String() || claims.Role() != "shareholder" || claims.Issuer != "captable" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}
