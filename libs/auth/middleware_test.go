package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(secret))
	r.GET("/me", func(c *gin.Context) {
		id, role := Subject(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	return r
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	r := newRouter([]byte("secret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("expected bearer challenge header")
	}
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	secret := []byte("secret")
	r := newRouter(secret)

	signed, _, err := SignJWT(TokenParams{Subject: "user-123", Role: "admin", TTL: time.Hour}, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"id":"user-123","role":"admin"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestMiddlewareRejectsTokenWithoutRole(t *testing.T) {
	secret := []byte("secret")
	r := newRouter(secret)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestParseJWTRejectsExpiredAndForeignSecret(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	expired, _, err := SignJWT(TokenParams{Subject: "u", Role: "admin", TTL: time.Minute, Now: past}, []byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(expired, []byte("secret")); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	valid, _, err := SignJWT(TokenParams{Subject: "u", Role: "admin", TTL: time.Minute}, []byte("other"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT(valid, []byte("secret")); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestExtractBearer(t *testing.T) {
	if got := ExtractBearer("bearer abc "); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := ExtractBearer("Basic abc"); got != "" {
		t.Fatalf("expected empty for basic auth, got %q", got)
	}
}
