package testutil

import (
	"time"

	"github.com/AfshinJalili/captable/libs/auth"
	"github.com/google/uuid"
)

var (
	AdminUserID       = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	ShareholderUserID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func GenerateJWT(userID uuid.UUID, role string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	token, _, err := auth.SignJWT(auth.TokenParams{
		Subject: userID.String(),
		Role:    role,
		Issuer:  "captable",
		TTL:     ttl,
		Now:     now,
	}, secret)
	return token, err
}
