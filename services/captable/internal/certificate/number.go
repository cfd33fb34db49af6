package certificate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	numberPrefix = "CERT"
	dateLayout   = "20060102"
	suffixLength = 8
)

var (
	ErrInvalidNumber = errors.New("invalid certificate number")
	numberPattern    = regexp.MustCompile(`^CERT-(\d{8})-([0-9A-F]{8})$`)
)

// NumberGenerator mints CERT-YYYYMMDD-XXXXXXXX identifiers. Uniqueness is
// probabilistic; the ledger retries on the rare storage collision.
type NumberGenerator struct {
	random func() uuid.UUID
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{random: uuid.New}
}

// NewNumberGeneratorWith lets tests pin the random source.
func NewNumberGeneratorWith(random func() uuid.UUID) *NumberGenerator {
	return &NumberGenerator{random: random}
}

func (g *NumberGenerator) Next(now time.Time) string {
	id := g.random()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:suffixLength])
	return fmt.Sprintf("%s-%s-%s", numberPrefix, now.UTC().Format(dateLayout), suffix)
}

// ParseNumber validates the format and returns the embedded issue date.
func ParseNumber(number string) (time.Time, error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	day, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	return day, nil
}
