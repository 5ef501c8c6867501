// Package tickets mints ticket codes and turns them into QR images and back.
package tickets

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix starts every ticket code.
const Prefix = "TIX-"

// TIX-<8 hex, 32 random bits>-<unix millis in base36>
var codePattern = regexp.MustCompile(`^TIX-[0-9A-F]{8}-[0-9A-Z]{1,13}$`)

// Minter issues ticket codes.
type Minter struct {
	now  func() time.Time
	rand io.Reader
}

// NewMinter returns a Minter backed by crypto/rand and the wall clock.
func NewMinter() *Minter {
	return &Minter{now: time.Now, rand: rand.Reader}
}

// Mint returns a new code such as TIX-AB12CD34-LX3F9K2A.
func (m *Minter) Mint() (string, error) {
	id, err := uuid.NewRandomFromReader(m.rand)
	if err != nil {
		return "", fmt.Errorf("random segment: %w", err)
	}
	random := strings.ToUpper(id.String()[:8])
	stamp := strings.ToUpper(strconv.FormatInt(m.now().UnixMilli(), 36))
	return Prefix + random + "-" + stamp, nil
}

// Normalize trims whitespace and uppercases a scanned or typed code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsWellFormed reports whether code has the ticket code shape.
func IsWellFormed(code string) bool {
	return codePattern.MatchString(code)
}
