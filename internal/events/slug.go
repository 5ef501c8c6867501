package events

import (
	"crypto/rand"
	"io"
	"math/big"
	"regexp"
	"strings"
)

const slugSuffixLen = 6

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s]`)
	slugSpaces = regexp.MustCompile(`\s+`)
)

// Slugify turns a title into a URL slug with a random base36 suffix,
// e.g. "Tech Meetup Jakarta" -> "tech-meetup-jakarta-k3x9qa".
func Slugify(title string) (string, error) {
	return slugify(title, rand.Reader)
}

func slugify(title string, r io.Reader) (string, error) {
	base := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	base = strings.Trim(slugSpaces.ReplaceAllString(strings.TrimSpace(base), "-"), "-")
	if base == "" {
		base = "event"
	}
	if len(base) > 80 {
		base = strings.TrimRight(base[:80], "-")
	}
	max := new(big.Int).Exp(big.NewInt(36), big.NewInt(slugSuffixLen), nil)
	n, err := rand.Int(r, max)
	if err != nil {
		return "", err
	}
	suffix := n.Text(36)
	suffix = strings.Repeat("0", slugSuffixLen-len(suffix)) + suffix
	return base + "-" + suffix, nil
}
