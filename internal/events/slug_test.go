package events

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9-]+-[0-9a-z]{6}$`)
	tests := []struct {
		title string
		base  string
	}{
		{"Tech Meetup Jakarta", "tech-meetup-jakarta-"},
		{"  Workshop: Go & Cloud!! ", "workshop-go-cloud-"},
		{"Festival   Musik  2025", "festival-musik-2025-"},
		{"¡¡¡", "event-"},
	}
	for _, tt := range tests {
		slug, err := Slugify(tt.title)
		require.NoError(t, err)
		assert.True(t, pattern.MatchString(slug), slug)
		assert.Equal(t, tt.base, slug[:len(slug)-6])
	}
}

func TestSlugifyPadsSuffix(t *testing.T) {
	slug, err := slugify("Meetup", bytes.NewReader(make([]byte, 64)))
	require.NoError(t, err)
	assert.Equal(t, "meetup-000000", slug)
}
