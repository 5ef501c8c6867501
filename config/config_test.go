package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "tix")
	t.Setenv("SCAN_COOLDOWN_MS", "1500")
	t.Setenv("APP_URL", "https://tixora.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://postgres:postgres@db:5432/tix?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 1500*time.Millisecond, cfg.Ticket.ScanCooldown)
	assert.Equal(t, "https://tixora.example", cfg.Server.AppURL)
}

func TestLoadRejectsTinyQRSize(t *testing.T) {
	t.Setenv("TICKET_QR_SIZE", "10")

	_, err := Load()
	assert.Error(t, err)
}
