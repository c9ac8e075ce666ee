package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.Interval)
	assert.False(t, cfg.Cloudinary.Enabled())
	assert.False(t, cfg.Payment.GatewayConfigured())
}

func TestLoadFile_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  dsn: crowdfund.db
payment:
  key_id: rzp_test_1
  key_secret: from-file
reconcile:
  interval: 2m
`), 0o600))
	t.Setenv("CROWDFUND_PAYMENT_KEY_SECRET", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Payment.KeySecret)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.Interval)
	assert.True(t, cfg.Payment.GatewayConfigured())
}

func TestLoadFile_MissingExplicitPath(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGatewayConfigured_Stub(t *testing.T) {
	assert.True(t, PaymentConfig{Provider: "stub", KeySecret: "s"}.GatewayConfigured())
	assert.False(t, PaymentConfig{Provider: "stub"}.GatewayConfigured())
	assert.False(t, PaymentConfig{Provider: "razorpay", KeySecret: "s"}.GatewayConfigured())
}
