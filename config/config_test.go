package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_DIR", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.ProfileFetch)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Failsafe)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "restobar.yaml")
	yml := `
port: "9000"
jwt_secret: from-file
realtime:
  broker: nats
  nats_url: nats://queue:4222
timeouts:
  profile_fetch: 2s
  shift_check: 4s
  failsafe: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "https://pos.example.com, http://localhost:3000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "nats", cfg.Realtime.Broker)
	assert.Equal(t, "nats://queue:4222", cfg.Realtime.NATSURL)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.ProfileFetch)
	assert.Equal(t, []string{"http://localhost:3000", "https://pos.example.com"}, cfg.AllowedOrigins)
}

func TestValidateRejectsUnknownBroker(t *testing.T) {
	cfg := Default()
	cfg.Realtime.Broker = "kafka"
	assert.Error(t, cfg.Validate())
}
