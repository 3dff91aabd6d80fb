package api_gateway_config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = strings.Repeat("a", 32)
	refreshSecret = strings.Repeat("r", 32)
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", accessSecret)
	t.Setenv("AUTH_REFRESH_SECRET", refreshSecret)
	t.Setenv("AUTH_COOKIE_SECURE", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	pc := cfg.DB.AsPGConfig()
	assert.Contains(t, pc.URL, "/shortly")
	assert.Equal(t, 2*time.Second, pc.QueryTimeout)

	lc := cfg.AsLoggerConfig()
	assert.Equal(t, "shortly/api-gateway", lc.App)
	assert.Equal(t, "dev", lc.Env)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9999"
auth:
  access_secret: "`+accessSecret+`"
  refresh_secret: "`+refreshSecret+`"
  access_ttl: 5m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, accessSecret, string(cfg.Auth.AsCodecConfig().AccessSecret))
}

func TestLoad_CookieSecureFollowsEnv(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", accessSecret)
	t.Setenv("AUTH_REFRESH_SECRET", refreshSecret)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Auth.CookieSecure)

	t.Setenv("APP_ENV", "prod")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.CookieSecure)

	t.Setenv("AUTH_COOKIE_SECURE", "false")
	_, err = Load("")
	var ce ErrConfig
	assert.ErrorAs(t, err, &ce)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DB:   DB{DSN: "postgres://x"},
			Auth: Auth{AccessSecret: accessSecret, RefreshSecret: refreshSecret},
		}
	}
	tests := map[string]func(c *Config){
		"empty dsn":         func(c *Config) { c.DB.DSN = "" },
		"missing secret":    func(c *Config) { c.Auth.RefreshSecret = "" },
		"short secret":      func(c *Config) { c.Auth.AccessSecret = "short" },
		"equal secrets":     func(c *Config) { c.Auth.RefreshSecret = accessSecret },
		"outbox no broker":  func(c *Config) { c.Outbox.Enable = true; c.Kafka.Brokers = nil },
		"prod plain cookie": func(c *Config) { c.App.Env = EnvProd; c.Auth.CookieSecure = false },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			var ce ErrConfig
			assert.ErrorAs(t, c.Validate(), &ce)
		})
	}

	c := valid()
	assert.NoError(t, c.Validate())
}
