package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080"},
		Store:     StoreConfig{Driver: DriverMongoDB},
		MongoDB:   MongoDBConfig{URI: "mongodb://localhost:27017/?replicaSet=rs0", DBName: "cycleshop"},
		Auth:      AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		WhatsApp:  WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
		Reporting: ReportingConfig{CronSchedule: "0 20 * * *", AuditSchedule: "30 23 * * *", Timezone: "Asia/Kolkata"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory driver needs no mongo", mutate: func(c *Config) {
			c.Store.Driver = DriverMemory
			c.MongoDB = MongoDBConfig{}
		}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "APP_PORT"},
		{name: "missing mongo uri", mutate: func(c *Config) { c.MongoDB.URI = "" }, wantErr: "MONGODB_URI"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "STORE_DRIVER"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "partial whatsapp", mutate: func(c *Config) { c.WhatsApp.AccessToken = "token" }, wantErr: "WHATSAPP_PHONE_NUMBER_ID"},
		{name: "complete whatsapp", mutate: func(c *Config) {
			c.WhatsApp.AccessToken = "token"
			c.WhatsApp.PhoneNumberID = "123"
			c.WhatsApp.VerifyToken = "verify"
		}},
		{name: "half configured sheets", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{name: "bad report cron", mutate: func(c *Config) { c.Reporting.CronSchedule = "every day" }, wantErr: "REPORT_CRON_SCHEDULE"},
		{name: "bad audit cron", mutate: func(c *Config) { c.Reporting.AuditSchedule = "* * *" }, wantErr: "AUDIT_CRON_SCHEDULE"},
		{name: "bad timezone", mutate: func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "redis without lock wait", mutate: func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Redis.LockTTL = time.Second
		}, wantErr: "LOCK_WAIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "STORE_DRIVER=memory\nJWT_SECRET=s3cret\nJWT_TTL=2h\nCORS_ALLOW_ORIGINS=http://a.test, http://b.test\nREDIS_DB=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	for _, key := range []string{"STORE_DRIVER", "JWT_SECRET", "JWT_TTL", "CORS_ALLOW_ORIGINS", "REDIS_DB"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowOrigins)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "forever")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_TTL")
}
