package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/lock"
	"github.com/mamadbah2/cycleshop/internal/repository/memory"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "8080"},
		Store:     config.StoreConfig{Driver: config.DriverMemory},
		Auth:      config.AuthConfig{JWTSecret: "s", Issuer: "cycleshop", TokenTTL: time.Hour},
		WhatsApp:  config.WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * *", AuditSchedule: "30 23 * * *", Timezone: "UTC"},
	}
}

func TestNew_Memory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close(context.Background())) }()

	assert.IsType(t, &memory.Store{}, a.Store)
	assert.IsType(t, lock.Noop{}, a.Locker)
	assert.Nil(t, a.Messaging)

	h := a.Handlers()
	assert.NotNil(t, h.Invoices)
	assert.NotNil(t, h.Ledger)
	assert.Nil(t, h.Webhook)
}

func TestNew_WhatsAppEnabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.WhatsApp.AccessToken = "token"
	cfg.WhatsApp.PhoneNumberID = "123"
	cfg.WhatsApp.VerifyToken = "verify"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.NotNil(t, a.Messaging)
	assert.NotNil(t, a.Handlers().Webhook)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "sqlite"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown store driver")
}
