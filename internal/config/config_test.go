package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/v1", cfg.EndpointPrefix)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, PaymentSimulated, cfg.PaymentDriver)
	assert.Equal(t, 500*time.Millisecond, cfg.PincodeCheckDelay)
	assert.Equal(t, time.Second, cfg.PaymentDelayCOD)
	assert.Equal(t, 2*time.Second, cfg.PaymentDelayOnline)
	assert.Equal(t, 24*time.Hour, cfg.StatusRefreshInterval)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", StoreMemory)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PAYMENT_DELAY_COD", "10ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Millisecond, cfg.PaymentDelayCOD)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "PAYMENT_DELAY_COD": "soon"}},
		{"postgres without url", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": StorePostgres}},
		{"redis without addr", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": StoreRedis}},
		{"stripe without key", map[string]string{"JWT_SECRET": "x", "PAYMENT_PROVIDER": PaymentStripe}},
		{"unknown store", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "mongo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "test")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
