package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

const validConfig = `
service_params:
  env: test
  health_address: ":8082"
  stats_poll_secs: 15
  stock_poll_secs: 60

backend_params:
  auth_url: "http://localhost:8081/api/auth"
  cart_url: "http://localhost:8083/api/cart"
  order_url: "http://localhost:8084/api/orders"
  payment_url: "http://localhost:8085/api/payments"
  catalog_url: "http://localhost:8086/api/products"
  timeout_secs: 0

redis_params:
  url: "localhost:6379"
  password: ""

checkout_params:
  shipping_fee: 5.99
  free_shipping_threshold: 50
  currency: "eur"
  pending_max_age_hours: 0
`

func TestNewFromPath(t *testing.T) {
	dir := writeConfig(t, validConfig)

	c, err := NewFromPath(dir)
	require.NoError(t, err)

	assert.Equal(t, "test", c.Service.Env)
	assert.Equal(t, ":8082", c.Service.HealthAddress)
	assert.Equal(t, "http://localhost:8081/api/auth", c.Backends.AuthURL)
	assert.InDelta(t, 5.99, c.Checkout.ShippingFee, 0.001)
	assert.InDelta(t, 50.0, c.Checkout.FreeShippingThreshold, 0.001)
	assert.Equal(t, "eur", c.Checkout.Currency)

	// Нулевой таймаут означает его отсутствие
	assert.Zero(t, c.Backends.HTTPTimeout())
	// Нулевой возраст означает, что запись платежа принимается всегда
	assert.Zero(t, c.Checkout.PendingMaxAge())

	assert.Equal(t, 15*time.Second, c.Service.StatsPollInterval())
	assert.Equal(t, 60*time.Second, c.Service.StockPollInterval())
}

func TestValidationRejectsBadEnv(t *testing.T) {
	dir := writeConfig(t, `
service_params:
  env: staging
  health_address: ":8082"
  stats_poll_secs: 15
  stock_poll_secs: 60

backend_params:
  auth_url: "http://localhost:8081/api/auth"
  cart_url: "http://localhost:8083/api/cart"
  order_url: "http://localhost:8084/api/orders"
  payment_url: "http://localhost:8085/api/payments"
  catalog_url: "http://localhost:8086/api/products"

redis_params:
  url: "localhost:6379"

checkout_params:
  shipping_fee: 5.99
  free_shipping_threshold: 50
  currency: "eur"
`)

	_, err := NewFromPath(dir)
	assert.Error(t, err)
}

func TestValidationRejectsMissingBackendURL(t *testing.T) {
	dir := writeConfig(t, `
service_params:
  env: dev
  health_address: ":8082"
  stats_poll_secs: 15
  stock_poll_secs: 60

backend_params:
  auth_url: "http://localhost:8081/api/auth"
  cart_url: "http://localhost:8083/api/cart"
  order_url: "http://localhost:8084/api/orders"
  payment_url: "not a url"
  catalog_url: "http://localhost:8086/api/products"

redis_params:
  url: "localhost:6379"

checkout_params:
  shipping_fee: 5.99
  free_shipping_threshold: 50
  currency: "eur"
`)

	_, err := NewFromPath(dir)
	assert.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := NewFromPath(t.TempDir())
	assert.Error(t, err)
}

func TestRedisURL(t *testing.T) {
	cases := []struct {
		name   string
		params RedisParams
		want   string
	}{
		{"bare host", RedisParams{URL: "localhost:6379"}, "redis://localhost:6379"},
		{"with scheme", RedisParams{URL: "redis://localhost:6379"}, "redis://localhost:6379"},
		{"with password", RedisParams{URL: "localhost:6379", Password: "secret"}, "redis://:secret@localhost:6379"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.params.RedisURL())
		})
	}
}
