package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Константы для ключей конфигурации
const (
	envKey           = "service_params.env"
	authURLKey       = "backend_params.auth_url"
	cartURLKey       = "backend_params.cart_url"
	orderURLKey      = "backend_params.order_url"
	paymentURLKey    = "backend_params.payment_url"
	catalogURLKey    = "backend_params.catalog_url"
	httpTimeoutKey   = "backend_params.timeout_secs"
	redisURLKey      = "redis_params.url"
	redisPasswordKey = "redis_params.password"
	shippingFeeKey   = "checkout_params.shipping_fee"
	freeShippingKey  = "checkout_params.free_shipping_threshold"
	currencyKey      = "checkout_params.currency"
	pendingMaxAgeKey = "checkout_params.pending_max_age_hours"
	healthAddressKey = "service_params.health_address"
	statsIntervalKey = "service_params.stats_poll_secs"
	stockIntervalKey = "service_params.stock_poll_secs"
)

// AppConfig представляет конфигурацию всего приложения
type AppConfig struct {
	Service  ServiceParams  `mapstructure:"service_params" validate:"required"`
	Backends BackendParams  `mapstructure:"backend_params" validate:"required"`
	Redis    RedisParams    `mapstructure:"redis_params" validate:"required"`
	Checkout CheckoutParams `mapstructure:"checkout_params" validate:"required"`
}

// ServiceParams содержит общие параметры приложения
type ServiceParams struct {
	Env           string `mapstructure:"env" validate:"required,oneof=dev prod test"`
	HealthAddress string `mapstructure:"health_address" validate:"required"`
	StatsPollSecs int    `mapstructure:"stats_poll_secs" validate:"required,min=1"`
	StockPollSecs int    `mapstructure:"stock_poll_secs" validate:"required,min=1"`
}

// BackendParams содержит адреса REST-бэкендов платформы
type BackendParams struct {
	AuthURL    string `mapstructure:"auth_url" validate:"required,url"`
	CartURL    string `mapstructure:"cart_url" validate:"required,url"`
	OrderURL   string `mapstructure:"order_url" validate:"required,url"`
	PaymentURL string `mapstructure:"payment_url" validate:"required,url"`
	CatalogURL string `mapstructure:"catalog_url" validate:"required,url"`
	// TimeoutSecs равный нулю означает отсутствие таймаута,
	// как в исходном поведении клиента
	TimeoutSecs int `mapstructure:"timeout_secs" validate:"min=0"`
}

// RedisParams содержит параметры подключения к Redis
type RedisParams struct {
	URL      string `mapstructure:"url" validate:"required"`
	Password string `mapstructure:"password"`
}

// CheckoutParams содержит бизнес-параметры оформления заказа
type CheckoutParams struct {
	ShippingFee           float64 `mapstructure:"shipping_fee" validate:"required,min=0"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold" validate:"required,min=0"`
	Currency              string  `mapstructure:"currency" validate:"required,len=3"`
	// PendingMaxAgeHours равный нулю означает, что сохраненная
	// запись незавершенного платежа принимается без проверки давности
	PendingMaxAgeHours int `mapstructure:"pending_max_age_hours" validate:"min=0"`
}

// RedisURL формирует полный URL для подключения к Redis
func (r *RedisParams) RedisURL() string {
	if r.Password != "" {
		// Если URL уже содержит схему, добавляем пароль
		if len(r.URL) > 6 && r.URL[:6] == "redis:" {
			return fmt.Sprintf("redis://:%s@%s", r.Password, r.URL[8:])
		}
		return fmt.Sprintf("redis://:%s@%s", r.Password, r.URL)
	}

	// Если URL уже содержит схему, возвращаем как есть
	if len(r.URL) > 6 && r.URL[:6] == "redis:" {
		return r.URL
	}

	return fmt.Sprintf("redis://%s", r.URL)
}

// HTTPTimeout возвращает таймаут исходящих запросов в виде Duration
func (b *BackendParams) HTTPTimeout() time.Duration {
	return time.Second * time.Duration(b.TimeoutSecs)
}

// PendingMaxAge возвращает максимальный возраст записи незавершенного платежа
func (c *CheckoutParams) PendingMaxAge() time.Duration {
	return time.Hour * time.Duration(c.PendingMaxAgeHours)
}

// StatsPollInterval возвращает период опроса статистики заказов
func (s *ServiceParams) StatsPollInterval() time.Duration {
	return time.Second * time.Duration(s.StatsPollSecs)
}

// StockPollInterval возвращает период опроса остатков товара
func (s *ServiceParams) StockPollInterval() time.Duration {
	return time.Second * time.Duration(s.StockPollSecs)
}

// envBindings возвращает мапу ключей конфигурации и соответствующих им переменных окружения
func envBindings() map[string]string {
	return map[string]string{
		envKey:           "SERVICE_ENV",
		authURLKey:       "AUTH_SERVICE_URL",
		cartURLKey:       "CART_SERVICE_URL",
		orderURLKey:      "ORDER_SERVICE_URL",
		paymentURLKey:    "PAYMENT_SERVICE_URL",
		catalogURLKey:    "CATALOG_SERVICE_URL",
		httpTimeoutKey:   "BACKEND_TIMEOUT_SECS",
		redisURLKey:      "REDIS_URL",
		redisPasswordKey: "REDIS_PASSWORD",
		shippingFeeKey:   "SHIPPING_FEE",
		freeShippingKey:  "FREE_SHIPPING_THRESHOLD",
		currencyKey:      "CHECKOUT_CURRENCY",
		pendingMaxAgeKey: "PENDING_MAX_AGE_HOURS",
		healthAddressKey: "HEALTH_ADDRESS",
		statsIntervalKey: "STATS_POLL_SECS",
		stockIntervalKey: "STOCK_POLL_SECS",
	}
}

// New загружает конфигурацию из файла и переменных окружения
func New() (*AppConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить рабочую директорию: %w", err)
	}

	return NewFromPath(filepath.Join(cwd, "internal", "config"))
}

// NewFromPath загружает конфигурацию из указанной директории
func NewFromPath(dir string) (*AppConfig, error) {
	v := viper.New()

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Привязка переменных окружения
	for configKey, envVar := range envBindings() {
		if err := v.BindEnv(configKey, envVar); err != nil {
			return nil, fmt.Errorf("ошибка привязки переменной окружения %s: %w", envVar, err)
		}
	}

	// Чтение конфигурации
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурационного файла: %w", err)
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("ошибка при декодировании конфигурации: %w", err)
	}

	// Валидация конфигурации
	validate := validator.New()

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return &config, nil
}
