package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/internal/cart"
	"github.com/rx3lixir/storefront-client/internal/checkout"
	"github.com/rx3lixir/storefront-client/internal/config"
	"github.com/rx3lixir/storefront-client/internal/notify"
	"github.com/rx3lixir/storefront-client/internal/session"
	"github.com/rx3lixir/storefront-client/internal/store"
	"github.com/rx3lixir/storefront-client/internal/transport"
	"github.com/rx3lixir/storefront-client/pkg/health"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	c, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger.Init(c.Service.Env)
	defer logger.Close()

	log := logger.NewLogger()

	// Создаем контекст, который можно отменить при получении сигнала остановки
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Настраиваем обработку сигналов для грациозного завершения
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	// Логаем инфу для отладки
	log.Info("Configuration loaded",
		"env", c.Service.Env,
		"redis_url", c.Redis.URL,
		"auth_url", c.Backends.AuthURL,
		"cart_url", c.Backends.CartURL,
		"order_url", c.Backends.OrderURL,
		"payment_url", c.Backends.PaymentURL,
	)

	// Создание Redis хранилища состояния клиента
	stateStore, err := store.NewRedisStore(c.Redis.RedisURL(), ctx)
	if err != nil {
		log.Error("Failed to initialize Redis store", "error", err)
		os.Exit(1)
	}
	defer stateStore.Close()

	log.Info("Successfully connected to Redis")

	// Перехватчик исходящих запросов с протоколом обновления токена
	authTransport := transport.New(http.DefaultTransport, log,
		transport.WithUnauthorizedHook(func() {
			log.Warn("Session terminated, sign-in required")
		}),
		transport.WithForbiddenHook(func() {
			log.Warn("Access denied, redirecting to home")
		}),
	)

	httpClient := &http.Client{
		Transport: authTransport,
		Timeout:   c.Backends.HTTPTimeout(),
	}

	// Типизированные клиенты REST-бэкендов
	authClient := backend.NewAuthClient(httpClient, c.Backends.AuthURL)
	cartClient := backend.NewCartClient(httpClient, c.Backends.CartURL)
	orderClient := backend.NewOrderClient(httpClient, c.Backends.OrderURL)
	paymentClient := backend.NewPaymentClient(httpClient, c.Backends.PaymentURL)
	catalogClient := backend.NewCatalogClient(httpClient, c.Backends.CatalogURL)

	// Менеджер сессии восстанавливает сохраненные токены и профиль
	sessions := session.NewManager(ctx, authClient, stateStore, log)
	authTransport.Bind(sessions)

	// Сервис корзины; при logout его состояние сбрасывается
	carts := cart.NewService(cartClient, log)
	sessions.OnLogout(carts.ResetState)

	if sessions.IsAuthenticated() {
		carts.Load(ctx)
		log.Info("Session restored", "authenticated", true)
	}

	// Контроллер оформления заказа: возобновляет незавершенный платеж,
	// если сохранена его запись
	flow := checkout.NewController(checkout.Config{
		ShippingFee:           c.Checkout.ShippingFee,
		FreeShippingThreshold: c.Checkout.FreeShippingThreshold,
		Currency:              c.Checkout.Currency,
		PendingMaxAge:         c.Checkout.PendingMaxAge(),
	}, carts, sessions, paymentClient, stateStore, log)

	if sessions.IsAuthenticated() {
		if err := flow.Start(ctx, checkout.ModeCart); err != nil {
			log.Error("Failed to start checkout flow", "error", err)
		} else if flow.Step() == checkout.StepPayment {
			log.Info("Resumed pending payment",
				"order_id", flow.OrderID(),
				"amount", flow.PendingAmount(),
			)
		}
	}

	// Опрос уведомлений доступен только администратору
	if sessions.IsAdmin() {
		notifier := notify.NewService(ctx, orderClient, catalogClient, stateStore, log,
			notify.WithStatsInterval(c.Service.StatsPollInterval()),
			notify.WithStockInterval(c.Service.StockPollInterval()),
		)
		go notifier.Run(ctx)

		log.Info("Admin notification polling started")
	}

	// Создаем HealthCheck сервер
	healthServer := health.NewServer(log,
		health.WithServiceName("storefront-client"),
		health.WithVersion("1.0.0"),
		health.WithAddress(c.Service.HealthAddress),
		health.WithTimeout(5*time.Second),
	)

	plainClient := &http.Client{Timeout: 5 * time.Second}
	healthServer.Register("redis", health.RedisChecker(stateStore.Client()))
	healthServer.Register("auth-service", health.BackendChecker(plainClient, c.Backends.AuthURL))
	healthServer.Register("cart-service", health.BackendChecker(plainClient, c.Backends.CartURL))
	healthServer.Register("order-service", health.BackendChecker(plainClient, c.Backends.OrderURL))
	healthServer.Register("payment-service", health.BackendChecker(plainClient, c.Backends.PaymentURL))

	errCh := make(chan error, 1)

	go func() {
		errCh <- healthServer.Start()
	}()

	// Ждем завершения
	select {
	case <-signalCh:
		log.Info("Shutting down gracefully...")

		if err := healthServer.Shutdown(context.Background()); err != nil {
			log.Error("Health server shutdown error", "error", err)
		}

	case err := <-errCh:
		log.Error("Server error", "error", err)
	}

	log.Info("Client stopped gracefully")
}
