package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/internal/store"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

// Типы уведомлений админской панели
const (
	TypeOrder  = "ORDER"
	TypeStock  = "STOCK"
	TypeSystem = "SYSTEM"
)

// Приоритеты уведомлений
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Порог, ниже которого остаток товара считается низким
const lowStockThreshold = 10

// Notification — уведомление админской панели
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Priority  string    `json:"priority"`
}

// Service опрашивает статистику заказов и остатки товара,
// превращая изменения в уведомления. Список уведомлений сохраняется
// в долговременном хранилище; счетчик непросмотренных при загрузке
// сбрасывается в ноль.
type Service struct {
	orders  *backend.OrderClient
	catalog *backend.CatalogClient
	storage store.StateStorage
	log     logger.Logger

	statsInterval time.Duration
	stockInterval time.Duration

	mu            sync.Mutex
	notifications []Notification
	unseen        int

	// Отслеживание предыдущего значения для диффа;
	// -1 означает, что первый замер еще не сделан
	lastTotalOrders   int
	lastPendingOrders int
}

// Option настраивает сервис уведомлений
type Option func(*Service)

// WithStatsInterval задает период опроса статистики заказов
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) { s.statsInterval = d }
}

// WithStockInterval задает период опроса остатков товара
func WithStockInterval(d time.Duration) Option {
	return func(s *Service) { s.stockInterval = d }
}

// NewService создает сервис уведомлений и восстанавливает
// сохраненный список
func NewService(ctx context.Context, orders *backend.OrderClient, catalog *backend.CatalogClient, storage store.StateStorage, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		orders:            orders,
		catalog:           catalog,
		storage:           storage,
		log:               log,
		statsInterval:     15 * time.Second,
		stockInterval:     60 * time.Second,
		lastTotalOrders:   -1,
		lastPendingOrders: -1,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.restore(ctx)

	return s
}

// restore загружает сохраненные уведомления; значок непросмотренных
// после перезапуска не восстанавливается
func (s *Service) restore(ctx context.Context) {
	var saved []Notification
	if err := s.storage.Get(ctx, store.KeyAdminNotifications, &saved); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("Failed to restore notifications", "error", err)
		}
		return
	}

	s.mu.Lock()
	s.notifications = saved
	s.unseen = 0
	s.mu.Unlock()
}

// Run запускает циклы опроса и блокируется до отмены контекста
func (s *Service) Run(ctx context.Context) {
	statsTicker := time.NewTicker(s.statsInterval)
	stockTicker := time.NewTicker(s.stockInterval)
	defer statsTicker.Stop()
	defer stockTicker.Stop()

	// Первый замер сразу, не дожидаясь тикера
	s.pollStats(ctx)
	s.pollStock(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-statsTicker.C:
			s.pollStats(ctx)
		case <-stockTicker.C:
			s.pollStock(ctx)
		}
	}
}

func (s *Service) pollStats(ctx context.Context) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		s.log.Error("Notification polling error", "error", err)
		return
	}

	s.CheckOrderStats(ctx, stats)
}

func (s *Service) pollStock(ctx context.Context) {
	page, err := s.catalog.List(ctx, 100)
	if err != nil {
		s.log.Error("Stock polling error", "error", err)
		return
	}

	s.CheckStockLevels(ctx, page.Content)
}

// CheckOrderStats сравнивает статистику заказов с предыдущим замером.
// Первый замер только синхронизирует состояние, без уведомления.
func (s *Service) CheckOrderStats(ctx context.Context, stats *backend.OrderStats) {
	s.mu.Lock()

	if s.lastTotalOrders == -1 {
		s.lastTotalOrders = stats.TotalOrders
		s.lastPendingOrders = stats.PendingOrders
		s.mu.Unlock()
		return
	}

	diff := stats.TotalOrders - s.lastTotalOrders
	s.lastTotalOrders = stats.TotalOrders
	s.lastPendingOrders = stats.PendingOrders
	s.mu.Unlock()

	if diff <= 0 {
		return
	}

	s.Add(ctx, Notification{
		ID:        fmt.Sprintf("order-%d", time.Now().UnixNano()),
		Type:      TypeOrder,
		Message:   fmt.Sprintf("%d new order(s) received", diff),
		Link:      "/admin/orders",
		Timestamp: time.Now(),
		Priority:  PriorityHigh,
	})
}

// CheckStockLevels считает товары с низким остатком и добавляет
// уведомление, если активного STOCK-уведомления еще нет
func (s *Service) CheckStockLevels(ctx context.Context, products []backend.Product) {
	lowStock := 0
	for _, p := range products {
		if p.StockQuantity < lowStockThreshold {
			lowStock++
		}
	}

	if lowStock == 0 {
		return
	}

	s.mu.Lock()
	for _, n := range s.notifications {
		if n.Type == TypeStock {
			s.mu.Unlock()
			return
		}
	}
	s.mu.Unlock()

	s.Add(ctx, Notification{
		ID:        fmt.Sprintf("stock-%d", time.Now().UnixNano()),
		Type:      TypeStock,
		Message:   fmt.Sprintf("%d product(s) low on stock or out of stock", lowStock),
		Link:      "/admin/products",
		Timestamp: time.Now(),
		Priority:  PriorityMedium,
	})
}

// Add добавляет уведомление в начало списка, увеличивает значок
// и сохраняет список
func (s *Service) Add(ctx context.Context, n Notification) {
	s.mu.Lock()
	s.notifications = append([]Notification{n}, s.notifications...)
	s.unseen++
	s.mu.Unlock()

	s.persist(ctx)
	s.log.Info("Admin notification", "type", n.Type, "message", n.Message)
}

// Dismiss удаляет уведомление из списка
func (s *Service) Dismiss(ctx context.Context, id string) {
	s.mu.Lock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	s.mu.Unlock()

	s.persist(ctx)
}

// ClearAll удаляет все уведомления и сбрасывает значок
func (s *Service) ClearAll(ctx context.Context) {
	s.mu.Lock()
	s.notifications = nil
	s.unseen = 0
	s.mu.Unlock()

	s.persist(ctx)
}

// ClearBadge сбрасывает значок непросмотренных
// (пользователь открыл список)
func (s *Service) ClearBadge() {
	s.mu.Lock()
	s.unseen = 0
	s.mu.Unlock()
}

// Unseen возвращает число непросмотренных уведомлений
func (s *Service) Unseen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unseen
}

// List возвращает копию списка уведомлений
func (s *Service) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]Notification, len(s.notifications))
	copy(list, s.notifications)
	return list
}

func (s *Service) persist(ctx context.Context) {
	s.mu.Lock()
	list := make([]Notification, len(s.notifications))
	copy(list, s.notifications)
	s.mu.Unlock()

	if err := s.storage.Set(ctx, store.KeyAdminNotifications, list); err != nil {
		s.log.Error("Failed to persist notifications", "error", err)
	}
}
