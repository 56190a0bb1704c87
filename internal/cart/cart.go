package cart

import (
	"context"
	"net/http"
	"sync"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

// Snapshot — последнее известное состояние корзины и счетчик позиций
type Snapshot struct {
	Cart  *backend.Cart
	Count int
}

// Service кэширует снимок корзины и рассылает его подписчикам.
// Мутирует состояние только сам сервис; остальные компоненты читают
// его через Subscribe или синхронные геттеры.
type Service struct {
	client *backend.CartClient
	log    logger.Logger

	mu         sync.RWMutex
	cart       *backend.Cart
	directItem *backend.CartItem
	listeners  []chan Snapshot
}

// NewService создает сервис корзины
func NewService(client *backend.CartClient, log logger.Logger) *Service {
	return &Service{
		client: client,
		log:    log,
	}
}

// Subscribe возвращает канал с последним снимком корзины.
// Поздний подписчик сразу получает текущее состояние.
func (s *Service) Subscribe() <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	s.listeners = append(s.listeners, ch)

	return ch
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{Cart: s.cart, Count: s.countLocked()}
}

func (s *Service) countLocked() int {
	if s.cart == nil {
		return 0
	}
	count := 0
	for _, item := range s.cart.Items {
		count += item.Quantity
	}
	return count
}

// setCart обновляет снимок и рассылает его подписчикам
func (s *Service) setCart(cart *backend.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = cart
	snap := s.snapshotLocked()

	for _, ch := range s.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Load подтягивает корзину с бэкенда. Ошибка 401 (нет сессии)
// молча игнорируется, остальные логируются.
func (s *Service) Load(ctx context.Context) {
	cart, err := s.client.Get(ctx)
	if err != nil {
		if !backend.IsStatus(err, http.StatusUnauthorized) {
			s.log.Error("Failed to load cart", "error", err)
		}
		s.setCart(nil)
		return
	}

	s.setCart(cart)
}

// Get возвращает корзину с бэкенда и обновляет локальный снимок
func (s *Service) Get(ctx context.Context) (*backend.Cart, error) {
	cart, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	return cart, nil
}

// AddItem добавляет позицию в корзину
func (s *Service) AddItem(ctx context.Context, req backend.AddItemRequest) (*backend.Cart, error) {
	cart, err := s.client.AddItem(ctx, req)
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	s.log.Debug("Item added to cart", "product_id", req.ProductID, "quantity", req.Quantity)
	return cart, nil
}

// UpdateQuantity изменяет количество позиции
func (s *Service) UpdateQuantity(ctx context.Context, productID int64, quantity int) (*backend.Cart, error) {
	cart, err := s.client.UpdateItem(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	return cart, nil
}

// RemoveItem удаляет позицию из корзины
func (s *Service) RemoveItem(ctx context.Context, productID int64) (*backend.Cart, error) {
	cart, err := s.client.RemoveItem(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	return cart, nil
}

// Clear опустошает корзину на бэкенде и локально
func (s *Service) Clear(ctx context.Context) error {
	if err := s.client.Clear(ctx); err != nil {
		return err
	}

	s.setCart(nil)
	return nil
}

// ApplyPromo применяет промокод; отказ бэкенда возвращается вызывающему
// с его собственным сообщением
func (s *Service) ApplyPromo(ctx context.Context, promoCode string) (*backend.Cart, error) {
	cart, err := s.client.ApplyPromo(ctx, promoCode)
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	s.log.Info("Promo code applied", "code", promoCode, "discount", cart.Discount)
	return cart, nil
}

// RemovePromo снимает примененный промокод
func (s *Service) RemovePromo(ctx context.Context) (*backend.Cart, error) {
	cart, err := s.client.RemovePromo(ctx)
	if err != nil {
		return nil, err
	}

	s.setCart(cart)
	return cart, nil
}

// Checkout создает заказ из корзины; при успехе локальный снимок очищается
func (s *Service) Checkout(ctx context.Context, shippingAddress string) (*backend.CheckoutResponse, error) {
	resp, err := s.client.Checkout(ctx, backend.CheckoutRequest{
		ShippingAddress: shippingAddress,
		PaymentMethod:   backend.PaymentMethodCreditCard,
	})
	if err != nil {
		return nil, err
	}

	if resp.Success {
		s.setCart(nil)
	}

	return resp, nil
}

// CheckoutDirect создает заказ прямой покупки; при успехе
// промежуточная позиция очищается
func (s *Service) CheckoutDirect(ctx context.Context, shippingAddress string, productID int64, quantity int) (*backend.CheckoutResponse, error) {
	resp, err := s.client.CheckoutDirect(ctx, backend.DirectCheckoutRequest{
		ShippingAddress: shippingAddress,
		PaymentMethod:   backend.PaymentMethodCreditCard,
		ProductID:       productID,
		Quantity:        quantity,
	})
	if err != nil {
		return nil, err
	}

	if resp.Success {
		s.ClearDirectBuyItem()
	}

	return resp, nil
}

// SetDirectBuyItem ставит позицию прямой покупки
func (s *Service) SetDirectBuyItem(item backend.CartItem) {
	s.mu.Lock()
	s.directItem = &item
	s.mu.Unlock()
}

// DirectBuyItem возвращает позицию прямой покупки или nil
func (s *Service) DirectBuyItem() *backend.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.directItem == nil {
		return nil
	}
	item := *s.directItem
	return &item
}

// ClearDirectBuyItem очищает позицию прямой покупки
func (s *Service) ClearDirectBuyItem() {
	s.mu.Lock()
	s.directItem = nil
	s.mu.Unlock()
}

// Current возвращает последний известный снимок корзины
func (s *Service) Current() *backend.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// Count возвращает число единиц товара в корзине
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked()
}

// Subtotal возвращает сумму корзины до скидки
func (s *Service) Subtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return 0
	}
	return s.cart.Subtotal
}

// TotalAmount возвращает сумму корзины с учетом скидки
func (s *Service) TotalAmount() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return 0
	}
	return s.cart.TotalAmount
}

// Discount возвращает примененную скидку
func (s *Service) Discount() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return 0
	}
	return s.cart.Discount
}

// PromoCode возвращает примененный промокод
func (s *Service) PromoCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return ""
	}
	return s.cart.PromoCode
}

// ResetState сбрасывает локальное состояние корзины (вызывается при logout)
func (s *Service) ResetState() {
	s.setCart(nil)
	s.ClearDirectBuyItem()
	s.log.Debug("Local cart state reset")
}
