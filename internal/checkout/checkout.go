package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/internal/cart"
	"github.com/rx3lixir/storefront-client/internal/session"
	"github.com/rx3lixir/storefront-client/internal/store"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

// Step — шаг оформления заказа. Порядок строго возрастающий;
// единственный разрешенный переход назад — SHIPPING -> CART.
type Step int

const (
	StepCart Step = iota
	StepShipping
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepCart:
		return "CART"
	case StepShipping:
		return "SHIPPING"
	case StepPayment:
		return "PAYMENT"
	case StepConfirmation:
		return "CONFIRMATION"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Mode — режим входа в оформление заказа
type Mode int

const (
	// ModeCart — обычное оформление корзины
	ModeCart Mode = iota
	// ModeDirect — прямая покупка одной подготовленной позиции мимо корзины
	ModeDirect
)

var (
	// ErrEmptyCart возвращается при попытке перейти к доставке с пустой корзиной
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoDirectItem возвращается при прямом входе без подготовленной позиции
	ErrNoDirectItem = errors.New("no staged direct-buy item")
	// ErrInvalidForm возвращается при провале валидации формы адреса
	ErrInvalidForm = errors.New("invalid shipping form")
	// ErrOrderCreateFailed — общая ошибка создания заказа; пользователь
	// остается на шаге доставки и может отправить форму повторно
	ErrOrderCreateFailed = errors.New("could not create the order, please try again")
	// ErrWrongStep возвращается, когда операция не соответствует текущему шагу
	ErrWrongStep = errors.New("operation not allowed at current step")
)

// ShippingForm — форма адреса доставки. Все поля обязательны,
// почтовый индекс — ровно пять цифр.
type ShippingForm struct {
	FullName    string `validate:"required,min=3"`
	Street      string `validate:"required"`
	City        string `validate:"required"`
	PostalCode  string `validate:"required,len=5,number"`
	Country     string `validate:"required"`
	PhoneNumber string `validate:"required"`
}

// PendingPayment — долговременная запись незавершенного платежа.
// Ее наличие при старте означает возобновление сразу на шаге оплаты.
// Удаляется ровно в момент подтверждения успешной оплаты.
type PendingPayment struct {
	OrderID      int64     `json:"orderId"`
	ClientSecret string    `json:"clientSecret"`
	Amount       float64   `json:"amount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Config — бизнес-параметры оформления заказа
type Config struct {
	ShippingFee           float64
	FreeShippingThreshold float64
	Currency              string
	// PendingMaxAge равный нулю означает, что запись незавершенного
	// платежа принимается без проверки давности
	PendingMaxAge time.Duration
}

// Controller ведет покупку от позиций к подтвержденной оплате.
// Шаги строго последовательны: каждый открывает следующий через
// явное состояние, параллельных операций для одной сессии нет.
type Controller struct {
	cfg      Config
	carts    *cart.Service
	sessions *session.Manager
	payments *backend.PaymentClient
	storage  store.StateStorage
	log      logger.Logger
	validate *validator.Validate

	mu              sync.Mutex
	mode            Mode
	step            Step
	items           []backend.CartItem
	promoCode       string
	discount        float64
	savedAddresses  []backend.Address
	selectedAddress *backend.Address
	orderID         int64
	clientSecret    string
	pendingAmount   float64
}

// NewController создает контроллер оформления заказа
func NewController(cfg Config, carts *cart.Service, sessions *session.Manager, payments *backend.PaymentClient, storage store.StateStorage, log logger.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		carts:    carts,
		sessions: sessions,
		payments: payments,
		storage:  storage,
		log:      log,
		validate: validator.New(),
		step:     StepCart,
	}
}

// Start инициализирует поток. Сохраненная запись незавершенного платежа
// имеет приоритет над обоими режимами входа: поток возобновляется сразу
// на шаге оплаты, минуя корзину и доставку.
func (c *Controller) Start(ctx context.Context, mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = mode

	if c.resumePendingLocked(ctx) {
		return nil
	}

	switch mode {
	case ModeDirect:
		item := c.carts.DirectBuyItem()
		if item == nil {
			return ErrNoDirectItem
		}
		c.items = []backend.CartItem{*item}
		c.promoCode = ""
		c.discount = 0
		// Прямая покупка начинается сразу с доставки
		c.step = StepShipping

	default:
		c.refreshFromCartLocked(ctx)
		c.step = StepCart
	}

	c.loadSavedAddressesLocked(ctx)

	return nil
}

// resumePendingLocked проверяет запись незавершенного платежа и,
// если она принимается, переводит поток на шаг оплаты
func (c *Controller) resumePendingLocked(ctx context.Context) bool {
	var rec PendingPayment
	if err := c.storage.Get(ctx, store.KeyPendingPayment, &rec); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn("Failed to read pending payment record", "error", err)
		}
		return false
	}

	if c.cfg.PendingMaxAge > 0 && !rec.CreatedAt.IsZero() &&
		time.Since(rec.CreatedAt) > c.cfg.PendingMaxAge {
		c.log.Warn("Discarding stale pending payment record",
			"order_id", rec.OrderID,
			"created_at", rec.CreatedAt,
		)
		if err := c.storage.Delete(ctx, store.KeyPendingPayment); err != nil {
			c.log.Error("Failed to delete stale pending payment record", "error", err)
		}
		return false
	}

	c.orderID = rec.OrderID
	c.clientSecret = rec.ClientSecret
	c.pendingAmount = rec.Amount
	c.step = StepPayment

	c.log.Info("Resuming checkout at payment step",
		"order_id", rec.OrderID,
		"amount", rec.Amount,
	)

	return true
}

// refreshFromCartLocked обновляет рабочий список позиций из снимка корзины
func (c *Controller) refreshFromCartLocked(ctx context.Context) {
	snapshot, err := c.carts.Get(ctx)
	if err != nil {
		c.log.Error("Failed to load cart for checkout", "error", err)
		c.items = nil
		c.promoCode = ""
		c.discount = 0
		return
	}

	c.items = snapshot.Items
	c.promoCode = snapshot.PromoCode
	c.discount = snapshot.Discount
}

// loadSavedAddressesLocked подтягивает сохраненные адреса; ошибка не блокирует поток
func (c *Controller) loadSavedAddressesLocked(ctx context.Context) {
	addresses, err := c.sessions.Addresses(ctx)
	if err != nil {
		c.log.Error("Failed to load saved addresses", "error", err)
		return
	}
	c.savedAddresses = addresses
}

// Step возвращает текущий шаг потока
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Items возвращает рабочий список позиций
func (c *Controller) Items() []backend.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]backend.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// OrderID возвращает идентификатор созданного заказа (0 — заказа еще нет)
func (c *Controller) OrderID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderID
}

// ClientSecret возвращает секрет платежного намерения для платежного виджета
func (c *Controller) ClientSecret() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientSecret
}

// PendingAmount возвращает сумму к оплате на шаге оплаты
func (c *Controller) PendingAmount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingAmount
}

// SavedAddresses возвращает сохраненные адреса пользователя
func (c *Controller) SavedAddresses() []backend.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	addresses := make([]backend.Address, len(c.savedAddresses))
	copy(addresses, c.savedAddresses)
	return addresses
}

// SelectAddress выбирает сохраненный адрес и возвращает заполненную форму
func (c *Controller) SelectAddress(address backend.Address) ShippingForm {
	c.mu.Lock()
	c.selectedAddress = &address
	c.mu.Unlock()

	return ShippingForm{
		FullName:    address.FullName,
		Street:      address.Street,
		City:        address.City,
		PostalCode:  address.PostalCode,
		Country:     address.Country,
		PhoneNumber: address.PhoneNumber,
	}
}

// ClearSelectedAddress снимает выбор сохраненного адреса
// (пользователь вводит адрес вручную)
func (c *Controller) ClearSelectedAddress() {
	c.mu.Lock()
	c.selectedAddress = nil
	c.mu.Unlock()
}

// ApplyPromo применяет промокод на шаге корзины
func (c *Controller) ApplyPromo(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepCart {
		return ErrWrongStep
	}

	snapshot, err := c.carts.ApplyPromo(ctx, code)
	if err != nil {
		return err
	}

	c.items = snapshot.Items
	c.promoCode = snapshot.PromoCode
	c.discount = snapshot.Discount

	return nil
}

// RemovePromo снимает промокод на шаге корзины
func (c *Controller) RemovePromo(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepCart {
		return ErrWrongStep
	}

	snapshot, err := c.carts.RemovePromo(ctx)
	if err != nil {
		return err
	}

	c.items = snapshot.Items
	c.promoCode = snapshot.PromoCode
	c.discount = snapshot.Discount

	return nil
}

// UpdateQuantity изменяет количество позиции на шаге корзины
func (c *Controller) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepCart || c.mode != ModeCart {
		return ErrWrongStep
	}
	if quantity < 1 {
		return nil
	}

	snapshot, err := c.carts.UpdateQuantity(ctx, productID, quantity)
	if err != nil {
		return err
	}

	c.items = snapshot.Items
	c.discount = snapshot.Discount

	return nil
}

// RemoveItem удаляет позицию на шаге корзины
func (c *Controller) RemoveItem(ctx context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepCart || c.mode != ModeCart {
		return ErrWrongStep
	}

	snapshot, err := c.carts.RemoveItem(ctx, productID)
	if err != nil {
		return err
	}

	c.items = snapshot.Items
	c.discount = snapshot.Discount

	return nil
}

// ProceedToShipping переводит поток с корзины на доставку.
// С пустым списком позиций шаг не меняется.
func (c *Controller) ProceedToShipping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepCart {
		return ErrWrongStep
	}
	if len(c.items) == 0 {
		return ErrEmptyCart
	}

	c.step = StepShipping
	return nil
}

// BackToCart — единственный разрешенный переход назад
func (c *Controller) BackToCart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step == StepShipping && c.mode == ModeCart {
		c.step = StepCart
	}
}

// SubmitOrder проверяет форму адреса, создает заказ в статусе PENDING
// и инициирует платеж. При отказе создания заказа поток остается на
// шаге доставки; автоматических повторов нет.
func (c *Controller) SubmitOrder(ctx context.Context, form ShippingForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepShipping {
		return ErrWrongStep
	}

	if err := c.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	// Новый адрес сохраняется в профиль вдогонку: ошибка сохранения
	// логируется и не блокирует оформление
	if c.selectedAddress == nil {
		address := backend.Address{
			FullName:    form.FullName,
			Street:      form.Street,
			City:        form.City,
			PostalCode:  form.PostalCode,
			Country:     form.Country,
			PhoneNumber: form.PhoneNumber,
		}
		go func() {
			if _, err := c.sessions.AddAddress(context.Background(), address); err != nil {
				c.log.Error("Failed to auto-save address", "error", err)
			}
		}()
	}

	line := formatAddressLine(form)

	var resp *backend.CheckoutResponse
	var err error

	if c.mode == ModeDirect {
		item := c.items[0]
		resp, err = c.carts.CheckoutDirect(ctx, line, item.ProductID, item.Quantity)
	} else {
		resp, err = c.carts.Checkout(ctx, line)
	}
	if err != nil {
		c.log.Error("Order creation failed", "error", err)
		return ErrOrderCreateFailed
	}

	c.orderID = resp.Order.ID
	c.log.Info("Order created", "order_id", c.orderID, "status", resp.Order.Status)

	if err := c.initiatePaymentLocked(ctx); err != nil {
		// Возврат на шаг доставки: пользователь может отправить форму заново
		c.step = StepShipping
		return err
	}

	c.step = StepPayment
	return nil
}

// initiatePaymentLocked создает платежное намерение и сохраняет
// долговременную запись незавершенного платежа, чтобы перезапуск
// процесса возобновился на шаге оплаты
func (c *Controller) initiatePaymentLocked(ctx context.Context) error {
	amount := c.totalLocked()

	resp, err := c.payments.Initiate(ctx, backend.InitiatePaymentRequest{
		OrderID:  c.orderID,
		Amount:   amount,
		Currency: c.cfg.Currency,
	})
	if err != nil {
		c.log.Error("Payment initiation failed", "order_id", c.orderID, "error", err)
		return fmt.Errorf("payment initiation failed: %w", err)
	}

	c.clientSecret = resp.ClientSecret
	c.pendingAmount = amount

	rec := PendingPayment{
		OrderID:      c.orderID,
		ClientSecret: resp.ClientSecret,
		Amount:       amount,
		CreatedAt:    time.Now(),
	}
	if err := c.storage.Set(ctx, store.KeyPendingPayment, rec); err != nil {
		c.log.Error("Failed to persist pending payment record", "error", err)
	}

	c.log.Info("Payment initiated",
		"order_id", c.orderID,
		"payment_id", resp.PaymentID,
		"amount", amount,
		"currency", resp.Currency,
	)

	return nil
}

// OnPaymentSuccess вызывается, когда платежный виджет сообщил об успехе.
// Серверная сверка носит совещательный характер: поток переходит к
// подтверждению независимо от ее исхода. Запись незавершенного платежа
// удаляется ровно один раз — здесь.
func (c *Controller) OnPaymentSuccess(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step == StepConfirmation {
		return nil
	}
	if c.step != StepPayment {
		return ErrWrongStep
	}

	confirmed, err := c.payments.Verify(ctx, c.orderID)
	if err != nil {
		c.log.Warn("Payment verification failed, proceeding anyway",
			"order_id", c.orderID,
			"error", err,
		)
	} else if !confirmed {
		c.log.Warn("Payment not yet confirmed server-side, webhook may be delayed",
			"order_id", c.orderID,
		)
	}

	c.step = StepConfirmation
	c.carts.ResetState()

	if err := c.storage.Delete(ctx, store.KeyPendingPayment); err != nil {
		c.log.Error("Failed to delete pending payment record", "error", err)
	}

	c.log.Info("Checkout confirmed", "order_id", c.orderID)

	return nil
}

// Subtotal возвращает сумму позиций до скидки и доставки.
// Вычисление одинаково для корзинного и прямого режимов.
func (c *Controller) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotalLocked()
}

func (c *Controller) subtotalLocked() float64 {
	subtotal := 0.0
	for _, item := range c.items {
		subtotal += item.Price * float64(item.Quantity)
	}
	return subtotal
}

// ShippingCost возвращает стоимость доставки: фиксированная ставка,
// отменяемая при сумме от порога бесплатной доставки
func (c *Controller) ShippingCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shippingCostLocked()
}

func (c *Controller) shippingCostLocked() float64 {
	if c.subtotalLocked() >= c.cfg.FreeShippingThreshold {
		return 0
	}
	return c.cfg.ShippingFee
}

// Total возвращает сумму к оплате: позиции плюс доставка минус скидка
func (c *Controller) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

func (c *Controller) totalLocked() float64 {
	return c.subtotalLocked() + c.shippingCostLocked() - c.discount
}

// Discount возвращает примененную скидку
func (c *Controller) Discount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discount
}

// PromoCode возвращает примененный промокод
func (c *Controller) PromoCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promoCode
}

// formatAddressLine собирает однострочный адрес доставки
// из структурированных полей формы
func formatAddressLine(form ShippingForm) string {
	return fmt.Sprintf("%s, %s %s, %s - Tel: %s",
		form.Street, form.PostalCode, form.City, form.Country, form.PhoneNumber)
}
