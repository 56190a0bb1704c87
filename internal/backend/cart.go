package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Способы оплаты, принимаемые сервисом корзины
const PaymentMethodCreditCard = "CREDIT_CARD"

// CartItem — позиция корзины
type CartItem struct {
	ProductID   int64    `json:"productId"`
	ProductName string   `json:"productName"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Images      []string `json:"images,omitempty"`
}

// Cart — снимок корзины с бэкенда
type Cart struct {
	Items       []CartItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	Discount    float64    `json:"discount"`
	TotalAmount float64    `json:"totalAmount"`
	PromoCode   string     `json:"promoCode"`
}

// AddItemRequest — запрос добавления позиции в корзину
type AddItemRequest struct {
	ProductID   int64    `json:"productId"`
	ProductName string   `json:"productName"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Images      []string `json:"images,omitempty"`
}

// UpdateItemRequest — запрос изменения количества позиции
type UpdateItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CheckoutRequest — запрос оформления заказа из корзины
type CheckoutRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

// DirectCheckoutRequest — запрос прямой покупки одной позиции мимо корзины
type DirectCheckoutRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
	ProductID       int64  `json:"productId"`
	Quantity        int    `json:"quantity"`
}

// CheckoutResponse — ответ оформления заказа: созданный заказ в статусе PENDING
type CheckoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// CartClient — типизированный клиент сервиса корзины
type CartClient struct {
	client
}

// NewCartClient создает клиент сервиса корзины
func NewCartClient(httpClient *http.Client, baseURL string) *CartClient {
	return &CartClient{client: newClient(httpClient, baseURL)}
}

// Get возвращает текущую корзину
func (c *CartClient) Get(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.doJSON(ctx, http.MethodGet, "", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem добавляет позицию в корзину
func (c *CartClient) AddItem(ctx context.Context, req AddItemRequest) (*Cart, error) {
	var cart Cart
	if err := c.doJSON(ctx, http.MethodPost, "/items", nil, req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateItem изменяет количество позиции
func (c *CartClient) UpdateItem(ctx context.Context, productID int64, quantity int) (*Cart, error) {
	var cart Cart
	req := UpdateItemRequest{ProductID: productID, Quantity: quantity}
	path := fmt.Sprintf("/items/%d", productID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveItem удаляет позицию из корзины
func (c *CartClient) RemoveItem(ctx context.Context, productID int64) (*Cart, error) {
	var cart Cart
	path := fmt.Sprintf("/items/%d", productID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Clear опустошает корзину
func (c *CartClient) Clear(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/clear", nil, nil, nil)
}

// ApplyPromo применяет промокод; отказ бэкенда приходит как APIError
// с его собственным сообщением
func (c *CartClient) ApplyPromo(ctx context.Context, promoCode string) (*Cart, error) {
	var cart Cart
	body := map[string]string{"promoCode": promoCode}
	if err := c.doJSON(ctx, http.MethodPost, "/promo", nil, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemovePromo снимает примененный промокод
func (c *CartClient) RemovePromo(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.doJSON(ctx, http.MethodDelete, "/promo", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Checkout создает заказ из корзины
func (c *CartClient) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var resp CheckoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.Order.ID == 0 {
		return nil, fmt.Errorf("checkout response is missing order id")
	}

	return &resp, nil
}

// CheckoutDirect создает заказ прямой покупки одной позиции
func (c *CartClient) CheckoutDirect(ctx context.Context, req DirectCheckoutRequest) (*CheckoutResponse, error) {
	var resp CheckoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/direct", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.Order.ID == 0 {
		return nil, fmt.Errorf("direct checkout response is missing order id")
	}

	return &resp, nil
}
