package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Статусы заказа
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// OrderItem — позиция заказа
type OrderItem struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Order — заказ пользователя
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"userId"`
	Status          string      `json:"status"`
	TotalAmount     float64     `json:"totalAmount"`
	ShippingAddress string      `json:"shippingAddress"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// OrderStats — сводная статистика заказов для админской панели
type OrderStats struct {
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	DeliveredOrders int     `json:"deliveredOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
}

// RevenuePoint — точка графика выручки
type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// TopProduct — товар из списка самых продаваемых
type TopProduct struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	TotalSold   int    `json:"totalSold"`
}

// OrderClient — типизированный клиент сервиса заказов
type OrderClient struct {
	client
}

// NewOrderClient создает клиент сервиса заказов
func NewOrderClient(httpClient *http.Client, baseURL string) *OrderClient {
	return &OrderClient{client: newClient(httpClient, baseURL)}
}

// List возвращает заказы текущего пользователя
func (c *OrderClient) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.doJSON(ctx, http.MethodGet, "", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get возвращает заказ по идентификатору
func (c *OrderClient) Get(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/%d", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Cancel отменяет заказ
func (c *OrderClient) Cancel(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/%d/cancel", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// All возвращает все заказы платформы (админ)
func (c *OrderClient) All(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.doJSON(ctx, http.MethodGet, "/all", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus изменяет статус заказа (админ)
func (c *OrderClient) UpdateStatus(ctx context.Context, id int64, status string) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/%d/status?status=%s", id, url.QueryEscape(status))
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Stats возвращает сводную статистику заказов (админ)
func (c *OrderClient) Stats(ctx context.Context) (*OrderStats, error) {
	var stats OrderStats
	if err := c.doJSON(ctx, http.MethodGet, "/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Revenue возвращает график выручки (админ)
func (c *OrderClient) Revenue(ctx context.Context) ([]RevenuePoint, error) {
	var points []RevenuePoint
	if err := c.doJSON(ctx, http.MethodGet, "/stats/revenue", nil, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// TopProducts возвращает самые продаваемые товары (админ)
func (c *OrderClient) TopProducts(ctx context.Context) ([]TopProduct, error) {
	var products []TopProduct
	if err := c.doJSON(ctx, http.MethodGet, "/stats/top-products", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Recent возвращает последние заказы (админ)
func (c *OrderClient) Recent(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.doJSON(ctx, http.MethodGet, "/recent", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ByUser возвращает заказы пользователя (админ)
func (c *OrderClient) ByUser(ctx context.Context, userID int64) ([]Order, error) {
	var orders []Order
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/user/%d", userID), nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
