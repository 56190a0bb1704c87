package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Product — товар каталога
type Product struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Price         float64  `json:"price"`
	StockQuantity int      `json:"stockQuantity"`
	Images        []string `json:"images,omitempty"`
}

// ProductPage — страница каталога
type ProductPage struct {
	Content       []Product `json:"content"`
	TotalElements int       `json:"totalElements"`
}

// CatalogClient — типизированный клиент каталога товаров
type CatalogClient struct {
	client
}

// NewCatalogClient создает клиент каталога
func NewCatalogClient(httpClient *http.Client, baseURL string) *CatalogClient {
	return &CatalogClient{client: newClient(httpClient, baseURL)}
}

// List возвращает страницу каталога
func (c *CatalogClient) List(ctx context.Context, size int) (*ProductPage, error) {
	var page ProductPage
	path := fmt.Sprintf("?size=%d", size)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get возвращает товар по идентификатору
func (c *CatalogClient) Get(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/%d", id), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
