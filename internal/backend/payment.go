package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// InitiatePaymentRequest — запрос создания платежного намерения
type InitiatePaymentRequest struct {
	OrderID  int64   `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// InitiatePaymentResponse — платежное намерение, созданное платежным сервисом
type InitiatePaymentResponse struct {
	PaymentID             int64   `json:"paymentId"`
	StripePaymentIntentID string  `json:"stripePaymentIntentId"`
	ClientSecret          string  `json:"clientSecret"`
	Status                string  `json:"status"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
}

// PaymentClient — типизированный клиент платежного сервиса
type PaymentClient struct {
	client
}

// NewPaymentClient создает клиент платежного сервиса
func NewPaymentClient(httpClient *http.Client, baseURL string) *PaymentClient {
	return &PaymentClient{client: newClient(httpClient, baseURL)}
}

// Initiate создает платежное намерение для заказа.
// Каждая попытка подписывается уникальным ключом идемпотентности.
func (c *PaymentClient) Initiate(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	headers := map[string]string{
		"Idempotency-Key": uuid.NewString(),
	}

	var resp InitiatePaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/initiate", headers, req, &resp); err != nil {
		return nil, err
	}

	if resp.ClientSecret == "" {
		return nil, fmt.Errorf("payment initiation response is missing clientSecret")
	}

	return &resp, nil
}

// Verify запрашивает серверную сверку платежа по заказу.
// Возвращает подтверждение платежа; вызов носит сверочный характер
// на случай задержки или потери асинхронного вебхука.
func (c *PaymentClient) Verify(ctx context.Context, orderID int64) (bool, error) {
	var confirmed bool
	path := fmt.Sprintf("/verify/%d", orderID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, struct{}{}, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
