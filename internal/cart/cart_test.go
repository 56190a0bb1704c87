package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/internal/cart"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

// cartBackend — поддельный сервис корзины с изменяемым состоянием
type cartBackend struct {
	mu           sync.Mutex
	cart         backend.Cart
	unauthorized bool
	promoErr     string
}

func (b *cartBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(b.cart)
	})

	mux.HandleFunc("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		var req backend.AddItemRequest
		json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		defer b.mu.Unlock()

		b.cart.Items = append(b.cart.Items, backend.CartItem{
			ProductID:   req.ProductID,
			ProductName: req.ProductName,
			Price:       req.Price,
			Quantity:    req.Quantity,
		})
		b.recalc()
		json.NewEncoder(w).Encode(b.cart)
	})

	mux.HandleFunc("/cart/promo", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		if r.Method == http.MethodPost && b.promoErr != "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": b.promoErr})
			return
		}

		if r.Method == http.MethodDelete {
			b.cart.PromoCode = ""
			b.cart.Discount = 0
		} else {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			b.cart.PromoCode = body["promoCode"]
			b.cart.Discount = 5
		}
		b.recalc()
		json.NewEncoder(w).Encode(b.cart)
	})

	mux.HandleFunc("/cart/checkout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.CheckoutResponse{
			Success: true,
			Order:   backend.Order{ID: 7, Status: backend.OrderStatusPending},
		})
	})

	return mux
}

func (b *cartBackend) recalc() {
	subtotal := 0.0
	for _, item := range b.cart.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	b.cart.Subtotal = subtotal
	b.cart.TotalAmount = subtotal - b.cart.Discount
}

func newService(t *testing.T) (*cart.Service, *cartBackend) {
	t.Helper()

	b := &cartBackend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	client := backend.NewCartClient(srv.Client(), srv.URL+"/cart")
	return cart.NewService(client, logger.Nop()), b
}

func TestLoadIgnoresUnauthorized(t *testing.T) {
	s, b := newService(t)
	b.unauthorized = true

	s.Load(context.Background())

	assert.Nil(t, s.Current())
	assert.Zero(t, s.Count())
}

func TestLoadPopulatesSnapshot(t *testing.T) {
	s, b := newService(t)
	b.cart = backend.Cart{
		Items:       []backend.CartItem{{ProductID: 1, Price: 10, Quantity: 3}},
		Subtotal:    30,
		TotalAmount: 30,
	}

	s.Load(context.Background())

	require.NotNil(t, s.Current())
	assert.Equal(t, 3, s.Count())
	assert.InDelta(t, 30.0, s.Subtotal(), 0.001)
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	s, b := newService(t)

	// Подписчик до загрузки видит пустую корзину
	ch := s.Subscribe()
	snap := <-ch
	assert.Nil(t, snap.Cart)
	assert.Zero(t, snap.Count)

	b.mu.Lock()
	b.cart = backend.Cart{Items: []backend.CartItem{{ProductID: 1, Price: 10, Quantity: 2}}}
	b.mu.Unlock()

	s.Load(context.Background())

	select {
	case snap = <-ch:
		require.NotNil(t, snap.Cart)
		assert.Equal(t, 2, snap.Count)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the updated snapshot")
	}

	// Поздний подписчик сразу получает текущее состояние
	late := <-s.Subscribe()
	assert.Equal(t, 2, late.Count)
}

func TestAddItemUpdatesSnapshot(t *testing.T) {
	s, _ := newService(t)

	_, err := s.AddItem(context.Background(), backend.AddItemRequest{
		ProductID: 5, ProductName: "Mug", Price: 12.5, Quantity: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count())
	assert.InDelta(t, 25.0, s.Subtotal(), 0.001)
}

func TestApplyPromoPropagatesBackendMessage(t *testing.T) {
	s, b := newService(t)
	b.promoErr = "Invalid promo code"

	_, err := s.ApplyPromo(context.Background(), "BOGUS")
	require.Error(t, err)

	assert.True(t, backend.IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "Invalid promo code")
}

func TestApplyAndRemovePromo(t *testing.T) {
	s, b := newService(t)
	b.cart = backend.Cart{Items: []backend.CartItem{{ProductID: 1, Price: 40, Quantity: 1}}}
	ctx := context.Background()

	_, err := s.ApplyPromo(ctx, "WELCOME5")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME5", s.PromoCode())
	assert.InDelta(t, 5.0, s.Discount(), 0.001)

	_, err = s.RemovePromo(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.PromoCode())
	assert.Zero(t, s.Discount())
}

func TestCheckoutClearsLocalCart(t *testing.T) {
	s, b := newService(t)
	b.cart = backend.Cart{Items: []backend.CartItem{{ProductID: 1, Price: 40, Quantity: 1}}}

	s.Load(context.Background())
	require.NotNil(t, s.Current())

	resp, err := s.Checkout(context.Background(), "1 Main St, 69001 Lyon, France - Tel: +33600000000")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.Order.ID)

	assert.Nil(t, s.Current(), "successful checkout must clear the local snapshot")
}

func TestResetState(t *testing.T) {
	s, b := newService(t)
	b.cart = backend.Cart{Items: []backend.CartItem{{ProductID: 1, Price: 10, Quantity: 1}}}

	s.Load(context.Background())
	s.SetDirectBuyItem(backend.CartItem{ProductID: 2, Price: 20, Quantity: 1})

	s.ResetState()

	assert.Nil(t, s.Current())
	assert.Zero(t, s.Count())
	assert.Nil(t, s.DirectBuyItem())
}

func TestDirectBuyItemReturnsCopy(t *testing.T) {
	s, _ := newService(t)
	s.SetDirectBuyItem(backend.CartItem{ProductID: 2, Price: 20, Quantity: 1})

	item := s.DirectBuyItem()
	require.NotNil(t, item)
	item.Quantity = 99

	assert.Equal(t, 1, s.DirectBuyItem().Quantity)
}
