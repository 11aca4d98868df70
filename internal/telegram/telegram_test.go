package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendHTML(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("123:abc", "-1001", WithAPIURL(srv.URL))
	err := c.SendHTML(context.Background(), "<b>hi</b>")

	require.NoError(t, err)
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-1001", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Equal(t, "<b>hi</b>", got.Text)
}

func TestClient_SendHTML_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("123:abc", "-1001", WithAPIURL(srv.URL))
	err := c.SendHTML(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestClient_SendHTML_NotConfigured(t *testing.T) {
	c := NewClient("", "-1001")

	assert.False(t, c.Configured())
	assert.ErrorIs(t, c.SendHTML(context.Background(), "x"), ErrNotConfigured)
}

func TestBuildOrderCreatedMessage(t *testing.T) {
	e := order.OrderCreated{
		OrderID:       "9b2f",
		OrderCode:     "NC-20240315-4821",
		CustomerName:  "Sok <Dara>",
		CustomerPhone: "012345678",
		Total:         decimal.RequireFromString("1234.5"),
		PaymentMethod: order.MethodABA,
		PaymentStatus: order.PaymentUnpaid,
		ItemCount:     3,
		CreatedAt:     time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}

	msg := BuildOrderCreatedMessage(e, "https://shop.example.com/")

	assert.Contains(t, msg, "New Online order")
	assert.Contains(t, msg, "<code>NC-20240315-4821</code>")
	assert.Contains(t, msg, "Sok &lt;Dara&gt;")
	assert.Contains(t, msg, "$1,234.50")
	assert.Contains(t, msg, `href="https://shop.example.com/admin/orders/9b2f"`)

	e.IsPOS = true
	msg = BuildOrderCreatedMessage(e, "")
	assert.Contains(t, msg, "New POS order")
	assert.NotContains(t, msg, "href")
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":        "$0.00",
		"12.3":     "$12.30",
		"999.99":   "$999.99",
		"1000":     "$1,000.00",
		"1234567":  "$1,234,567.00",
		"-45.5":    "-$45.50",
		"123456.7": "$123,456.70",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatAmount(decimal.RequireFromString(in)), in)
	}
}
