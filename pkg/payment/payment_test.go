package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatures(t *testing.T) {
	sig := PaymentSignature("order_1", "pay_1", "secret")
	assert.Len(t, sig, 64)
	assert.True(t, VerifyPaymentSignature("order_1", "pay_1", sig, "secret"))
	assert.False(t, VerifyPaymentSignature("order_2", "pay_1", sig, "secret"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", sig, "other"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", sig, ""))

	body := []byte(`{"event":"payment.captured"}`)
	assert.True(t, VerifyWebhookSignature(body, Sign(body, "wh"), "wh"))
	assert.False(t, VerifyWebhookSignature(body, "", "wh"))
	assert.False(t, VerifyWebhookSignature(append(body, ' '), Sign(body, "wh"), "wh"))
}

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	var got razorpayOrderReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "shh", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_ABC","entity":"order","amount":50000,"amount_due":50000,"currency":"INR","receipt":"project_film_7","status":"created"}`))
	}))
	defer srv.Close()

	g := NewRazorpayGateway(srv.URL+"/", "rzp_test_key", "shh", time.Second)
	order, err := g.CreateOrder(context.Background(), OrderRequest{
		AmountMinor: 50000, Currency: "INR", Receipt: "project_film_7", PaymentCapture: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", order.ID)
	assert.Equal(t, int64(50000), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "project_film_7", got.Receipt)
	assert.Equal(t, 1, got.PaymentCapture)
	assert.Equal(t, "rzp_test_key", g.KeyID())
}

func TestRazorpayGateway_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`))
	}))
	defer srv.Close()

	_, err := NewRazorpayGateway(srv.URL, "k", "s", time.Second).CreateOrder(context.Background(), OrderRequest{AmountMinor: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))
	assert.Contains(t, err.Error(), "amount too low")
}

func TestRazorpayGateway_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewRazorpayGateway(srv.URL, "k", "s", 20*time.Millisecond).CreateOrder(context.Background(), OrderRequest{AmountMinor: 100})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestStubGateway(t *testing.T) {
	g := &StubGateway{Key: "stub_key", Secret: "stub_secret"}
	order, err := g.CreateOrder(context.Background(), OrderRequest{AmountMinor: 1234, Currency: "INR", Receipt: "r"})
	require.NoError(t, err)
	assert.Contains(t, order.ID, "order_stub_")
	assert.Equal(t, int64(1234), order.Amount)

	sig := PaymentSignature(order.ID, "pay_x", "stub_secret")
	assert.True(t, g.VerifyPaymentSignature(order.ID, "pay_x", sig))
	assert.False(t, g.VerifyPaymentSignature(order.ID, "pay_y", sig))
}
