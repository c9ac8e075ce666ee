package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/auth"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

type lookupFunc func(ctx context.Context, id uint) (*models.Payment, error)

func (f lookupFunc) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	return f(ctx, id)
}

var jwtCfg = &config.JWTConfig{AccessSecret: "a", RefreshSecret: "r", AccessExpiry: time.Minute, RefreshExpiry: time.Hour}

func newServer(t *testing.T, hub *Hub, payments map[uint]*models.Payment) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/payments/:id", ServePaymentStatus(jwtCfg, hub, lookupFunc(func(_ context.Context, id uint) (*models.Payment, error) {
		if p, ok := payments[id]; ok {
			cp := *p
			return &cp, nil
		}
		return nil, domain.ErrNotFound
	})))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readStatus(t *testing.T, conn *websocket.Conn) StatusMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg StatusMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestPaymentStatusStream(t *testing.T) {
	hub := NewHub()
	p := &models.Payment{ID: 1, Amount: decimal.NewFromInt(500), Currency: "INR", GatewayOrderID: "order_1", Status: domain.PaymentStatusCreated}
	srv := newServer(t, hub, map[uint]*models.Payment{1: p})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/payments/1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readStatus(t, conn)
	assert.Equal(t, "payment_status", first.Type)
	assert.Equal(t, domain.PaymentStatusCreated, first.Status)
	assert.Equal(t, "500.00", first.Amount)

	require.Eventually(t, func() bool { return hub.WatcherCount(1) == 1 }, time.Second, 10*time.Millisecond)
	paid := *p
	paid.Status = domain.PaymentStatusPaid
	hub.PaymentUpdated(&paid)

	next := readStatus(t, conn)
	assert.Equal(t, domain.PaymentStatusPaid, next.Status)
}

func TestPaymentStatusStream_OwnerOnly(t *testing.T) {
	owner := uint(7)
	p := &models.Payment{ID: 2, UserID: &owner, Amount: decimal.NewFromInt(1), GatewayOrderID: "o", Status: domain.PaymentStatusCreated}
	srv := newServer(t, NewHub(), map[uint]*models.Payment{2: p})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/payments/2"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other, err := auth.GenerateAccessToken(jwtCfg, 8, "other", "backer")
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/ws/payments/2?token="+other), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	mine, err := auth.GenerateAccessToken(jwtCfg, 7, "owner", "backer")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/payments/2?token="+mine), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, uint(2), readStatus(t, conn).PaymentID)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/ws/payments/99"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
