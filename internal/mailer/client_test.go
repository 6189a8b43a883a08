package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleConfirmation() Confirmation {
	return Confirmation{
		OrderID: "ord-1",
		UserDetails: UserDetails{
			Email: "client@example.com", FirstName: "Sami", LastName: "B.",
			Address: "1 rue de Carthage", Country: "Tunisie", ZipCode: "1000", Phone: "+216", OrderNote: "-",
		},
		Items: []Item{{
			Name: "Chemise", Size: "M", Color: "blanc", Quantity: 2, TotalPrice: 238,
			Personalization: "-", Pack: "aucun", Box: "-",
		}},
		PriceDetails: PriceDetails{Subtotal: 238, ShippingCost: 7, FinalTotal: 245},
		Payment:      Payment{Method: "cash_on_delivery"},
	}
}

func TestClient_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"message":"Email sent successfully"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, c.Send(context.Background(), sampleConfirmation()))

	assert.Equal(t, "ord-1", got["order_id"])
	details := got["price_details"].(map[string]any)
	assert.Equal(t, 245.0, details["final_total"])
	items := got["items"].([]any)
	assert.Equal(t, "aucun", items[0].(map[string]any)["pack"])
	assert.Equal(t, "1000", got["user_details"].(map[string]any)["zip_code"])
}

func TestClient_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid email address"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	for i := 0; i < 5; i++ {
		err := c.Send(context.Background(), sampleConfirmation())
		assert.ErrorIs(t, err, ErrRejected)
	}
	assert.Equal(t, gobreaker.StateClosed, c.cb.State(), "rejections do not trip the breaker")
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	for i := 0; i < 3; i++ {
		assert.Error(t, c.Send(context.Background(), sampleConfirmation()))
	}

	err := c.Send(context.Background(), sampleConfirmation())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNopSender(t *testing.T) {
	assert.NoError(t, NopSender{Logger: zap.NewNop()}.Send(context.Background(), sampleConfirmation()))
}
