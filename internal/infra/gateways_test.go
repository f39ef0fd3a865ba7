package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppClient_Send(t *testing.T) {
	var recibido WhatsAppMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&recibido))
		_ = json.NewEncoder(w).Encode(WhatsAppResponse{MessageID: "m1", Status: "queued"})
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "tok", nil)
	require.NoError(t, c.Send(context.Background(), "8095550101", "Hola"))
	assert.Equal(t, "8095550101", recibido.To)
	assert.Equal(t, "text", recibido.Type)
	assert.Equal(t, "Hola", recibido.Text.Body)
	assert.Equal(t, GatewayDisponible, c.Breaker().Estado())
	assert.Equal(t, "whatsapp", c.Breaker().Gateway())
}

func TestWhatsAppClient_FallosAbrenElBreaker(t *testing.T) {
	var llamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		llamadas.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := NewGatewayBreaker(BreakerConfig{Gateway: "whatsapp-test", Fallos: 2, Espera: time.Minute})
	c := NewWhatsAppClient(srv.URL, "", cb)
	ctx := context.Background()

	assert.ErrorContains(t, c.Send(ctx, "1", "x"), "502")
	assert.Error(t, c.Send(ctx, "1", "x"))
	assert.ErrorIs(t, c.Send(ctx, "1", "x"), ErrGatewayCaido)
	assert.EqualValues(t, 2, llamadas.Load())

	assert.Error(t, NewWhatsAppClient("", "", nil).Send(ctx, "1", "x"))
}

func TestSMSClient_Send(t *testing.T) {
	var recibido SMSRequest
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sms", r.URL.Path)
		assert.Equal(t, "Bearer sms-tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&recibido))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewSMSClient(srv.URL+"/v1/sms", "sms-tok", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Send(ctx, "8095550101", "Su saldo vence"))
	assert.Equal(t, "8095550101", recibido.To)
	assert.Equal(t, "Su saldo vence", recibido.Message)

	status = http.StatusBadRequest
	err := c.Send(ctx, "8095550101", "x")
	assert.ErrorContains(t, err, "unexpected status code: 400")

	assert.Error(t, NewSMSClient("", "", nil).Send(ctx, "1", "x"))
}

func TestSMSClient_GatewayInalcanzable(t *testing.T) {
	cb := NewGatewayBreaker(BreakerConfig{Gateway: "sms-test", Fallos: 1, Espera: time.Minute})
	c := NewSMSClient("http://127.0.0.1:1/sms", "", cb)

	assert.ErrorContains(t, c.Send(context.Background(), "1", "x"), "sms: request failed")
	assert.Equal(t, GatewayCaido, c.Breaker().Estado())
	assert.ErrorIs(t, c.Send(context.Background(), "1", "x"), ErrGatewayCaido)
}
