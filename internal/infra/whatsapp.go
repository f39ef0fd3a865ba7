package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// WhatsAppMessage is the body posted to the messaging gateway.
type WhatsAppMessage struct {
	To   string `json:"to"`
	Type string `json:"type"` // always "text"
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// WhatsAppResponse is returned by the gateway on acceptance.
type WhatsAppResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// WhatsAppClient posts reminders to an HTTP messaging gateway. Calls go
// through a circuit breaker so an unreachable gateway fails fast.
type WhatsAppClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cb         *GatewayBreaker
}

func NewWhatsAppClient(baseURL, token string, cb *GatewayBreaker) *WhatsAppClient {
	if cb == nil {
		cb = NewGatewayBreaker(BreakerPorDefecto("whatsapp"))
	}
	return &WhatsAppClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         cb,
	}
}

// Breaker is reported by /health.
func (c *WhatsAppClient) Breaker() *GatewayBreaker { return c.cb }

// Send satisfies service.ReminderTransport for the whatsapp channel.
func (c *WhatsAppClient) Send(ctx context.Context, telefono, mensaje string) error {
	if c.baseURL == "" {
		return errors.New("whatsapp: gateway no configurado")
	}
	msg := WhatsAppMessage{To: telefono, Type: "text"}
	msg.Text.Body = mensaje

	return c.cb.Ejecutar(ctx, func(ctx context.Context) error {
		_, err := c.post(ctx, msg)
		return err
	})
}

func (c *WhatsAppClient) post(ctx context.Context, msg WhatsAppMessage) (*WhatsAppResponse, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp: gateway returned %d", resp.StatusCode)
	}

	var result WhatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("whatsapp: decode response: %w", err)
	}
	return &result, nil
}
