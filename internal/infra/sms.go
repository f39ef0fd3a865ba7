package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// SMSRequest is the body posted to the operator gateway.
type SMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SMSClient sends reminders through an SMS operator gateway over fasthttp.
type SMSClient struct {
	url     string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
	cb      *GatewayBreaker
}

func NewSMSClient(url, token string, cb *GatewayBreaker) *SMSClient {
	if cb == nil {
		cb = NewGatewayBreaker(BreakerPorDefecto("sms"))
	}
	timeout := 10 * time.Second
	return &SMSClient{
		url:     url,
		token:   token,
		timeout: timeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		cb: cb,
	}
}

func (c *SMSClient) Breaker() *GatewayBreaker { return c.cb }

// Send satisfies service.ReminderTransport for the sms channel.
func (c *SMSClient) Send(ctx context.Context, telefono, mensaje string) error {
	if c.url == "" {
		return errors.New("sms: gateway no configurado")
	}
	body, err := json.Marshal(SMSRequest{To: telefono, Message: mensaje})
	if err != nil {
		return fmt.Errorf("sms: marshal payload: %w", err)
	}
	return c.cb.Ejecutar(ctx, func(ctx context.Context) error { return c.doRequest(ctx, body) })
}

func (c *SMSClient) doRequest(ctx context.Context, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("sms: request failed: %w", err)
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusOK && status != fasthttp.StatusAccepted {
		return fmt.Errorf("sms: unexpected status code: %d, body: %s", status, resp.Body())
	}
	return nil
}
