package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
)

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// rejectedError is a 4xx answer caused by the request itself. It says nothing
// about the gateway's health.
type rejectedError struct {
	status      int
	description string
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.description)
}

// clientFault reports whether status blames the request rather than the
// gateway or our credentials.
func clientFault(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

// RazorpayClient creates provider-side orders over the Razorpay REST API.
// Calls go through a circuit breaker so an unreachable gateway fails fast.
type RazorpayClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[*domain.GatewayOrder]
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker[*domain.GatewayOrder](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var rejected *rejectedError
			return err == nil || errors.As(err, &rejected) || errors.Is(err, context.Canceled)
		},
	})

	return &RazorpayClient{client: client, breaker: breaker}
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*domain.GatewayOrder, error) {
	order, err := c.breaker.Execute(func() (*domain.GatewayOrder, error) {
		var out domain.GatewayOrder
		var apiErr errorResponse

		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(createOrderRequest{
				Amount:   amountMinor,
				Currency: currency,
				Receipt:  receipt,
			}).
			SetResult(&out).
			SetError(&apiErr).
			Post("/v1/orders")
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		if resp.IsError() {
			if clientFault(resp.StatusCode()) {
				return nil, &rejectedError{status: resp.StatusCode(), description: apiErr.Error.Description}
			}
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), apiErr.Error.Description)
		}
		out.Raw = json.RawMessage(resp.Body())
		return &out, nil
	})
	if err != nil {
		var rejected *rejectedError
		if errors.As(err, &rejected) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, rejected.description)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailed, err)
	}

	return order, nil
}
