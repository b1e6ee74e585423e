package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/uchef/uchef-backend/internal/metrics"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
}

// Client talks to the external payment processor. Payment-intent creation
// is the only operation this service consumes; everything else about
// payments is the processor's business. Calls go through a circuit breaker
// so a degraded processor cannot pile up requests.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

type intentRequest struct {
	Amount    int64  `json:"amount"` // minor currency units
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type intentResponse struct {
	ClientSecret string `json:"client_secret"`
}

// NewClient creates a payment client for the given processor base URL.
func NewClient(baseURL, apiKey string) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-processor",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.PaymentBreakerState.Set(state)
			log.WithFields(logrus.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Payment circuit breaker state changed")
		},
	})

	httpClient := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0). // the breaker decides when to stop trying, not the transport
		SetAuthToken(apiKey)

	return &Client{http: httpClient, breaker: breaker, baseURL: baseURL}
}

// CreateIntent asks the processor for a payment intent and returns its
// opaque client secret. Amount is in minor currency units.
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency string) (string, error) {
	if amount <= 0 {
		return "", errors.New("payment amount must be positive")
	}
	if currency == "" {
		currency = "usd"
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out intentResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(intentRequest{Amount: amount, Currency: currency, Reference: uuid.NewString()}).
			SetResult(&out).
			Post(c.baseURL + "/v1/payment_intents")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("payment processor returned %s", resp.Status())
		}
		if out.ClientSecret == "" {
			return nil, errors.New("payment processor response missing client_secret")
		}
		return out.ClientSecret, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
