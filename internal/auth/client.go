package auth

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/config"
	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/metrics"
)

// Session is the token pair returned by the auth provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

// Client talks to the hosted auth provider. Calls run through a circuit
// breaker so a degraded provider sheds load fast instead of piling up
// timed-out requests.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(cfg *config.AuthConfig, log *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "auth-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			log.Warn("circuit breaker state change",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("apikey", cfg.ServiceKey)

	return &Client{
		http:    http,
		breaker: breaker,
		logger:  log,
	}
}

// RefreshToken exchanges a refresh token for a new session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var session Session
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]string{"refresh_token": refreshToken}).
			SetResult(&session).
			Post("/auth/v1/token?grant_type=refresh_token")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, apperr.Newf(apperr.CodeUnavailable, "auth provider returned %s", resp.Status())
		}
		return &session, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperr.Wrap(apperr.CodeUnavailable, "auth provider unavailable", err)
		}
		return nil, err
	}
	return result.(*Session), nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
