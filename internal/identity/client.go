package identity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"updown-game-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	profilePath = "/api/auth/me"
	tokenCookie = "token"
	maxRetries  = 3
)

// ErrUnauthorized is returned when the identity service rejects the session token.
var ErrUnauthorized = errors.New("unauthorized")

// ClientInterface defines the identity service calls the game needs.
type ClientInterface interface {
	GetProfile(ctx context.Context) (*Profile, error)
}

// Profile is the authenticated player as reported by the identity service.
type Profile struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
	Balance  decimal.Decimal `json:"balance"`
	Verified bool            `json:"isVerified"`
}

// The service answers either with the bare user or wrapped in {"user": ...}.
type profileResponse struct {
	User *Profile `json:"user"`
	Profile
}

// Client is a client for the identity service REST API.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	token   string
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new identity service client.
func NewClient(cfg *config.Identity, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		token:   cfg.Token,
		logger:  logger.Named("identity"),
		limiter: limiter,
		backoff: time.Second,
	}
}

// GetProfile fetches the player behind the configured session token.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	req := c.client.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: tokenCookie, Value: c.token}).
		SetHeader("Accept", "application/json").
		SetResult(&profileResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, profilePath, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	result := resp.Result().(*profileResponse)
	profile := &result.Profile
	if result.User != nil {
		profile = result.User
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("failed to get profile: response has no user id")
	}
	return profile, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			switch {
			case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
				return nil, fmt.Errorf("request failed with status %s: %w", resp.Status(), ErrUnauthorized)
			case statusCode == http.StatusTooManyRequests:
				shouldRetry = true
				if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			case statusCode >= 500:
				shouldRetry = true
			}
		} else if ctx.Err() == nil { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x the base
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil {
		err = fmt.Errorf("status %s", resp.Status())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
