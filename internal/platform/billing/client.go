// Package billing resolves a user's subscription tier, either from the
// billing service over HTTP or from a fixed configuration.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"resty.dev/v3"
)

// ErrTierLookup is returned when the billing service cannot answer.
var ErrTierLookup = errors.New("tier lookup failed")

// tierResponse is the body of GET /users/{userID}/tier.
type tierResponse struct {
	Tier string `json:"tier"`
}

// Client looks up tiers from the billing service.
type Client struct {
	httpClient  *resty.Client
	defaultTier domain.Tier
	logger      *slog.Logger
}

// NewClient creates a billing client for baseURL. Users the billing service
// does not know about are given defaultTier.
func NewClient(baseURL string, timeout time.Duration, defaultTier domain.Tier, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return newClient(httpClient, defaultTier, logger)
}

func newClient(httpClient *resty.Client, defaultTier domain.Tier, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if !defaultTier.Valid() {
		defaultTier = domain.TierFree
	}
	return &Client{
		httpClient:  httpClient,
		defaultTier: defaultTier,
		logger:      logger.With(slog.String("component", "billing_client")),
	}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}

// GetTier returns the current tier of userID. It is called for every review,
// so tier changes take effect immediately.
func (c *Client) GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	response, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("userID", userID.String()).
		SetResult(&tierResponse{}).
		Get("/users/{userID}/tier")
	if err != nil {
		log.Error("billing request failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return "", fmt.Errorf("%w: %w", ErrTierLookup, err)
	}

	if response.StatusCode() == http.StatusNotFound {
		log.Debug("user unknown to billing, using default tier",
			slog.String("user_id", userID.String()),
			slog.String("tier", c.defaultTier.String()))
		return c.defaultTier, nil
	}
	if response.IsError() {
		log.Error("billing service returned an error",
			slog.Int("status", response.StatusCode()),
			slog.String("user_id", userID.String()))
		return "", fmt.Errorf("%w: status %d", ErrTierLookup, response.StatusCode())
	}

	body, ok := response.Result().(*tierResponse)
	if !ok || body == nil {
		return "", fmt.Errorf("%w: unexpected response body", ErrTierLookup)
	}

	tier, err := domain.ParseTier(body.Tier)
	if err != nil {
		log.Warn("billing returned an unknown tier, using free",
			slog.String("tier", body.Tier),
			slog.String("user_id", userID.String()))
		return domain.TierFree, nil
	}
	return tier, nil
}
