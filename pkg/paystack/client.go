package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
)

const defaultTimeout = 15 * time.Second

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client calls the Paystack REST API for transaction verification.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logg       *logger.Logger
}

// Verifier is the surface checkout depends on.
type Verifier interface {
	Verify(ctx context.Context, reference string) bool
}

// NewClient validates the configured credentials and returns a client.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.paystack.co"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    base,
		secretKey:  secret,
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
	}, nil
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Verify reports whether the gateway settled the transaction behind the
// reference. Any transport failure, non-200 response, or ambiguous payload
// counts as not verified; the gateway state is read-only so repeated calls
// return the same answer.
func (c *Client) Verify(ctx context.Context, reference string) bool {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return false
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logError(ctx, reference, "building verify request", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logError(ctx, reference, "calling paystack", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logWarn(ctx, reference, fmt.Sprintf("paystack verify returned status %d", resp.StatusCode))
		return false
	}

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logError(ctx, reference, "decoding verify response", err)
		return false
	}

	return payload.Status && payload.Data.Status == "success"
}

func (c *Client) logError(ctx context.Context, reference, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Error(c.logg.WithField(ctx, "payment_reference", reference), msg, err)
}

func (c *Client) logWarn(ctx context.Context, reference, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "payment_reference", reference), msg)
}
