package themembers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/cursopassei/checkout/pkg/config"
)

// maxProductPages caps catalog pagination so a bad cursor cannot loop
// forever.
const maxProductPages = 20

// Client talks to the TheMembers registration API. Requests retry with
// linear backoff; a 429 doubles the wait before retrying.
type Client struct {
	baseURL       string
	devToken      string
	platformToken string
	retryAttempts int
	retryDelay    time.Duration
	httpClient    *http.Client
	logger        *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:       cfg.TheMembers.BaseURL,
		devToken:      cfg.TheMembers.DeveloperToken,
		platformToken: cfg.TheMembers.PlatformToken,
		retryAttempts: cfg.TheMembers.RetryAttempts,
		retryDelay:    cfg.TheMembers.RetryDelay,
		httpClient:    &http.Client{Timeout: cfg.TheMembers.Timeout},
		logger:        logger,
	}
}

// APIError is a non-2xx response from TheMembers.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("themembers: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) doWithRetry(ctx context.Context, method, endpoint string, body any, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("themembers: marshal request: %w", err)
		}
		payload = raw
	}

	attempts := c.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
		if err != nil {
			return fmt.Errorf("themembers: new request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.platformToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("themembers: %s %s: %w", method, endpoint, err)
			c.logger.Warnw("themembers request failed", "attempt", attempt+1, "err", err)
			if sleepErr := sleepCtx(ctx, c.retryDelay); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("themembers: read response: %w", readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("themembers: decode response: %w", err)
				}
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := time.Duration(attempt+1) * c.retryDelay * 2
			c.logger.Warnw("themembers rate limited", "attempt", attempt+1, "wait", wait)
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
			if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
				return sleepErr
			}
		default:
			// Non-retryable API error carries the body so callers can
			// classify it.
			return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
	}
	return fmt.Errorf("themembers: giving up after %d attempts: %w", attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UserPayload is one user in a create-users call.
type UserPayload struct {
	Name          string `json:"name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Document      string `json:"document"`
	Phone         string `json:"phone"`
	ReferenceID   string `json:"reference_id"`
	AccessionDate string `json:"accession_date"`
}

type createUsersRequest struct {
	ProductID []string      `json:"product_id"`
	Users     []UserPayload `json:"users"`
}

// CreateUsersWithProducts creates (or enqueues) users with access to
// all listed products in one call.
func (c *Client) CreateUsersWithProducts(ctx context.Context, productIDs []string, users []UserPayload) (map[string]any, error) {
	endpoint := fmt.Sprintf("/users/create/%s/%s", c.devToken, c.platformToken)
	req := createUsersRequest{ProductID: productIDs, Users: users}
	var out map[string]any
	if err := c.doWithRetry(ctx, http.MethodPost, endpoint, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Product is a catalog entry from the all-products listing.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Status      string  `json:"status"`
}

type productPage struct {
	Data  []Product `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
	Meta struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
}

// ListProducts walks the cursor-paginated catalog and returns every
// product.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	base := fmt.Sprintf("/products/all-products/%s/%s", c.devToken, c.platformToken)

	var all []Product
	cursor := ""
	for page := 1; page <= maxProductPages; page++ {
		endpoint := base
		if cursor != "" {
			endpoint += "?cursor=" + cursor
		}

		var resp productPage
		if err := c.doWithRetry(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)

		if resp.Links.Next == "" || resp.Meta.NextCursor == "" {
			return all, nil
		}
		cursor = resp.Meta.NextCursor
	}
	c.logger.Warnw("themembers product pagination hit page limit", "pages", maxProductPages, "products", len(all))
	return all, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
