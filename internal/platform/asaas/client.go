package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/cursopassei/checkout/pkg/config"
)

// Client is a thin typed wrapper over the Asaas REST API. All calls
// authenticate with the access_token header and honor the caller's
// context deadline.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    cfg.Asaas.BaseURL(),
		apiKey:     cfg.Asaas.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// APIError is a non-2xx response from Asaas.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("asaas: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, out any) error {
	u := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("asaas: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("asaas: new request: %w", err)
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("asaas: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("asaas: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warnw("asaas request failed",
			"method", method, "endpoint", endpoint, "status", resp.StatusCode, "body", string(respBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("asaas: decode response: %w", err)
		}
	}
	return nil
}

// Customer is the Asaas customer object.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj"`
}

type CustomerRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	CpfCnpj           string `json:"cpfCnpj,omitempty"`
	Phone             string `json:"phone,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

// FindCustomerByEmail returns the first customer matching the email,
// or nil when none exists.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	q := url.Values{}
	q.Set("email", email)
	var list customerList
	if err := c.do(ctx, http.MethodGet, "customers", q, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "customers", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID string, req CustomerRequest) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "customers/"+customerID, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureCustomer finds a customer by email and updates it, or creates
// a new one when the email is unknown.
func (c *Client) EnsureCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	existing, err := c.FindCustomerByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.UpdateCustomer(ctx, existing.ID, req)
	}
	return c.CreateCustomer(ctx, req)
}

// PaymentRequest creates one charge. InstallmentCount/InstallmentValue
// are set only for installment boleto.
type PaymentRequest struct {
	Customer            string  `json:"customer"`
	BillingType         string  `json:"billingType"`
	Value               float64 `json:"value"`
	DueDate             string  `json:"dueDate"`
	Description         string  `json:"description,omitempty"`
	ExternalReference   string  `json:"externalReference,omitempty"`
	NotificationEnabled bool    `json:"notificationEnabled"`
	PaymentLink         bool    `json:"paymentLink,omitempty"`
	InstallmentCount    int     `json:"installmentCount,omitempty"`
	InstallmentValue    float64 `json:"installmentValue,omitempty"`
}

// Payment is the Asaas payment object, reduced to the fields the
// checkout flow reads.
type Payment struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Status            string  `json:"status"`
	Value             float64 `json:"value"`
	DueDate           string  `json:"dueDate"`
	Description       string  `json:"description"`
	ExternalReference string  `json:"externalReference"`
	Installment       string  `json:"installment"`
	InvoiceURL        string  `json:"invoiceUrl"`
	BankSlipURL       string  `json:"bankSlipUrl"`
	PaymentLink       string  `json:"paymentLink"`
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodPost, "payments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodGet, "payments/"+paymentID, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodPost, "payments/"+paymentID+"/cancel", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type RefundRequest struct {
	Value       float64 `json:"value,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (c *Client) RefundPayment(ctx context.Context, paymentID string, req RefundRequest) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodPost, "payments/"+paymentID+"/refund", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PixQRCode holds the base64 QR image and the copy-paste payload.
type PixQRCode struct {
	EncodedImage string `json:"encodedImage"`
	Payload      string `json:"payload"`
}

func (c *Client) GetPixQRCode(ctx context.Context, paymentID string) (*PixQRCode, error) {
	var out PixQRCode
	if err := c.do(ctx, http.MethodGet, "payments/"+paymentID+"/pixQrCode", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type paymentBook struct {
	URL  string `json:"url"`
	Link string `json:"link"`
}

// GetInstallmentBookURL returns the carnê link for an installment
// boleto, or empty when the gateway has none.
func (c *Client) GetInstallmentBookURL(ctx context.Context, installmentID string) (string, error) {
	if installmentID == "" {
		return "", nil
	}
	var out paymentBook
	if err := c.do(ctx, http.MethodGet, "installments/"+installmentID+"/paymentBook", nil, nil, &out); err != nil {
		return "", err
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return out.Link, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
