package asaas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL:    srv.URL,
		apiKey:     "test-key",
		httpClient: srv.Client(),
		logger:     zap.NewNop().Sugar(),
	}
}

func TestFindCustomerByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/customers", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("access_token"))
		if r.URL.Query().Get("email") == "known@example.com" {
			_, _ = w.Write([]byte(`{"data":[{"id":"cus_1","name":"Maria","email":"known@example.com"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	cust, err := c.FindCustomerByEmail(context.Background(), "known@example.com")
	require.NoError(t, err)
	require.NotNil(t, cust)
	require.Equal(t, "cus_1", cust.ID)

	cust, err = c.FindCustomerByEmail(context.Background(), "missing@example.com")
	require.NoError(t, err)
	require.Nil(t, cust)
}

func TestEnsureCustomer_UpdatesExisting(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/customers":
			_, _ = w.Write([]byte(`{"data":[{"id":"cus_1"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/customers/cus_1":
			_, _ = w.Write([]byte(`{"id":"cus_1","name":"Maria"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	c := newTestClient(srv)

	cust, err := c.EnsureCustomer(context.Background(), CustomerRequest{Name: "Maria", Email: "m@x.com"})
	require.NoError(t, err)
	require.Equal(t, "cus_1", cust.ID)
	require.Equal(t, []string{"GET /customers", "POST /customers/cus_1"}, paths)
}

func TestEnsureCustomer_CreatesWhenUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		require.Equal(t, "/customers", r.URL.Path)
		var req CustomerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "m@x.com", req.Email)
		_, _ = w.Write([]byte(`{"id":"cus_new"}`))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	cust, err := c.EnsureCustomer(context.Background(), CustomerRequest{Name: "Maria", Email: "m@x.com"})
	require.NoError(t, err)
	require.Equal(t, "cus_new", cust.ID)
}

func TestCreatePayment_SendsInstallmentFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "BOLETO", req["billingType"])
		require.EqualValues(t, 3, req["installmentCount"])
		require.EqualValues(t, 33.33, req["installmentValue"])
		_, _ = w.Write([]byte(`{"id":"pay_1","status":"PENDING","installment":"ins_1"}`))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	p, err := c.CreatePayment(context.Background(), PaymentRequest{
		Customer:         "cus_1",
		BillingType:      "BOLETO",
		Value:            99.99,
		DueDate:          "2026-09-07",
		InstallmentCount: 3,
		InstallmentValue: 33.33,
	})
	require.NoError(t, err)
	require.Equal(t, "pay_1", p.ID)
	require.Equal(t, "ins_1", p.Installment)
}

func TestDo_APIErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"description":"invalid cpfCnpj"}]}`))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	_, err := c.GetPayment(context.Background(), "pay_x")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "invalid cpfCnpj")
}

func TestGetPixQRCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/pay_1/pixQrCode", r.URL.Path)
		_, _ = w.Write([]byte(`{"encodedImage":"img64","payload":"00020126"}`))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	qr, err := c.GetPixQRCode(context.Background(), "pay_1")
	require.NoError(t, err)
	require.Equal(t, "img64", qr.EncodedImage)
	require.Equal(t, "00020126", qr.Payload)
}

func TestGetInstallmentBookURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/installments/ins_1/paymentBook", r.URL.Path)
		_, _ = w.Write([]byte(`{"url":"https://asaas/carne"}`))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	url, err := c.GetInstallmentBookURL(context.Background(), "ins_1")
	require.NoError(t, err)
	require.Equal(t, "https://asaas/carne", url)

	// No installment id means no carnê without a gateway call.
	url, err = c.GetInstallmentBookURL(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, url)
}
