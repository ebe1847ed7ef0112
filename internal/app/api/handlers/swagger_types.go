package handlers

import (
	"github.com/cursopassei/checkout/internal/app/service/checkout"
	"github.com/cursopassei/checkout/internal/app/service/ledger"
	"github.com/cursopassei/checkout/internal/app/service/reconcile"
	"github.com/cursopassei/checkout/internal/app/service/statistics"
	"github.com/cursopassei/checkout/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCheckout wraps a checkout response in the standard envelope.
type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    checkout.Response        `json:"data"`
}

// RespPaymentStatus wraps the polling payload in the standard envelope.
type RespPaymentStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    reconcile.StatusResponse `json:"data"`
}

// RespListSales wraps a sales page in the standard envelope.
type RespListSales struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.SalesPage         `json:"data"`
}

// RespListGroupedSales wraps a grouped sales page in the standard envelope.
type RespListGroupedSales struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.GroupedSalesPage  `json:"data"`
}

// RespListPayments wraps a gateway payments page in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.PaymentsPage      `json:"data"`
}

// RespListWebhookLogs wraps a webhook log page in the standard envelope.
type RespListWebhookLogs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.WebhookLogsPage   `json:"data"`
}

// RespSalesStatistics wraps the statistics payload in the standard envelope.
type RespSalesStatistics struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Response      `json:"data"`
}
