package ledger

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/pkg/types"
)

// Service backs the admin list pages over the local sale ledger.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// Scan request/response shared by all list pages.
type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type SalesPage struct {
	Items []*models.Sale `json:"items"`
	Total int64          `json:"total"`
}

type PaymentsPage struct {
	Items []*models.AsaasPayment `json:"items"`
	Total int64                  `json:"total"`
}

type WebhookLogsPage struct {
	Items []*models.AsaasWebhookLog `json:"items"`
	Total int64                     `json:"total"`
}

// GroupedSale is one row of the grouped sales view: a cart collapses
// into a single row keyed by its shared gateway payment id.
type GroupedSale struct {
	AsaasPaymentID string              `json:"asaas_payment_id"`
	MainSaleID     string              `json:"main_sale_id"`
	Label          string              `json:"label"`
	StudentName    string              `json:"student_name"`
	Email          string              `json:"email"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	CoursesCount   int                 `json:"courses_count"`
	Status         types.SaleStatus    `json:"status"`
	PaymentMethod  types.PaymentMethod `json:"payment_method"`
	Sales          []*models.Sale      `json:"sales"`
}

type GroupedSalesPage struct {
	Items []*GroupedSale `json:"items"`
	Total int64          `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (s *Service) scan(ctx context.Context, model any, req *ScanRequest, rows any) (int64, error) {
	if req == nil {
		req = &ScanRequest{}
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(model)
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	} else {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "created_at"}, Desc: true}}})
	}
	if err := q.Find(rows).Error; err != nil {
		return 0, fmt.Errorf("failed to list rows: %w", err)
	}
	return total, nil
}

// ScanSales implements the paginated/filterable admin sales listing.
func (s *Service) ScanSales(ctx context.Context, req *ScanRequest) (*SalesPage, error) {
	var rows []*models.Sale
	total, err := s.scan(ctx, &models.Sale{}, req, &rows)
	if err != nil {
		return nil, err
	}
	return &SalesPage{Items: rows, Total: total}, nil
}

// ScanPayments lists gateway payment rows.
func (s *Service) ScanPayments(ctx context.Context, req *ScanRequest) (*PaymentsPage, error) {
	var rows []*models.AsaasPayment
	total, err := s.scan(ctx, &models.AsaasPayment{}, req, &rows)
	if err != nil {
		return nil, err
	}
	return &PaymentsPage{Items: rows, Total: total}, nil
}

// ScanWebhookLogs lists webhook deliveries, newest first by default.
func (s *Service) ScanWebhookLogs(ctx context.Context, req *ScanRequest) (*WebhookLogsPage, error) {
	if req == nil {
		req = &ScanRequest{}
	}
	if req.SortBy == "" {
		req.SortBy = "received_at"
	}
	var rows []*models.AsaasWebhookLog
	total, err := s.scan(ctx, &models.AsaasWebhookLog{}, req, &rows)
	if err != nil {
		return nil, err
	}
	return &WebhookLogsPage{Items: rows, Total: total}, nil
}

// ScanSalesGrouped collapses cart sibling sales that share a gateway
// payment into one row per payment. Sales never charged (no payment
// id) stay as single-sale rows. Pagination applies to groups.
func (s *Service) ScanSalesGrouped(ctx context.Context, req *ScanRequest) (*GroupedSalesPage, error) {
	if req == nil {
		req = &ScanRequest{}
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Sale{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var rows []*models.Sale
	if err := tx.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "created_at"}, Desc: true}}}).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	groups := GroupSales(rows)
	total := int64(len(groups))
	if req.From >= len(groups) {
		return &GroupedSalesPage{Items: []*GroupedSale{}, Total: total}, nil
	}
	end := req.From + req.Size
	if end > len(groups) {
		end = len(groups)
	}
	return &GroupedSalesPage{Items: groups[req.From:end], Total: total}, nil
}

// GroupSales folds a sale list into grouped rows, keeping the input
// order of each group's first appearance. The group's main sale is the
// most expensive one, matching how carts are charged (the main sale
// carries the cart total).
func GroupSales(rows []*models.Sale) []*GroupedSale {
	var order []string
	byKey := map[string][]*models.Sale{}
	for i, sale := range rows {
		key := fmt.Sprintf("__single_%d", i)
		if sale.AsaasPaymentID != nil && *sale.AsaasPaymentID != "" {
			key = *sale.AsaasPaymentID
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], sale)
	}

	return lo.Map(order, func(key string, _ int) *GroupedSale {
		group := byKey[key]
		main := lo.MaxBy(group, func(a, b *models.Sale) bool {
			return a.Price.GreaterThan(b.Price)
		})

		label := main.CourseTitle()
		if len(group) > 1 {
			label = fmt.Sprintf("Carrinho: %s + %d outros", main.CourseTitle(), len(group)-1)
		}
		paymentID := ""
		if main.AsaasPaymentID != nil {
			paymentID = *main.AsaasPaymentID
		}
		return &GroupedSale{
			AsaasPaymentID: paymentID,
			MainSaleID:     main.ID,
			Label:          label,
			StudentName:    main.StudentName,
			Email:          main.Email,
			TotalPrice:     main.Price,
			CoursesCount:   len(group),
			Status:         main.Status,
			PaymentMethod:  main.PaymentMethod,
			Sales:          group,
		}
	})
}

var Module = fx.Options(
	fx.Provide(New),
)
