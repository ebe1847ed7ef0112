package statistics

import (
	"context"
	"math"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/pkg/types"
)

// defaultPeriodDays is the lookback window when the caller gives none.
const defaultPeriodDays = 30

// dailyTrendDays is the length of the per-day revenue series.
const dailyTrendDays = 7

type Period struct {
	Days      int       `json:"days"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type Overview struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalSales    int64   `json:"total_sales"`
	AverageTicket float64 `json:"average_ticket"`
	NewStudents   int64   `json:"new_students"`
}

type StatusBreakdown struct {
	Paid      int64 `json:"paid"`
	Pending   int64 `json:"pending"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

type GroupedStat struct {
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

type DailyStat struct {
	Date  string  `json:"date"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// Response is the admin dashboard payload. Revenue numbers only count
// paid sales; the breakdown counts every status for comparison.
type Response struct {
	Period          Period          `json:"period"`
	Overview        Overview        `json:"overview"`
	StatusBreakdown StatusBreakdown `json:"status_breakdown"`
	PaymentMethods  []GroupedStat   `json:"payment_methods"`
	TopCourses      []GroupedStat   `json:"top_courses"`
	DailyTrend      []DailyStat     `json:"daily_trend"`
}

// Service computes sales aggregates for the admin dashboard.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// GetSalesStatistics aggregates sales over the trailing period.
func (s *Service) GetSalesStatistics(ctx context.Context, days int) (*Response, error) {
	if days <= 0 {
		days = defaultPeriodDays
	}
	now := time.Now()
	start := now.AddDate(0, 0, -days)

	paid := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("created_at >= ? AND status = ?", start, types.SaleStatusPaid)

	var totals struct {
		Total float64
		Count int64
	}
	if err := paid.Session(&gorm.Session{}).
		Select("COALESCE(SUM(price), 0) as total, COUNT(*) as count").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var newStudents int64
	if err := paid.Session(&gorm.Session{}).
		Distinct("email").
		Count(&newStudents).Error; err != nil {
		return nil, err
	}

	breakdown, err := s.statusBreakdown(ctx, start)
	if err != nil {
		return nil, err
	}

	methods, err := s.groupedStats(ctx, start, "payment_method")
	if err != nil {
		return nil, err
	}

	topCourses, err := s.topCourses(ctx, start)
	if err != nil {
		return nil, err
	}

	trend, err := s.dailyTrend(ctx, now)
	if err != nil {
		return nil, err
	}

	averageTicket := 0.0
	if totals.Count > 0 {
		averageTicket = math.Round(totals.Total/float64(totals.Count)*100) / 100
	}

	return &Response{
		Period: Period{Days: days, StartDate: start, EndDate: now},
		Overview: Overview{
			TotalRevenue:  totals.Total,
			TotalSales:    totals.Count,
			AverageTicket: averageTicket,
			NewStudents:   newStudents,
		},
		StatusBreakdown: breakdown,
		PaymentMethods:  methods,
		TopCourses:      topCourses,
		DailyTrend:      trend,
	}, nil
}

func (s *Service) statusBreakdown(ctx context.Context, start time.Time) (StatusBreakdown, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ?", start).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return StatusBreakdown{}, err
	}

	var b StatusBreakdown
	for _, row := range rows {
		b.Total += row.Count
		switch types.SaleStatus(row.Status) {
		case types.SaleStatusPaid:
			b.Paid = row.Count
		case types.SaleStatusPending:
			b.Pending = row.Count
		case types.SaleStatusCancelled:
			b.Cancelled = row.Count
		}
	}
	return b, nil
}

func (s *Service) groupedStats(ctx context.Context, start time.Time, column string) ([]GroupedStat, error) {
	var rows []GroupedStat
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select(column+" as label, COUNT(*) as count, COALESCE(SUM(price), 0) as total").
		Where("created_at >= ? AND status = ?", start, types.SaleStatusPaid).
		Group(column).
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}

func (s *Service) topCourses(ctx context.Context, start time.Time) ([]GroupedStat, error) {
	var rows []GroupedStat
	err := s.db.WithContext(ctx).
		Table((models.Sale{}).TableName()).
		Select("COALESCE(course_title_snapshot, 'Curso removido') as label, COUNT(*) as count, COALESCE(SUM(price), 0) as total").
		Where("created_at >= ? AND status = ?", start, types.SaleStatusPaid).
		Group("course_title_snapshot").
		Order("total DESC").
		Limit(5).
		Scan(&rows).Error
	return rows, err
}

func (s *Service) dailyTrend(ctx context.Context, now time.Time) ([]DailyStat, error) {
	var rows []DailyStat
	since := now.AddDate(0, 0, -(dailyTrendDays - 1))
	err := s.db.WithContext(ctx).
		Table((models.Sale{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, COUNT(*) as count, COALESCE(SUM(price), 0) as total").
		Where("created_at >= ? AND status = ?", since.Truncate(24*time.Hour), types.SaleStatusPaid).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date").
		Scan(&rows).Error
	return rows, err
}

// Module exposes the statistics service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
