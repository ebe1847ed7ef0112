package catalogsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cursopassei/checkout/internal/models"
	"github.com/cursopassei/checkout/internal/platform/themembers"
	"github.com/cursopassei/checkout/pkg/tool"
)

// Catalog lists the remote product catalog.
type Catalog interface {
	ListProducts(ctx context.Context) ([]themembers.Product, error)
}

// Service mirrors the TheMembers product catalog into the local
// themembers_product table so courses can be linked to products.
type Service struct {
	db      *gorm.DB
	catalog Catalog
	log     *zap.SugaredLogger
}

func NewService(db *gorm.DB, catalog Catalog, log *zap.SugaredLogger) *Service {
	return &Service{db: db, catalog: catalog, log: log}
}

// SyncResult summarizes a sync run.
type SyncResult struct {
	Total   int `json:"total_processed"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"errors"`
}

// SyncProducts pulls the full catalog and upserts each product. Every
// run writes a sync log row, including failed ones.
func (s *Service) SyncProducts(ctx context.Context) (*SyncResult, error) {
	started := time.Now()

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		s.writeLog(ctx, started, models.SyncStatusFailed, &SyncResult{Failed: 1}, err.Error())
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := &SyncResult{Total: len(products)}
	for _, p := range products {
		if p.ID == "" {
			result.Failed++
			continue
		}
		created, err := s.upsertProduct(ctx, p)
		if err != nil {
			s.log.Warnw("product upsert failed", "product_id", p.ID, "err", err)
			result.Failed++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	status := models.SyncStatusSuccess
	if result.Failed > 0 {
		status = models.SyncStatusPartial
		if result.Created+result.Updated == 0 {
			status = models.SyncStatusFailed
		}
	}
	s.writeLog(ctx, started, status, result, "")

	s.log.Infow("catalog sync finished",
		"total", result.Total, "created", result.Created, "updated", result.Updated, "failed", result.Failed)
	return result, nil
}

func (s *Service) upsertProduct(ctx context.Context, p themembers.Product) (created bool, err error) {
	now := time.Now()
	status := p.Status
	if status == "" {
		status = "active"
	}

	var existing models.TheMembersProduct
	err = s.db.WithContext(ctx).First(&existing, "product_id = ?", p.ID).Error
	if err == gorm.ErrRecordNotFound {
		row := models.TheMembersProduct{
			ID:        tool.GenerateUUIDV7(),
			ProductID: p.ID,
			Title:     p.Title,
			Price:     decimalFromFloat(p.Value),
			Status:    status,
			LastSync:  &now,
		}
		if p.Description != "" {
			row.Description = &p.Description
		}
		// On a concurrent insert of the same product_id the unique
		// index wins; treat it as an update next run.
		createErr := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).Create(&row).Error
		return createErr == nil, createErr
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"title":     p.Title,
		"price":     decimalFromFloat(p.Value),
		"status":    status,
		"last_sync": now,
	}
	if p.Description != "" {
		updates["description"] = p.Description
	}
	return false, s.db.WithContext(ctx).
		Model(&models.TheMembersProduct{}).
		Where("product_id = ?", p.ID).
		Updates(updates).Error
}

func (s *Service) writeLog(ctx context.Context, started time.Time, status models.SyncStatus, result *SyncResult, errMsg string) {
	completed := time.Now()
	duration := completed.Sub(started).Seconds()
	row := models.TheMembersSyncLog{
		ID:              tool.GenerateUUIDV7(),
		SyncType:        "products",
		Status:          status,
		ItemsProcessed:  result.Total,
		ItemsSuccess:    result.Created + result.Updated,
		ItemsFailed:     result.Failed,
		StartedAt:       started,
		CompletedAt:     &completed,
		DurationSeconds: &duration,
	}
	if errMsg != "" {
		row.Errors = &errMsg
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Errorw("failed to write sync log", "err", err)
	}
}
