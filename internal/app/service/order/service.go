package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "github.com/nclex311/billing/internal/models"
	types "github.com/nclex311/billing/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager is the order surface consumed by the HTTP layer.
type Manager interface {
	Scan(ctx context.Context, req *ScanOrdersRequest) (*ScanOrdersResponse, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	Update(ctx context.Context, orderID string, fields map[string]any) (*models.Order, error)
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

var _ Manager = (*Service)(nil)

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Create inserts a new order row. The caller supplies the order ID so it
// can be used as the gateway external reference before the row exists.
func (s *Service) Create(ctx context.Context, o *models.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order id is required")
	}
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *Service) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

// Update applies the given column set to one order and returns the fresh row.
// Writes are last-write-wins; callers that care about the prior status read
// the row first.
func (s *Service) Update(ctx context.Context, orderID string, fields map[string]any) (*models.Order, error) {
	if len(fields) == 0 {
		return s.FindByOrderID(ctx, orderID)
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return s.FindByOrderID(ctx, orderID)
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
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

// Scan order request/response.
type ScanOrdersRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanOrdersResponse struct {
	Items []*models.Order `json:"items"`
	Total int64           `json:"total"`
}

// Scan implements paginated/admin listing with filters
func (s *Service) Scan(ctx context.Context, req *ScanOrdersRequest) (*ScanOrdersResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Order{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var rows []*models.Order

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &ScanOrdersResponse{Items: rows, Total: total}, nil
}

// ExpireStale flips pending orders to expired once their invoice expiry has
// passed, or once they are older than pendingTTL when no expiry was recorded.
// Returns the stale order IDs so the caller can expire the gateway invoices.
func (s *Service) ExpireStale(ctx context.Context, now time.Time, pendingTTL time.Duration) ([]*models.Order, error) {
	var stale []*models.Order
	err := s.db.WithContext(ctx).
		Where("status = ?", types.OrderStatusPending).
		Where(
			s.db.Where("expires_at IS NOT NULL AND expires_at < ?", now).
				Or("expires_at IS NULL AND created_at < ?", now.Add(-pendingTTL)),
		).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(stale))
	for _, o := range stale {
		ids = append(ids, o.ID)
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ? AND status = ?", ids, types.OrderStatusPending).
		Updates(map[string]any{"status": types.OrderStatusExpired})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to expire stale orders: %w", res.Error)
	}
	s.log.Infow("expired stale pending orders", "count", res.RowsAffected)
	return stale, nil
}
