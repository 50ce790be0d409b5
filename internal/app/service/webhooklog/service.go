package webhooklog

import (
	"context"
	"fmt"
	"time"

	"github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/tool"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the delivery ledger, the sole source of truth for webhook
// deduplication. Writes are synchronous: the ledger gates processing, so a
// caller must observe its own insert before doing any work.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// IsProcessed reports whether a delivery with this webhook id already
// completed processing.
func (s *Service) IsProcessed(ctx context.Context, webhookID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("webhook_id = ? AND processed = ?", webhookID, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check webhook log: %w", err)
	}
	return count > 0, nil
}

// Create inserts the ledger row for a new delivery with processed=false.
// Exactly one concurrent attempt per webhook id can succeed; the rest get
// ErrDuplicateDelivery via the unique index on webhook_id.
func (s *Service) Create(ctx context.Context, entry *models.WebhookLog) error {
	if entry == nil || entry.WebhookID == "" {
		return fmt.Errorf("webhook log entry requires a webhook id")
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "webhook_id"}}, DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return fmt.Errorf("failed to create webhook log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateDelivery, entry.WebhookID)
	}
	return nil
}

// MarkProcessed flips the row to processed with a timestamp. Idempotent.
func (s *Service) MarkProcessed(ctx context.Context, webhookID string) error {
	res := s.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("webhook_id = ?", webhookID).
		Updates(map[string]any{"processed": true, "processed_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, s.log).Warnw("mark processed for unknown webhook id", "webhook_id", webhookID)
	}
	return nil
}

// GetByWebhookID loads one ledger row for audit and ops reads.
func (s *Service) GetByWebhookID(ctx context.Context, webhookID string) (*models.WebhookLog, error) {
	var entry models.WebhookLog
	if err := s.db.WithContext(ctx).Where("webhook_id = ?", webhookID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
