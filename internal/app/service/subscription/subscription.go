package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/tool"
	types "github.com/nclex311/billing/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Manager is the subscription surface consumed by the HTTP layer.
type Manager interface {
	GetByUserID(ctx context.Context, userID string) (*types.UserSubscriptionInfo, error)
	Revoke(ctx context.Context, userID, orderID string) error
}

// Service owns the subscription columns on the users table. Nothing else
// writes them, so every change lands in subscription_log with before/after
// snapshots taken in the same transaction.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

var _ Manager = (*Service)(nil)

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// applyChange mutates one user's subscription state and writes the audit row
// atomically. orderID is empty when no order caused the change.
func (s *Service) applyChange(ctx context.Context, userID, orderID string, reason types.SubscriptionChangeReason, mutate func(u *models.User)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		before := user.Subscription()
		mutate(&user)

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to save user subscription: %w", err)
		}

		entry := &models.SubscriptionLog{
			ID:      tool.GenerateUUIDV7(),
			UserID:  user.ID,
			OrderID: orderID,
			Reason:  reason,
			Before:  datatypes.NewJSONType(before),
			After:   datatypes.NewJSONType(user.Subscription()),
			Extra:   datatypes.JSONMap{},
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to save subscription log: %w", err)
		}
		return nil
	})
}

// Grant marks the user premium on the given plan until expiresAt. The caller
// decides the expiry; granting again simply overwrites the current window.
func (s *Service) Grant(ctx context.Context, userID string, plan types.PlanType, expiresAt time.Time, autoRenew bool, orderID string) error {
	if !plan.Valid() {
		return fmt.Errorf("invalid plan type: %s", plan)
	}
	now := time.Now()
	err := s.applyChange(ctx, userID, orderID, types.SubscriptionChangeReasonPurchase, func(u *models.User) {
		p := plan
		u.SubscriptionStatus = types.SubscriptionStatusPremium
		u.SubscriptionPlan = &p
		u.SubscriptionStartedAt = &now
		u.SubscriptionExpiresAt = &expiresAt
		u.AutoRenew = autoRenew
	})
	if err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infof("granted %s to user %s until %s, order_id=%s", plan, userID, expiresAt.Format(time.RFC3339), orderID)
	return nil
}

// Revoke withdraws the entitlement after a refund.
func (s *Service) Revoke(ctx context.Context, userID, orderID string) error {
	err := s.applyChange(ctx, userID, orderID, types.SubscriptionChangeReasonRefund, func(u *models.User) {
		u.SubscriptionStatus = types.SubscriptionStatusCancelled
		u.SubscriptionPlan = nil
		u.SubscriptionStartedAt = nil
		u.SubscriptionExpiresAt = nil
		u.AutoRenew = false
	})
	if err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infof("revoked subscription for user %s, order_id=%s", userID, orderID)
	return nil
}

// ExpireLapsed flips premium users whose window has passed to expired.
// The plan and window columns stay in place for support lookups.
func (s *Service) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	var lapsed []*models.User
	err := s.db.WithContext(ctx).
		Where("subscription_status = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?",
			types.SubscriptionStatusPremium, now).
		Find(&lapsed).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list lapsed subscriptions: %w", err)
	}

	expired := 0
	for _, u := range lapsed {
		err := s.applyChange(ctx, u.ID, "", types.SubscriptionChangeReasonExpiry, func(u *models.User) {
			u.SubscriptionStatus = types.SubscriptionStatusExpired
			u.AutoRenew = false
		})
		if err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to expire subscription for user %s: %v", u.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

// GetByUserID returns the user's subscription view. A premium row whose
// window already passed reads as expired even before the sweeper runs.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*types.UserSubscriptionInfo, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := &types.UserSubscriptionInfo{
		Status:    user.SubscriptionStatus,
		Plan:      user.SubscriptionPlan,
		StartedAt: user.SubscriptionStartedAt,
		ExpiresAt: user.SubscriptionExpiresAt,
		AutoRenew: user.AutoRenew,
	}
	if user.SubscriptionStatus == types.SubscriptionStatusPremium && !user.PremiumActive(time.Now()) {
		info.Status = types.SubscriptionStatusExpired
		info.AutoRenew = false
	}
	return info, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// EnsureUser returns the user row, creating a free one on first contact.
// Checkout calls this so a webhook can always grant against an existing row.
func (s *Service) EnsureUser(ctx context.Context, userID, email string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	user := &models.User{}
	err := s.db.WithContext(ctx).
		Where(&models.User{ID: userID}).
		Attrs(&models.User{Email: email, SubscriptionStatus: types.SubscriptionStatusFree}).
		FirstOrCreate(user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, nil
}
