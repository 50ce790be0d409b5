package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/types"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Order volume and revenue
	StatisticTypeDailyOrderCount StatisticType = "daily_order_count"
	StatisticTypeDailyRevenue    StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue    StatisticType = "total_revenue"

	// Subscription related
	StatisticTypeDailyNewPremiumCount StatisticType = "daily_new_premium_count"
	StatisticTypeActivePremiumCount   StatisticType = "active_premium_count"

	// Webhook delivery volume by event type
	StatisticTypeDailyWebhookCount StatisticType = "daily_webhook_count"
)

// Filter types supported by certain statistic types
type BillingStatisticFilterType string

const (
	BillingStatisticFilterTypePlanType  BillingStatisticFilterType = "plan_type"
	BillingStatisticFilterTypeRecurring BillingStatisticFilterType = "recurring"
	BillingStatisticFilterTypeStatus    BillingStatisticFilterType = "status"
)

var filterTypes = []BillingStatisticFilterType{
	BillingStatisticFilterTypePlanType,
	BillingStatisticFilterTypeRecurring,
	BillingStatisticFilterTypeStatus,
}

var validFilters = map[BillingStatisticFilterType][]StatisticType{
	BillingStatisticFilterTypePlanType:  {StatisticTypeDailyOrderCount, StatisticTypeDailyRevenue},
	BillingStatisticFilterTypeRecurring: {StatisticTypeDailyOrderCount, StatisticTypeDailyRevenue},
	BillingStatisticFilterTypeStatus:    {StatisticTypeDailyOrderCount},
}

type BillingStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type BillingStatisticRequest struct {
	Filters   []*types.CommonFilter       `json:"filters"`
	DataItems []*BillingStatisticDataItem `json:"data_items"`
}

func (f *BillingStatisticRequest) GetFilters(statisticType StatisticType) *BillingStatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result BillingStatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[BillingStatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause based on provided filters, with custom handling
// for the recurring flag which lives in a boolean column.
func (f *BillingStatisticRequest) Build(builder clause.Builder) {
	if len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		switch filter.Field {
		case string(BillingStatisticFilterTypeRecurring):
			if len(filter.Values) > 0 && fmt.Sprint(filter.Values[0]) == "true" {
				builder.WriteString("is_recurring = TRUE")
			} else {
				builder.WriteString("is_recurring = FALSE")
			}
		default:
			filter.Build(builder)
		}
	}
}

type BillingStatisticResponseDataItem struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type BillingStatisticResponse struct {
	DataItems map[StatisticType][]BillingStatisticResponseDataItem `json:"data_items"`
}

// Service provides statistics operations
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// Internal helpers for various stats
func (s *Service) getDailyOrderCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Order{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyOrderCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRevenue(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Order{}).TableName()).
		Select("TO_CHAR(paid_at, 'YYYY-MM-DD') as date, currency AS label, sum(paid_amount) as value").
		Where("status = ?", types.OrderStatusPaid).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyRevenue)}}).
		Group("TO_CHAR(paid_at, 'YYYY-MM-DD')").
		Group("currency").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalRevenue(ctx context.Context, _ *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH min_max_dates AS (
    SELECT MIN(DATE(paid_at)) as min_date, MAX(DATE(paid_at)) as max_date
    FROM orders WHERE status = ?
),
distinct_dates AS (
    SELECT generate_series(min_date, max_date, '1 day'::interval) as date FROM min_max_dates
),
dates AS (
    SELECT TO_CHAR(date, 'YYYY-MM-DD') as date FROM distinct_dates
),
currencies AS (
    SELECT DISTINCT currency as label FROM orders WHERE status = ?
),
date_currency_combinations AS (
    SELECT d.date, c.label FROM dates d CROSS JOIN currencies c
),
revenue_date AS (
    SELECT dc.date, dc.label, COALESCE(SUM(o.paid_amount), 0) as value
    FROM date_currency_combinations dc
    LEFT JOIN orders o
      ON TO_CHAR(o.paid_at, 'YYYY-MM-DD') = dc.date
     AND o.currency = dc.label
     AND o.status = ?
    GROUP BY dc.date, dc.label
)
SELECT d.date as date, d.label as label, SUM(s.value) as value
FROM revenue_date d
LEFT JOIN revenue_date s ON s.date <= d.date AND s.label = d.label
GROUP BY d.date, d.label
ORDER BY d.date DESC, d.label ASC
`, types.OrderStatusPaid, types.OrderStatusPaid, types.OrderStatusPaid).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewPremiumCount(ctx context.Context, _ *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH distinct_dates AS (
    SELECT DISTINCT DATE(created_at) as date FROM subscription_log WHERE reason = ?
),
user_id_date AS (
    SELECT user_id, DATE(created_at) as date FROM subscription_log WHERE reason = ?
)
SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, COUNT(DISTINCT s.user_id) as value
FROM distinct_dates d
JOIN user_id_date s ON s.date = d.date
GROUP BY d.date
ORDER BY d.date DESC
`, types.SubscriptionChangeReasonPurchase, types.SubscriptionChangeReasonPurchase).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActivePremiumCount(ctx context.Context, request *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.User{}).TableName()).
		Select("count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeActivePremiumCount)}}).
		Where("subscription_status = ?", types.SubscriptionStatusPremium).
		Where("subscription_expires_at >= ?", time.Now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyWebhookCount(ctx context.Context, _ *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.WebhookLog{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, event_type AS label, count(*) as value").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Group("event_type").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getBillingStatistic(ctx context.Context, request *BillingStatisticRequest, dataItem *BillingStatisticDataItem) ([]BillingStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyOrderCount:
		return s.getDailyOrderCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, request)
	case StatisticTypeDailyNewPremiumCount:
		return s.getDailyNewPremiumCount(ctx, request)
	case StatisticTypeActivePremiumCount:
		return s.getActivePremiumCount(ctx, request)
	case StatisticTypeDailyWebhookCount:
		return s.getDailyWebhookCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

func (s *Service) GetBillingStatistic(ctx context.Context, request *BillingStatisticRequest) (*BillingStatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []BillingStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *BillingStatisticDataItem) {
			defer wg.Done()
			// check filter applicability
			for _, filter := range request.Filters {
				ft := BillingStatisticFilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []BillingStatisticResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getBillingStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []BillingStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]BillingStatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &BillingStatisticResponse{DataItems: results}, nil
}
