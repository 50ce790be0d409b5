package webhook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/internal/app/service/webhooklog"
	"github.com/nclex311/billing/internal/platform/mail"
	models "github.com/nclex311/billing/internal/models"
	types "github.com/nclex311/billing/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct{ ok bool }

func (v *stubVerifier) Verify(token, signature string, raw []byte) bool { return v.ok }

type fakeLedger struct {
	rows      map[string]*models.WebhookLog
	createErr error
	markErr   error
	creates   int
	marks     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: map[string]*models.WebhookLog{}}
}

func (l *fakeLedger) IsProcessed(ctx context.Context, webhookID string) (bool, error) {
	row, ok := l.rows[webhookID]
	return ok && row.Processed, nil
}

func (l *fakeLedger) Create(ctx context.Context, entry *models.WebhookLog) error {
	l.creates++
	if l.createErr != nil {
		return l.createErr
	}
	if _, ok := l.rows[entry.WebhookID]; ok {
		return fmt.Errorf("%w: %s", webhooklog.ErrDuplicateDelivery, entry.WebhookID)
	}
	cp := *entry
	l.rows[entry.WebhookID] = &cp
	return nil
}

func (l *fakeLedger) MarkProcessed(ctx context.Context, webhookID string) error {
	l.marks++
	if l.markErr != nil {
		return l.markErr
	}
	if row, ok := l.rows[webhookID]; ok && !row.Processed {
		now := time.Now()
		row.Processed = true
		row.ProcessedAt = &now
	}
	return nil
}

func (l *fakeLedger) GetByWebhookID(ctx context.Context, webhookID string) (*models.WebhookLog, error) {
	row, ok := l.rows[webhookID]
	if !ok {
		return nil, fmt.Errorf("ledger row not found: %s", webhookID)
	}
	return row, nil
}

type fakeOrders struct {
	rows      map[string]*models.Order
	updateErr error
	updates   []map[string]any
}

func (f *fakeOrders) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	o, ok := f.rows[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, orderID)
	}
	return o, nil
}

func (f *fakeOrders) Update(ctx context.Context, orderID string, fields map[string]any) (*models.Order, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	o, ok := f.rows[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, orderID)
	}
	f.updates = append(f.updates, fields)
	if st, ok := fields["status"].(types.OrderStatus); ok {
		o.Status = st
	}
	if code, ok := fields["failure_code"].(string); ok {
		o.FailureCode = code
	}
	return o, nil
}

type grantCall struct {
	userID    string
	plan      types.PlanType
	expiresAt time.Time
	autoRenew bool
	orderID   string
}

type fakeEntitlements struct {
	users    map[string]*models.User
	grantErr error
	grants   []grantCall
}

func (f *fakeEntitlements) Grant(ctx context.Context, userID string, plan types.PlanType, expiresAt time.Time, autoRenew bool, orderID string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants = append(f.grants, grantCall{userID: userID, plan: plan, expiresAt: expiresAt, autoRenew: autoRenew, orderID: orderID})
	return nil
}

func (f *fakeEntitlements) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", subscription.ErrUserNotFound, userID)
	}
	return u, nil
}

type fakeMailer struct {
	sendErr error
	sent    []*mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg *mail.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	svc      *Service
	verifier *stubVerifier
	ledger   *fakeLedger
	orders   *fakeOrders
	ents     *fakeEntitlements
	mailer   *fakeMailer
}

func newFixture(seed ...*models.Order) *fixture {
	f := &fixture{
		verifier: &stubVerifier{ok: true},
		ledger:   newFakeLedger(),
		orders:   &fakeOrders{rows: map[string]*models.Order{}},
		ents: &fakeEntitlements{users: map[string]*models.User{
			"user_7": {ID: "user_7", Email: "nurse@example.com"},
		}},
		mailer: &fakeMailer{},
	}
	for _, o := range seed {
		f.orders.rows[o.ID] = o
	}
	f.svc = New(f.verifier, f.ledger, f.orders, f.ents, f.mailer, zap.NewNop().Sugar())
	return f
}

func pendingOrder(id, userID string, plan types.PlanType, amount int64) *models.Order {
	return &models.Order{
		ID:          id,
		UserID:      userID,
		Amount:      amount,
		Currency:    "PHP",
		Status:      types.OrderStatusPending,
		PlanType:    plan,
		IsRecurring: plan.Recurring(),
	}
}

const paidBody = `{"id":"wh_1","external_id":"order_42","status":"PAID","paid_amount":20000,"payment_method":"GCASH"}`

func TestProcess_PaidGrantsEntitlement(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))

	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.Equal(t, "wh_1", res.WebhookID)
	require.Equal(t, types.WebhookEventInvoicePaid, res.EventType)
	require.False(t, res.Duplicate)

	require.Equal(t, types.OrderStatusPaid, f.orders.rows["order_42"].Status)
	require.Len(t, f.orders.updates, 1)
	require.EqualValues(t, 20000, *(f.orders.updates[0]["paid_amount"].(*int64)))
	require.Equal(t, "GCASH", f.orders.updates[0]["payment_method"])

	require.Len(t, f.ents.grants, 1)
	grant := f.ents.grants[0]
	require.Equal(t, "user_7", grant.userID)
	require.Equal(t, types.PlanTypeMonthlyPremium, grant.plan)
	require.Equal(t, "order_42", grant.orderID)
	require.True(t, grant.autoRenew)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), grant.expiresAt, time.Minute)

	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "nurse@example.com", f.mailer.sent[0].To)

	row := f.ledger.rows["wh_1"]
	require.NotNil(t, row)
	require.True(t, row.Processed)
	require.NotNil(t, row.ProcessedAt)
	require.JSONEq(t, paidBody, row.RawPayload)
}

func TestProcess_AnnualPlanGrant(t *testing.T) {
	f := newFixture(pendingOrder("order_43", "user_7", types.PlanTypeAnnualPremium, 192000))
	body := `{"id":"wh_2","external_id":"order_43","status":"PAID","paid_amount":192000}`

	_, err := f.svc.Process(context.Background(), "token", "", []byte(body))
	require.NoError(t, err)

	require.Len(t, f.ents.grants, 1)
	grant := f.ents.grants[0]
	require.Equal(t, types.PlanTypeAnnualPremium, grant.plan)
	require.False(t, grant.autoRenew)
	require.WithinDuration(t, time.Now().Add(365*24*time.Hour), grant.expiresAt, time.Minute)
}

func TestProcess_RedeliveryShortCircuits(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))

	first, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.True(t, second.Duplicate)

	require.Len(t, f.ents.grants, 1)
	require.Len(t, f.orders.updates, 1)
	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, 1, f.ledger.creates)
	require.Equal(t, 1, f.ledger.marks)
}

func TestProcess_InsertRaceOnSettledRowIsDuplicate(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	now := time.Now()
	f.ledger.rows["wh_1"] = &models.WebhookLog{
		WebhookID:   "wh_1",
		EventType:   types.WebhookEventInvoicePaid,
		Processed:   true,
		ProcessedAt: &now,
	}

	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.True(t, res.Duplicate)
	require.Empty(t, f.ents.grants)
	require.Empty(t, f.orders.updates)
}

func TestProcess_ResumesUnsettledDelivery(t *testing.T) {
	// A prior attempt inserted the ledger row and failed before marking it.
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	f.ledger.rows["wh_1"] = &models.WebhookLog{
		WebhookID:  "wh_1",
		EventType:  types.WebhookEventInvoicePaid,
		RawPayload: paidBody,
	}

	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	require.Len(t, f.ents.grants, 1)
	require.True(t, f.ledger.rows["wh_1"].Processed)
}

func TestProcess_UnknownOrderSettlesLedger(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.ErrorIs(t, err, ErrUnknownOrder)

	row := f.ledger.rows["wh_1"]
	require.NotNil(t, row)
	require.True(t, row.Processed)
	require.Empty(t, f.ents.grants)
	require.Empty(t, f.orders.updates)
	require.Empty(t, f.mailer.sent)
}

func TestProcess_VerificationFailureWritesNothing(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	f.verifier.ok = false

	_, err := f.svc.Process(context.Background(), "bad", "", []byte(paidBody))
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.Equal(t, 0, f.ledger.creates)
	require.Empty(t, f.ledger.rows)
	require.Empty(t, f.orders.updates)
}

func TestProcess_InvalidPayloadWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "array body", body: `[{"id":"wh_1"}]`},
		{name: "missing event id", body: `{"external_id":"order_42","status":"PAID"}`},
		{name: "missing order reference", body: `{"id":"wh_1","status":"PAID"}`},
		{name: "unknown status", body: `{"id":"wh_1","external_id":"order_42","status":"SETTLED"}`},
		{name: "lowercase status", body: `{"id":"wh_1","external_id":"order_42","status":"paid"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))

			_, err := f.svc.Process(context.Background(), "token", "", []byte(tt.body))
			require.ErrorIs(t, err, ErrInvalidPayload)
			require.Equal(t, 0, f.ledger.creates)
			require.Empty(t, f.orders.updates)
			require.Empty(t, f.ents.grants)
		})
	}
}

func TestProcess_ExpiredUpdatesOrderOnly(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	body := `{"id":"wh_3","external_id":"order_42","status":"EXPIRED"}`

	res, err := f.svc.Process(context.Background(), "token", "", []byte(body))
	require.NoError(t, err)
	require.Equal(t, types.WebhookEventInvoiceExpired, res.EventType)

	require.Equal(t, types.OrderStatusExpired, f.orders.rows["order_42"].Status)
	require.Empty(t, f.ents.grants)
	require.Empty(t, f.mailer.sent)
	require.True(t, f.ledger.rows["wh_3"].Processed)
}

func TestProcess_FailedRecordsFailureCode(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	body := `{"id":"wh_4","external_id":"order_42","status":"FAILED","failure_code":"INSUFFICIENT_BALANCE"}`

	_, err := f.svc.Process(context.Background(), "token", "", []byte(body))
	require.NoError(t, err)

	require.Equal(t, types.OrderStatusFailed, f.orders.rows["order_42"].Status)
	require.Equal(t, "INSUFFICIENT_BALANCE", f.orders.rows["order_42"].FailureCode)
	require.Empty(t, f.ents.grants)
}

func TestProcess_PendingSettlesWithoutTransition(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	body := `{"id":"wh_5","external_id":"order_42","status":"PENDING"}`

	res, err := f.svc.Process(context.Background(), "token", "", []byte(body))
	require.NoError(t, err)
	require.Equal(t, types.WebhookEventInvoicePending, res.EventType)

	require.Empty(t, f.orders.updates)
	require.Equal(t, types.OrderStatusPending, f.orders.rows["order_42"].Status)
	require.True(t, f.ledger.rows["wh_5"].Processed)
}

func TestProcess_GrantFailureLeavesLedgerUnsettled(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	f.ents.grantErr = errors.New("store unavailable")

	_, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrVerificationFailed)
	require.NotErrorIs(t, err, ErrInvalidPayload)
	require.NotErrorIs(t, err, ErrUnknownOrder)

	row := f.ledger.rows["wh_1"]
	require.NotNil(t, row)
	require.False(t, row.Processed)
	require.Empty(t, f.mailer.sent)

	// The gateway retries and the redelivery finishes the job.
	f.ents.grantErr = nil
	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	require.Len(t, f.ents.grants, 1)
	require.True(t, f.ledger.rows["wh_1"].Processed)
}

func TestProcess_MarkProcessedFailureReturnsError(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	f.ledger.markErr = errors.New("store unavailable")

	_, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrVerificationFailed)
	require.NotErrorIs(t, err, ErrInvalidPayload)
	require.NotErrorIs(t, err, ErrUnknownOrder)

	// The order transition and grant committed; only the settle was lost.
	require.Equal(t, types.OrderStatusPaid, f.orders.rows["order_42"].Status)
	require.Len(t, f.ents.grants, 1)
	require.False(t, f.ledger.rows["wh_1"].Processed)

	// The redelivery re-runs the paid branch and settles.
	f.ledger.markErr = nil
	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	require.Len(t, f.ents.grants, 2)
	require.True(t, f.ledger.rows["wh_1"].Processed)
}

func TestProcess_MailFailureDoesNotAffectOutcome(t *testing.T) {
	f := newFixture(pendingOrder("order_42", "user_7", types.PlanTypeMonthlyPremium, 20000))
	f.mailer.sendErr = errors.New("smtp down")

	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.False(t, res.Duplicate)

	require.Equal(t, types.OrderStatusPaid, f.orders.rows["order_42"].Status)
	require.Len(t, f.ents.grants, 1)
	require.True(t, f.ledger.rows["wh_1"].Processed)
}

func TestProcess_ConfirmationLookupFailureIsolated(t *testing.T) {
	// The user row vanished between grant and email; the delivery still settles.
	f := newFixture(pendingOrder("order_42", "stranger", types.PlanTypeMonthlyPremium, 20000))

	res, err := f.svc.Process(context.Background(), "token", "", []byte(paidBody))
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	require.Empty(t, f.mailer.sent)
	require.True(t, f.ledger.rows["wh_1"].Processed)
}
