package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/entity"
	"github.com/civipay/authnet-gateway/app/gateway"
	"github.com/civipay/authnet-gateway/app/repository"
)

func newTestLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type fakeContributionRepo struct {
	contributions map[uint64]*entity.Contribution
	nextID        uint64
}

func newFakeContributionRepo() *fakeContributionRepo {
	return &fakeContributionRepo{
		contributions: map[uint64]*entity.Contribution{},
		nextID:        1,
	}
}

func (r *fakeContributionRepo) Create(_ context.Context, contribution *entity.Contribution) error {
	id := r.nextID
	r.nextID++
	copyItem := *contribution
	copyItem.ID = id
	r.contributions[id] = &copyItem
	contribution.ID = id
	return nil
}

func (r *fakeContributionRepo) Update(_ context.Context, contribution *entity.Contribution) error {
	if _, ok := r.contributions[contribution.ID]; !ok {
		return repository.ErrContributionNotFound
	}
	copyItem := *contribution
	r.contributions[contribution.ID] = &copyItem
	return nil
}

func (r *fakeContributionRepo) FindByID(_ context.Context, id uint64) (*entity.Contribution, error) {
	item, ok := r.contributions[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeContributionRepo) FindByInvoiceID(_ context.Context, invoiceID string) (*entity.Contribution, error) {
	truncated := gateway.TruncateInvoiceNumber(invoiceID)
	var latest *entity.Contribution
	for _, item := range r.contributions {
		if item.InvoiceID != truncated {
			continue
		}
		if latest == nil || item.ID > latest.ID {
			latest = item
		}
	}
	if latest == nil {
		return nil, nil
	}
	copyItem := *latest
	return &copyItem, nil
}

func (r *fakeContributionRepo) FindByTrxnID(_ context.Context, trxnID string) (*entity.Contribution, error) {
	for _, item := range r.contributions {
		if item.TrxnID != nil && *item.TrxnID == trxnID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *fakeContributionRepo) FindLatestByRecurID(_ context.Context, recurID uint64) (*entity.Contribution, error) {
	var latest *entity.Contribution
	for _, item := range r.contributions {
		if item.ContributionRecurID == nil || *item.ContributionRecurID != recurID {
			continue
		}
		if latest == nil || item.ID > latest.ID {
			latest = item
		}
	}
	if latest == nil {
		return nil, nil
	}
	copyItem := *latest
	return &copyItem, nil
}

func (r *fakeContributionRepo) HasOtherWithInvoiceID(_ context.Context, invoiceID string, excludeID uint64) (bool, error) {
	truncated := gateway.TruncateInvoiceNumber(invoiceID)
	for _, item := range r.contributions {
		if item.ID == excludeID {
			continue
		}
		if item.StatusID == entity.ContributionStatusFailed {
			continue
		}
		if item.InvoiceID == truncated {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeContributionRepo) List(_ context.Context, filter repository.ContributionFilter) ([]*entity.Contribution, error) {
	items := make([]*entity.Contribution, 0)
	for _, item := range r.contributions {
		if filter.ContactID > 0 && item.ContactID != filter.ContactID {
			continue
		}
		if filter.ContributionRecurID > 0 && (item.ContributionRecurID == nil || *item.ContributionRecurID != filter.ContributionRecurID) {
			continue
		}
		if filter.HasStatus && item.StatusID != filter.Status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *fakeContributionRepo) count() int {
	return len(r.contributions)
}

type fakeRecurRepo struct {
	recurs map[uint64]*entity.ContributionRecur
	nextID uint64
}

func newFakeRecurRepo() *fakeRecurRepo {
	return &fakeRecurRepo{
		recurs: map[uint64]*entity.ContributionRecur{},
		nextID: 1,
	}
}

func (r *fakeRecurRepo) Create(_ context.Context, recur *entity.ContributionRecur) error {
	id := r.nextID
	r.nextID++
	copyItem := *recur
	copyItem.ID = id
	r.recurs[id] = &copyItem
	recur.ID = id
	return nil
}

func (r *fakeRecurRepo) Update(_ context.Context, recur *entity.ContributionRecur) error {
	if _, ok := r.recurs[recur.ID]; !ok {
		return repository.ErrContributionRecurNotFound
	}
	copyItem := *recur
	r.recurs[recur.ID] = &copyItem
	return nil
}

func (r *fakeRecurRepo) FindByID(_ context.Context, id uint64) (*entity.ContributionRecur, error) {
	item, ok := r.recurs[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeRecurRepo) FindBySubscriptionID(_ context.Context, subscriptionID string) (*entity.ContributionRecur, error) {
	for _, item := range r.recurs {
		if item.SubscriptionID != nil && *item.SubscriptionID == subscriptionID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *fakeRecurRepo) Cancel(_ context.Context, id uint64, cancelledAt time.Time) error {
	item, ok := r.recurs[id]
	if !ok {
		return repository.ErrContributionRecurNotFound
	}
	item.StatusID = entity.ContributionStatusCancelled
	item.AutoRenew = false
	cancelled := cancelledAt
	item.CancelDate = &cancelled
	item.UpdatedAt = cancelledAt
	return nil
}

type fakeRecordRepo struct {
	records []*entity.PaymentRecord
	nextID  uint64
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{nextID: 1}
}

func (r *fakeRecordRepo) Create(_ context.Context, record *entity.PaymentRecord) error {
	for _, item := range r.records {
		if item.TrxnID == record.TrxnID {
			return repository.ErrPaymentRecordAlreadyExists
		}
	}
	copyItem := *record
	copyItem.ID = r.nextID
	r.nextID++
	r.records = append(r.records, &copyItem)
	record.ID = copyItem.ID
	return nil
}

func (r *fakeRecordRepo) ExistsByTrxnID(_ context.Context, trxnID string) (bool, error) {
	for _, item := range r.records {
		if item.TrxnID == trxnID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRecordRepo) ListByContributionID(_ context.Context, contributionID uint64) ([]*entity.PaymentRecord, error) {
	items := make([]*entity.PaymentRecord, 0)
	for _, item := range r.records {
		if item.ContributionID != contributionID {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	return items, nil
}

type fakeGateway struct {
	signatureKey string

	chargeResult *gateway.ChargeResult
	chargeErr    error
	chargeCalls  int
	lastCharge   gateway.ChargeInput

	subscriptionID   string
	createSubErr     error
	createSubCalls   int
	lastSubscription gateway.SubscriptionInput

	updateSubErr   error
	updateSubCalls int
	lastUpdate     gateway.SubscriptionUpdate

	cancelSubErr    error
	cancelSubCalls  int
	lastCancelledID string

	details      *gateway.TransactionDetails
	detailsErr   error
	detailsCalls int

	webhooks       []gateway.Webhook
	listErr        error
	createdWebhook *gateway.Webhook
	createCalls    int
	updateCalls    int
}

func (g *fakeGateway) SignatureKey() string {
	return g.signatureKey
}

func (g *fakeGateway) Charge(_ context.Context, input gateway.ChargeInput) (*gateway.ChargeResult, error) {
	g.chargeCalls++
	g.lastCharge = input
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return g.chargeResult, nil
}

func (g *fakeGateway) CreateSubscription(_ context.Context, input gateway.SubscriptionInput) (string, error) {
	g.createSubCalls++
	g.lastSubscription = input
	if g.createSubErr != nil {
		return "", g.createSubErr
	}
	return g.subscriptionID, nil
}

func (g *fakeGateway) UpdateSubscription(_ context.Context, subscriptionID string, update gateway.SubscriptionUpdate) error {
	g.updateSubCalls++
	g.lastUpdate = update
	return g.updateSubErr
}

func (g *fakeGateway) CancelSubscription(_ context.Context, subscriptionID string) error {
	g.cancelSubCalls++
	g.lastCancelledID = subscriptionID
	return g.cancelSubErr
}

func (g *fakeGateway) GetTransactionDetails(_ context.Context, transID string) (*gateway.TransactionDetails, error) {
	g.detailsCalls++
	if g.detailsErr != nil {
		return nil, g.detailsErr
	}
	if g.details == nil {
		return nil, errors.New("no details scripted")
	}
	copyItem := *g.details
	return &copyItem, nil
}

func (g *fakeGateway) ListWebhooks(_ context.Context) ([]gateway.Webhook, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.webhooks, nil
}

func (g *fakeGateway) CreateWebhook(_ context.Context, callbackURL string) (*gateway.Webhook, error) {
	g.createCalls++
	if g.createdWebhook != nil {
		return g.createdWebhook, nil
	}
	return &gateway.Webhook{
		WebhookID:  "wh-created",
		URL:        callbackURL,
		Status:     "active",
		EventTypes: gateway.DefaultEnabledEvents(),
	}, nil
}

func (g *fakeGateway) UpdateWebhook(_ context.Context, webhook gateway.Webhook) error {
	g.updateCalls++
	return nil
}
