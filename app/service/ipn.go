package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/entity"
	"github.com/civipay/authnet-gateway/app/gateway"
)

// eventIntent is the internal action a vendor event maps to.
type eventIntent int

const (
	intentIgnore eventIntent = iota
	intentComplete
	intentFail
	intentCancel
	intentRefund
	intentHold
	intentCancelSeries
)

// routePaymentEvent maps a trimmed payment event key to an intent. Unmapped
// events are a deliberate no-op so new vendor event types never break the
// endpoint.
func routePaymentEvent(key string) eventIntent {
	switch key {
	case "authcapture.created", "capture.created", "priorauthcapture.created":
		return intentComplete
	case "refund.created":
		return intentRefund
	case "void.created":
		return intentCancel
	case "fraud.held":
		return intentHold
	case "fraud.approved":
		return intentComplete
	case "fraud.declined":
		return intentFail
	default:
		return intentIgnore
	}
}

func routeSubscriptionEvent(key string) eventIntent {
	switch key {
	case "subscription.terminated", "subscription.cancelled":
		return intentCancelSeries
	default:
		return intentIgnore
	}
}

type ipnGateway interface {
	SignatureKey() string
	GetTransactionDetails(ctx context.Context, transID string) (*gateway.TransactionDetails, error)
}

type IPNService struct {
	contributionRepo contributionRepository
	recurRepo        contributionRecurRepository
	recordRepo       paymentRecordRepository
	gw               ipnGateway
	logger           *logrus.Entry
}

func NewIPNService(
	contributionRepo contributionRepository,
	recurRepo contributionRecurRepository,
	recordRepo paymentRecordRepository,
	gw ipnGateway,
	logger *logrus.Entry,
) *IPNService {
	return &IPNService{
		contributionRepo: contributionRepo,
		recurRepo:        recurRepo,
		recordRepo:       recordRepo,
		gw:               gw,
		logger:           logger,
	}
}

// HandleWebhook processes one webhook delivery start to finish. The payload
// is acted on only after the signature verifies, and classification comes
// from an authenticated detail fetch, never from the notification body
// itself. Subscription events skip the fetch: their payload id is the
// subscription id.
func (s *IPNService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if !gateway.VerifyWebhookSignature(payload, signatureHeader, s.gw.SignatureKey()) {
		return ErrInvalidSignature
	}

	notification, err := gateway.ParseWebhookNotification(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	key := gateway.EventKey(notification.EventType)
	logger := s.logger.WithFields(logrus.Fields{
		"event_type":      notification.EventType,
		"notification_id": notification.NotificationID,
	})

	if gateway.IsSubscriptionEvent(notification.EventType) {
		return s.handleSubscriptionEvent(ctx, key, notification, logger)
	}
	return s.handlePaymentEvent(ctx, key, notification, logger)
}

// GetTransactionDetails exposes the authenticated detail fetch used during
// reconciliation, for operators chasing a specific vendor transaction.
func (s *IPNService) GetTransactionDetails(ctx context.Context, transID string) (*gateway.TransactionDetails, error) {
	if transID == "" {
		return nil, ErrMissingTransactionID
	}
	return s.gw.GetTransactionDetails(ctx, transID)
}

func (s *IPNService) handleSubscriptionEvent(ctx context.Context, key string, notification *gateway.WebhookNotification, logger *logrus.Entry) error {
	if routeSubscriptionEvent(key) != intentCancelSeries {
		logger.Debug("ignoring unmapped subscription event")
		return nil
	}

	subscriptionID := notification.EntityID()
	if subscriptionID == "" {
		return ErrMissingTransactionID
	}

	recur, err := s.recurRepo.FindBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if recur == nil {
		return fmt.Errorf("%w: subscription %s", ErrRecurNotFound, subscriptionID)
	}

	if recur.StatusID == entity.ContributionStatusCancelled {
		logger.WithField("recur_id", recur.ID).Debug("series already cancelled")
		return nil
	}

	if err := s.recurRepo.Cancel(ctx, recur.ID, time.Now().UTC()); err != nil {
		return err
	}
	logger.WithField("recur_id", recur.ID).Info("recurring series cancelled")
	return nil
}

func (s *IPNService) handlePaymentEvent(ctx context.Context, key string, notification *gateway.WebhookNotification, logger *logrus.Entry) error {
	intent := routePaymentEvent(key)
	if intent == intentIgnore {
		logger.Debug("ignoring unmapped payment event")
		return nil
	}

	transID := notification.EntityID()
	if transID == "" {
		return ErrMissingTransactionID
	}

	details, err := s.gw.GetTransactionDetails(ctx, transID)
	if err != nil {
		return err
	}

	logger = logger.WithField("trxn_id", details.TransID)

	switch intent {
	case intentHold:
		// Reserved for a future "held" annotation.
		logger.Info("transaction held for review")
		return nil
	case intentComplete:
		if details.IsRecurring() {
			return s.completeRecurringPayment(ctx, details, logger)
		}
		return s.completeSinglePayment(ctx, details, logger)
	case intentFail:
		if details.IsRecurring() {
			return s.failRecurringPayment(ctx, details, logger)
		}
		return s.transitionContribution(ctx, details, entity.ContributionStatusFailed, logger)
	case intentCancel:
		return s.transitionContribution(ctx, details, entity.ContributionStatusCancelled, logger)
	case intentRefund:
		return s.applyRefund(ctx, details, logger)
	default:
		return nil
	}
}

// resolveContribution matches a vendor transaction to its contribution, by
// the recorded transaction id first and the invoice number second. Voids and
// fraud decisions carry the original transaction id, so the trxn lookup finds
// held rows even when the vendor reports no invoice.
func (s *IPNService) resolveContribution(ctx context.Context, details *gateway.TransactionDetails) (*entity.Contribution, error) {
	contribution, err := s.contributionRepo.FindByTrxnID(ctx, details.TransID)
	if err != nil {
		return nil, err
	}
	if contribution != nil {
		return contribution, nil
	}

	if details.InvoiceNumber == "" {
		return nil, fmt.Errorf("%w: transaction %s matches no contribution", ErrContributionNotFound, details.TransID)
	}
	contribution, err = s.contributionRepo.FindByInvoiceID(ctx, details.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		return nil, fmt.Errorf("%w: invoice %s", ErrContributionNotFound, details.InvoiceNumber)
	}
	return contribution, nil
}

func (s *IPNService) completeSinglePayment(ctx context.Context, details *gateway.TransactionDetails, logger *logrus.Entry) error {
	exists, err := s.recordRepo.ExistsByTrxnID(ctx, details.TransID)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("transaction already recorded")
		return nil
	}

	contribution, err := s.resolveContribution(ctx, details)
	if err != nil {
		return err
	}

	receivedAt := details.SubmitTime
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	trxnID := details.TransID
	contribution.TrxnID = &trxnID
	contribution.StatusID = entity.ContributionStatusCompleted
	contribution.ReceiveDate = &receivedAt
	contribution.UpdatedAt = time.Now().UTC()
	if err := s.contributionRepo.Update(ctx, contribution); err != nil {
		return err
	}

	if err := s.createPaymentRecord(ctx, contribution, details.TransID, details.AmountCents, receivedAt); err != nil {
		return err
	}

	logger.WithField("contribution_id", contribution.ID).Info("contribution completed")
	return nil
}

// completeRecurringPayment books one installment of a series. The first
// installment settles the pending template row in place; later installments
// clone it into a new completed row.
func (s *IPNService) completeRecurringPayment(ctx context.Context, details *gateway.TransactionDetails, logger *logrus.Entry) error {
	exists, err := s.recordRepo.ExistsByTrxnID(ctx, details.TransID)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("transaction already recorded")
		return nil
	}

	recur, err := s.recurRepo.FindBySubscriptionID(ctx, details.SubscriptionID)
	if err != nil {
		return err
	}
	if recur == nil {
		return fmt.Errorf("%w: subscription %s", ErrRecurNotFound, details.SubscriptionID)
	}

	template, err := s.contributionRepo.FindLatestByRecurID(ctx, recur.ID)
	if err != nil {
		return err
	}
	if template == nil {
		return fmt.Errorf("%w: series %d has no contributions", ErrContributionNotFound, recur.ID)
	}

	receivedAt := details.SubmitTime
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	now := time.Now().UTC()

	var contribution *entity.Contribution
	if template.StatusID == entity.ContributionStatusPending && template.TrxnID == nil {
		trxnID := details.TransID
		template.TrxnID = &trxnID
		template.StatusID = entity.ContributionStatusCompleted
		template.ReceiveDate = &receivedAt
		template.UpdatedAt = now
		if err := s.contributionRepo.Update(ctx, template); err != nil {
			return err
		}
		contribution = template
	} else {
		trxnID := details.TransID
		contribution = &entity.Contribution{
			ContactID:           template.ContactID,
			ContributionRecurID: template.ContributionRecurID,
			InvoiceID:           template.InvoiceID,
			TrxnID:              &trxnID,
			AmountCents:         details.AmountCents,
			Currency:            template.Currency,
			StatusID:            entity.ContributionStatusCompleted,
			IsTest:              template.IsTest,
			ReceiveDate:         &receivedAt,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.contributionRepo.Create(ctx, contribution); err != nil {
			return err
		}
	}

	if err := s.createPaymentRecord(ctx, contribution, details.TransID, details.AmountCents, receivedAt); err != nil {
		return err
	}

	if recur.StatusID != entity.ContributionStatusInProgress {
		recur.StatusID = entity.ContributionStatusInProgress
		recur.UpdatedAt = now
		if err := s.recurRepo.Update(ctx, recur); err != nil {
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"contribution_id": contribution.ID,
		"recur_id":        recur.ID,
		"pay_num":         details.SubscriptionPayNum,
	}).Info("recurring payment recorded")
	return nil
}

// failRecurringPayment marks a failed installment without touching the
// series itself; the vendor retries or terminates per its own policy.
func (s *IPNService) failRecurringPayment(ctx context.Context, details *gateway.TransactionDetails, logger *logrus.Entry) error {
	recur, err := s.recurRepo.FindBySubscriptionID(ctx, details.SubscriptionID)
	if err != nil {
		return err
	}
	if recur == nil {
		return fmt.Errorf("%w: subscription %s", ErrRecurNotFound, details.SubscriptionID)
	}

	template, err := s.contributionRepo.FindLatestByRecurID(ctx, recur.ID)
	if err != nil {
		return err
	}
	if template == nil {
		return fmt.Errorf("%w: series %d has no contributions", ErrContributionNotFound, recur.ID)
	}

	now := time.Now().UTC()
	if template.StatusID == entity.ContributionStatusPending {
		template.StatusID = entity.ContributionStatusFailed
		template.UpdatedAt = now
		if err := s.contributionRepo.Update(ctx, template); err != nil {
			return err
		}
		logger.WithField("contribution_id", template.ID).Info("recurring payment failed")
		return nil
	}

	trxnID := details.TransID
	failed := &entity.Contribution{
		ContactID:           template.ContactID,
		ContributionRecurID: template.ContributionRecurID,
		InvoiceID:           template.InvoiceID,
		TrxnID:              &trxnID,
		AmountCents:         details.AmountCents,
		Currency:            template.Currency,
		StatusID:            entity.ContributionStatusFailed,
		IsTest:              template.IsTest,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.contributionRepo.Create(ctx, failed); err != nil {
		return err
	}
	logger.WithField("contribution_id", failed.ID).Info("recurring payment failed")
	return nil
}

func (s *IPNService) transitionContribution(ctx context.Context, details *gateway.TransactionDetails, statusID int32, logger *logrus.Entry) error {
	contribution, err := s.resolveContribution(ctx, details)
	if err != nil {
		return err
	}

	if contribution.StatusID == statusID {
		logger.WithField("contribution_id", contribution.ID).Debug("contribution already in target state")
		return nil
	}

	contribution.StatusID = statusID
	contribution.UpdatedAt = time.Now().UTC()
	if err := s.contributionRepo.Update(ctx, contribution); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"contribution_id": contribution.ID,
		"status":          entity.ContributionStatusLabel(statusID),
	}).Info("contribution state updated")
	return nil
}

// applyRefund books a negative payment against the matched contribution. The
// amount is forced negative no matter how the vendor reports it.
func (s *IPNService) applyRefund(ctx context.Context, details *gateway.TransactionDetails, logger *logrus.Entry) error {
	exists, err := s.recordRepo.ExistsByTrxnID(ctx, details.TransID)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("refund already recorded")
		return nil
	}

	contribution, err := s.resolveContribution(ctx, details)
	if err != nil {
		return err
	}

	amount := details.AmountCents
	if amount > 0 {
		amount = -amount
	}

	receivedAt := details.SubmitTime
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	if err := s.createPaymentRecord(ctx, contribution, details.TransID, amount, receivedAt); err != nil {
		return err
	}

	contribution.StatusID = entity.ContributionStatusRefunded
	contribution.UpdatedAt = time.Now().UTC()
	if err := s.contributionRepo.Update(ctx, contribution); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"contribution_id": contribution.ID,
		"amount_cents":    amount,
	}).Info("refund recorded")
	return nil
}

func (s *IPNService) createPaymentRecord(ctx context.Context, contribution *entity.Contribution, trxnID string, amountCents int64, receivedAt time.Time) error {
	return s.recordRepo.Create(ctx, &entity.PaymentRecord{
		ContributionID: contribution.ID,
		TrxnID:         trxnID,
		AmountCents:    amountCents,
		Currency:       contribution.Currency,
		TrxnDate:       receivedAt,
		CreatedAt:      time.Now().UTC(),
	})
}
