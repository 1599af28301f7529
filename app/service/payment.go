package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/entity"
	"github.com/civipay/authnet-gateway/app/gateway"
	"github.com/civipay/authnet-gateway/app/repository"
)

// CardDetails is the card variant of a payment request.
type CardDetails struct {
	Number         string
	ExpirationDate string
	SecurityCode   string
}

// BankDetails is the ACH variant of a payment request.
type BankDetails struct {
	AccountType   string
	RoutingNumber string
	AccountNumber string
	NameOnAccount string
	BankName      string
}

// RecurringParams describes the series a payment opens. Present only on the
// first payment of a subscription.
type RecurringParams struct {
	FrequencyUnit     string
	FrequencyInterval int32
	Installments      *int32
	StartDate         *time.Time
}

// PaymentRequest is one outbound payment attempt. Exactly one of Card or
// Bank must be set.
type PaymentRequest struct {
	ContactID uint64

	AmountCents int64
	Currency    string

	InvoiceID   string
	Description string

	Email  string
	IPAddr string
	IsTest bool

	BillTo *gateway.BillingAddress

	Card *CardDetails
	Bank *BankDetails

	Recurring *RecurringParams
}

func (r *PaymentRequest) validate() error {
	if r.ContactID == 0 {
		return fmt.Errorf("%w: contact id is required", ErrInvalidRequest)
	}
	if r.AmountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if (r.Card == nil) == (r.Bank == nil) {
		return fmt.Errorf("%w: exactly one of card or bank details is required", ErrInvalidRequest)
	}
	if r.Recurring != nil && strings.TrimSpace(r.Recurring.FrequencyUnit) == "" {
		return fmt.Errorf("%w: recurring frequency unit is required", ErrInvalidRequest)
	}
	return nil
}

func (r *PaymentRequest) paymentSource() gateway.PaymentSource {
	if r.Card != nil {
		return gateway.PaymentSource{
			Card: &gateway.CreditCard{
				Number:         r.Card.Number,
				ExpirationDate: r.Card.ExpirationDate,
				Code:           r.Card.SecurityCode,
			},
		}
	}
	return gateway.PaymentSource{
		Bank: &gateway.BankAccount{
			AccountType:   r.Bank.AccountType,
			RoutingNumber: r.Bank.RoutingNumber,
			AccountNumber: r.Bank.AccountNumber,
			NameOnAccount: r.Bank.NameOnAccount,
			BankName:      r.Bank.BankName,
		},
	}
}

type contributionRepository interface {
	Create(ctx context.Context, contribution *entity.Contribution) error
	Update(ctx context.Context, contribution *entity.Contribution) error
	FindByID(ctx context.Context, id uint64) (*entity.Contribution, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*entity.Contribution, error)
	FindByTrxnID(ctx context.Context, trxnID string) (*entity.Contribution, error)
	FindLatestByRecurID(ctx context.Context, recurID uint64) (*entity.Contribution, error)
	HasOtherWithInvoiceID(ctx context.Context, invoiceID string, excludeID uint64) (bool, error)
	List(ctx context.Context, filter repository.ContributionFilter) ([]*entity.Contribution, error)
}

type contributionRecurRepository interface {
	Create(ctx context.Context, recur *entity.ContributionRecur) error
	Update(ctx context.Context, recur *entity.ContributionRecur) error
	FindByID(ctx context.Context, id uint64) (*entity.ContributionRecur, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.ContributionRecur, error)
	Cancel(ctx context.Context, id uint64, cancelledAt time.Time) error
}

type paymentRecordRepository interface {
	Create(ctx context.Context, record *entity.PaymentRecord) error
	ExistsByTrxnID(ctx context.Context, trxnID string) (bool, error)
	ListByContributionID(ctx context.Context, contributionID uint64) ([]*entity.PaymentRecord, error)
}

type paymentGateway interface {
	Charge(ctx context.Context, input gateway.ChargeInput) (*gateway.ChargeResult, error)
	CreateSubscription(ctx context.Context, input gateway.SubscriptionInput) (string, error)
}

const defaultListLimit = int32(100)

type PaymentService struct {
	contributionRepo contributionRepository
	recurRepo        contributionRecurRepository
	recordRepo       paymentRecordRepository
	gw               paymentGateway
	logger           *logrus.Entry
}

func NewPaymentService(
	contributionRepo contributionRepository,
	recurRepo contributionRecurRepository,
	recordRepo paymentRecordRepository,
	gw paymentGateway,
	logger *logrus.Entry,
) *PaymentService {
	return &PaymentService{
		contributionRepo: contributionRepo,
		recurRepo:        recurRepo,
		recordRepo:       recordRepo,
		gw:               gw,
		logger:           logger,
	}
}

// DoPayment runs one payment attempt end to end: duplicate guard, vendor
// call, then the resulting contribution-state change. Recurring requests open
// an ARB subscription instead of charging immediately; the vendor bills the
// first installment and reports it back through the webhook endpoint.
func (s *PaymentService) DoPayment(ctx context.Context, req *PaymentRequest) (*entity.Contribution, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	invoiceID := gateway.TruncateInvoiceNumber(strings.TrimSpace(req.InvoiceID))
	if invoiceID == "" {
		invoiceID = gateway.TruncateInvoiceNumber(uuid.NewString())
	}

	duplicate, err := s.contributionRepo.HasOtherWithInvoiceID(ctx, invoiceID, 0)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, fmt.Errorf("%w: invoice %s was already submitted", ErrDuplicateInvoice, invoiceID)
	}

	if req.Recurring != nil {
		return s.doRecurringPayment(ctx, req, invoiceID)
	}
	return s.doSinglePayment(ctx, req, invoiceID)
}

func (s *PaymentService) doSinglePayment(ctx context.Context, req *PaymentRequest, invoiceID string) (*entity.Contribution, error) {
	now := time.Now().UTC()
	contribution := &entity.Contribution{
		ContactID:   req.ContactID,
		InvoiceID:   invoiceID,
		AmountCents: req.AmountCents,
		Currency:    normalizeCurrency(req.Currency),
		StatusID:    entity.ContributionStatusPending,
		IsTest:      req.IsTest,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.contributionRepo.Create(ctx, contribution); err != nil {
		return nil, err
	}

	result, err := s.gw.Charge(ctx, gateway.ChargeInput{
		AmountCents:   req.AmountCents,
		Currency:      contribution.Currency,
		InvoiceID:     invoiceID,
		Description:   req.Description,
		CustomerID:    strconv.FormatUint(req.ContactID, 10),
		CustomerEmail: req.Email,
		CustomerIP:    req.IPAddr,
		BillTo:        req.BillTo,
		Source:        req.paymentSource(),
	})
	if err != nil {
		s.markFailed(ctx, contribution, err.Error())
		return nil, err
	}

	switch {
	case result.Approved:
		if err := s.completeContribution(ctx, contribution, result.TrxnID, req.AmountCents, time.Now().UTC()); err != nil {
			return nil, err
		}
	case result.Held:
		// Accepted but parked for fraud review. The fraud.approved or
		// fraud.declined webhook settles it later.
		trxnID := result.TrxnID
		contribution.TrxnID = &trxnID
		contribution.UpdatedAt = time.Now().UTC()
		if err := s.contributionRepo.Update(ctx, contribution); err != nil {
			return nil, err
		}
	default:
		s.markFailed(ctx, contribution, result.Message)
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, result.Message)
	}

	return contribution, nil
}

func (s *PaymentService) doRecurringPayment(ctx context.Context, req *PaymentRequest, invoiceID string) (*entity.Contribution, error) {
	schedule, err := gateway.NormalizeSchedule(
		req.Recurring.FrequencyUnit,
		req.Recurring.FrequencyInterval,
		req.Recurring.Installments,
		req.Recurring.StartDate,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := time.Now().UTC()
	recur := &entity.ContributionRecur{
		ContactID:         req.ContactID,
		AmountCents:       req.AmountCents,
		Currency:          normalizeCurrency(req.Currency),
		FrequencyUnit:     req.Recurring.FrequencyUnit,
		FrequencyInterval: req.Recurring.FrequencyInterval,
		Installments:      req.Recurring.Installments,
		StatusID:          entity.ContributionStatusPending,
		AutoRenew:         true,
		StartDate:         &schedule.StartDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.recurRepo.Create(ctx, recur); err != nil {
		return nil, err
	}

	contribution := &entity.Contribution{
		ContactID:           req.ContactID,
		ContributionRecurID: &recur.ID,
		InvoiceID:           invoiceID,
		AmountCents:         req.AmountCents,
		Currency:            recur.Currency,
		StatusID:            entity.ContributionStatusPending,
		IsTest:              req.IsTest,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.contributionRepo.Create(ctx, contribution); err != nil {
		return nil, err
	}

	subscriptionID, err := s.gw.CreateSubscription(ctx, gateway.SubscriptionInput{
		Name:          req.Description,
		Schedule:      *schedule,
		AmountCents:   req.AmountCents,
		Currency:      recur.Currency,
		InvoiceID:     invoiceID,
		Description:   req.Description,
		CustomerID:    strconv.FormatUint(req.ContactID, 10),
		CustomerEmail: req.Email,
		BillTo:        req.BillTo,
		Source:        req.paymentSource(),
	})
	if err != nil {
		s.markFailed(ctx, contribution, err.Error())
		s.markRecurFailed(ctx, recur, err.Error())
		return nil, err
	}

	recur.SubscriptionID = &subscriptionID
	recur.ProcessorID = &subscriptionID
	recur.StatusID = entity.ContributionStatusInProgress
	recur.UpdatedAt = time.Now().UTC()
	if err := s.recurRepo.Update(ctx, recur); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"contribution_id": contribution.ID,
		"recur_id":        recur.ID,
		"subscription_id": subscriptionID,
	}).Info("subscription created")

	return contribution, nil
}

func (s *PaymentService) GetContribution(ctx context.Context, id uint64) (*entity.Contribution, error) {
	contribution, err := s.contributionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		return nil, ErrContributionNotFound
	}
	return contribution, nil
}

func (s *PaymentService) ListContributions(ctx context.Context, filter repository.ContributionFilter) ([]*entity.Contribution, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.contributionRepo.List(ctx, filter)
}

// ListPaymentRecords returns the money movements booked against one
// contribution, refunds included, oldest first.
func (s *PaymentService) ListPaymentRecords(ctx context.Context, contributionID uint64) ([]*entity.PaymentRecord, error) {
	contribution, err := s.contributionRepo.FindByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		return nil, ErrContributionNotFound
	}
	return s.recordRepo.ListByContributionID(ctx, contributionID)
}

// completeContribution settles a contribution and books the matching payment
// record in one step.
func (s *PaymentService) completeContribution(ctx context.Context, contribution *entity.Contribution, trxnID string, amountCents int64, receivedAt time.Time) error {
	contribution.TrxnID = &trxnID
	contribution.StatusID = entity.ContributionStatusCompleted
	contribution.ReceiveDate = &receivedAt
	contribution.UpdatedAt = receivedAt
	if err := s.contributionRepo.Update(ctx, contribution); err != nil {
		return err
	}

	record := &entity.PaymentRecord{
		ContributionID: contribution.ID,
		TrxnID:         trxnID,
		AmountCents:    amountCents,
		Currency:       contribution.Currency,
		TrxnDate:       receivedAt,
		CreatedAt:      receivedAt,
	}
	if err := s.recordRepo.Create(ctx, record); err != nil && !errors.Is(err, repository.ErrPaymentRecordAlreadyExists) {
		return err
	}
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, contribution *entity.Contribution, reason string) {
	contribution.StatusID = entity.ContributionStatusFailed
	contribution.UpdatedAt = time.Now().UTC()
	if err := s.contributionRepo.Update(ctx, contribution); err != nil {
		s.logger.WithError(err).WithField("contribution_id", contribution.ID).Error("failed to mark contribution failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"contribution_id": contribution.ID,
		"reason":          reason,
	}).Warn("contribution failed")
}

// markRecurFailed closes a series whose subscription never opened, so it
// does not linger pending with no subscription id.
func (s *PaymentService) markRecurFailed(ctx context.Context, recur *entity.ContributionRecur, reason string) {
	recur.StatusID = entity.ContributionStatusFailed
	recur.AutoRenew = false
	recur.UpdatedAt = time.Now().UTC()
	if err := s.recurRepo.Update(ctx, recur); err != nil {
		s.logger.WithError(err).WithField("recur_id", recur.ID).Error("failed to mark series failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"recur_id": recur.ID,
		"reason":   reason,
	}).Warn("recurring series failed")
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}
