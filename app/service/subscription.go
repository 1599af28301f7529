package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/entity"
	"github.com/civipay/authnet-gateway/app/gateway"
)

type subscriptionGateway interface {
	UpdateSubscription(ctx context.Context, subscriptionID string, update gateway.SubscriptionUpdate) error
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

type SubscriptionService struct {
	recurRepo contributionRecurRepository
	gw        subscriptionGateway
	logger    *logrus.Entry
}

func NewSubscriptionService(recurRepo contributionRecurRepository, gw subscriptionGateway, logger *logrus.Entry) *SubscriptionService {
	return &SubscriptionService{
		recurRepo: recurRepo,
		gw:        gw,
		logger:    logger,
	}
}

func (s *SubscriptionService) findActiveRecur(ctx context.Context, recurID uint64) (*entity.ContributionRecur, error) {
	recur, err := s.recurRepo.FindByID(ctx, recurID)
	if err != nil {
		return nil, err
	}
	if recur == nil {
		return nil, ErrRecurNotFound
	}
	if recur.SubscriptionID == nil || *recur.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: series %d", ErrSubscriptionMissing, recurID)
	}
	return recur, nil
}

// GetSeries returns a recurring series by id.
func (s *SubscriptionService) GetSeries(ctx context.Context, recurID uint64) (*entity.ContributionRecur, error) {
	recur, err := s.recurRepo.FindByID(ctx, recurID)
	if err != nil {
		return nil, err
	}
	if recur == nil {
		return nil, ErrRecurNotFound
	}
	return recur, nil
}

// UpdateBilling replaces the payment instrument and billing address on an
// active subscription. The amount and schedule are untouched.
func (s *SubscriptionService) UpdateBilling(ctx context.Context, recurID uint64, req *BillingUpdateRequest) error {
	if (req.Card == nil) == (req.Bank == nil) {
		return fmt.Errorf("%w: exactly one of card or bank details is required", ErrInvalidRequest)
	}

	recur, err := s.findActiveRecur(ctx, recurID)
	if err != nil {
		return err
	}

	source := req.paymentSource()
	err = s.gw.UpdateSubscription(ctx, *recur.SubscriptionID, gateway.SubscriptionUpdate{
		Currency: recur.Currency,
		Source:   &source,
		BillTo:   req.BillTo,
	})
	if err != nil {
		return err
	}

	recur.UpdatedAt = time.Now().UTC()
	if err := s.recurRepo.Update(ctx, recur); err != nil {
		return err
	}

	s.logger.WithField("recur_id", recur.ID).Info("subscription billing updated")
	return nil
}

// ChangeAmount updates the per-installment amount of an active subscription.
func (s *SubscriptionService) ChangeAmount(ctx context.Context, recurID uint64, amountCents int64) error {
	if amountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	recur, err := s.findActiveRecur(ctx, recurID)
	if err != nil {
		return err
	}

	err = s.gw.UpdateSubscription(ctx, *recur.SubscriptionID, gateway.SubscriptionUpdate{
		AmountCents: &amountCents,
		Currency:    recur.Currency,
	})
	if err != nil {
		return err
	}

	recur.AmountCents = amountCents
	recur.UpdatedAt = time.Now().UTC()
	if err := s.recurRepo.Update(ctx, recur); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"recur_id":     recur.ID,
		"amount_cents": amountCents,
	}).Info("subscription amount changed")
	return nil
}

// Cancel terminates the subscription at the vendor and closes the local
// series. A series the vendor no longer knows about is still closed locally.
func (s *SubscriptionService) Cancel(ctx context.Context, recurID uint64) error {
	recur, err := s.findActiveRecur(ctx, recurID)
	if err != nil {
		return err
	}

	if err := s.gw.CancelSubscription(ctx, *recur.SubscriptionID); err != nil {
		return err
	}

	if err := s.recurRepo.Cancel(ctx, recur.ID, time.Now().UTC()); err != nil {
		return err
	}

	s.logger.WithField("recur_id", recur.ID).Info("subscription cancelled")
	return nil
}

// BillingUpdateRequest carries the new payment instrument for an active
// subscription. Exactly one of Card or Bank must be set.
type BillingUpdateRequest struct {
	Card   *CardDetails
	Bank   *BankDetails
	BillTo *gateway.BillingAddress
}

func (r *BillingUpdateRequest) paymentSource() gateway.PaymentSource {
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
