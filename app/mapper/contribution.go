package mapper

import (
	"time"

	"github.com/civipay/authnet-gateway/app/entity"
	"github.com/civipay/authnet-gateway/app/gateway"
	"github.com/civipay/authnet-gateway/app/types"
)

func ContributionToResponse(item *entity.Contribution) *types.Contribution {
	if item == nil {
		return nil
	}

	return &types.Contribution{
		ID:                  item.ID,
		ContactID:           item.ContactID,
		ContributionRecurID: derefUint64(item.ContributionRecurID),
		InvoiceID:           item.InvoiceID,
		TrxnID:              derefString(item.TrxnID),
		AmountCents:         item.AmountCents,
		Currency:            item.Currency,
		Status:              item.StatusID,
		StatusLabel:         entity.ContributionStatusLabel(item.StatusID),
		IsTest:              item.IsTest,
		ReceiveDate:         formatTimePtr(item.ReceiveDate),
		CreatedAt:           item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ContributionsToResponse(items []*entity.Contribution) []*types.Contribution {
	result := make([]*types.Contribution, 0, len(items))
	for _, item := range items {
		result = append(result, ContributionToResponse(item))
	}
	return result
}

func ContributionRecurToResponse(item *entity.ContributionRecur) *types.ContributionRecur {
	if item == nil {
		return nil
	}

	return &types.ContributionRecur{
		ID:                item.ID,
		ContactID:         item.ContactID,
		SubscriptionID:    derefString(item.SubscriptionID),
		AmountCents:       item.AmountCents,
		Currency:          item.Currency,
		FrequencyUnit:     item.FrequencyUnit,
		FrequencyInterval: item.FrequencyInterval,
		Installments:      derefInt32(item.Installments),
		Status:            item.StatusID,
		StatusLabel:       entity.ContributionStatusLabel(item.StatusID),
		AutoRenew:         item.AutoRenew,
		StartDate:         formatTimePtr(item.StartDate),
		CancelDate:        formatTimePtr(item.CancelDate),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentRecordToResponse(item *entity.PaymentRecord) *types.PaymentRecord {
	if item == nil {
		return nil
	}

	return &types.PaymentRecord{
		ID:             item.ID,
		ContributionID: item.ContributionID,
		TrxnID:         item.TrxnID,
		AmountCents:    item.AmountCents,
		Currency:       item.Currency,
		TrxnDate:       item.TrxnDate.UTC().Format(time.RFC3339),
		CreatedAt:      item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentRecordsToResponse(items []*entity.PaymentRecord) []*types.PaymentRecord {
	result := make([]*types.PaymentRecord, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentRecordToResponse(item))
	}
	return result
}

func TransactionDetailsToResponse(item *gateway.TransactionDetails) *types.TransactionDetails {
	if item == nil {
		return nil
	}

	submitTime := ""
	if !item.SubmitTime.IsZero() {
		submitTime = item.SubmitTime.UTC().Format(time.RFC3339)
	}

	return &types.TransactionDetails{
		TransID:            item.TransID,
		TransactionType:    item.TransactionType,
		ResponseCode:       item.ResponseCode,
		Status:             item.Status,
		AmountCents:        item.AmountCents,
		InvoiceNumber:      item.InvoiceNumber,
		SubscriptionID:     item.SubscriptionID,
		SubscriptionPayNum: item.SubscriptionPayNum,
		SubmitTime:         submitTime,
		Recurring:          item.IsRecurring(),
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}

func derefUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
