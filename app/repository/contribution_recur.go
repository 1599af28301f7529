package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/civipay/authnet-gateway/app/entity"
)

var (
	ErrContributionRecurNotFound      = errors.New("contribution recur not found")
	ErrContributionRecurAlreadyExists = errors.New("contribution recur already exists")
)

type ContributionRecurRepository struct {
	db DBTX
}

func NewContributionRecurRepository(db DBTX) *ContributionRecurRepository {
	return &ContributionRecurRepository{db: db}
}

func (r *ContributionRecurRepository) Create(ctx context.Context, recur *entity.ContributionRecur) error {
	query := `
		INSERT INTO contribution_recur (
			contact_id, subscription_id, processor_id,
			amount_cents, currency, frequency_unit, frequency_interval, installments,
			status, auto_renew, start_date, cancel_date,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		recur.ContactID,
		nullableStringValue(recur.SubscriptionID),
		nullableStringValue(recur.ProcessorID),
		recur.AmountCents,
		recur.Currency,
		recur.FrequencyUnit,
		recur.FrequencyInterval,
		nullableInt32Value(recur.Installments),
		recur.StatusID,
		recur.AutoRenew,
		nullableTimeValue(recur.StartDate),
		nullableTimeValue(recur.CancelDate),
		recur.CreatedAt,
		recur.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrContributionRecurAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	recur.ID = uint64(id)
	return nil
}

func (r *ContributionRecurRepository) Update(ctx context.Context, recur *entity.ContributionRecur) error {
	query := `
		UPDATE contribution_recur SET
			subscription_id = ?,
			processor_id = ?,
			amount_cents = ?,
			currency = ?,
			frequency_unit = ?,
			frequency_interval = ?,
			installments = ?,
			status = ?,
			auto_renew = ?,
			start_date = ?,
			cancel_date = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(recur.SubscriptionID),
		nullableStringValue(recur.ProcessorID),
		recur.AmountCents,
		recur.Currency,
		recur.FrequencyUnit,
		recur.FrequencyInterval,
		nullableInt32Value(recur.Installments),
		recur.StatusID,
		recur.AutoRenew,
		nullableTimeValue(recur.StartDate),
		nullableTimeValue(recur.CancelDate),
		recur.UpdatedAt,
		recur.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContributionRecurNotFound
	}

	return nil
}

func (r *ContributionRecurRepository) FindByID(ctx context.Context, id uint64) (*entity.ContributionRecur, error) {
	query := `
		SELECT id, contact_id, subscription_id, processor_id,
			amount_cents, currency, frequency_unit, frequency_interval, installments,
			status, auto_renew, start_date, cancel_date,
			created_at, updated_at
		FROM contribution_recur
		WHERE id = ?
	`

	recur := &entity.ContributionRecur{}
	if err := scanContributionRecur(r.db.QueryRowContext(ctx, query, id), recur); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return recur, nil
}

func (r *ContributionRecurRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.ContributionRecur, error) {
	query := `
		SELECT id, contact_id, subscription_id, processor_id,
			amount_cents, currency, frequency_unit, frequency_interval, installments,
			status, auto_renew, start_date, cancel_date,
			created_at, updated_at
		FROM contribution_recur
		WHERE subscription_id = ?
		LIMIT 1
	`

	recur := &entity.ContributionRecur{}
	if err := scanContributionRecur(r.db.QueryRowContext(ctx, query, subscriptionID), recur); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return recur, nil
}

// Cancel marks the series cancelled and stamps the cancellation time. It does
// not touch individual contributions in the series.
func (r *ContributionRecurRepository) Cancel(ctx context.Context, id uint64, cancelledAt time.Time) error {
	query := `
		UPDATE contribution_recur SET
			status = ?,
			auto_renew = 0,
			cancel_date = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, entity.ContributionStatusCancelled, cancelledAt, cancelledAt, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContributionRecurNotFound
	}

	return nil
}

func scanContributionRecur(scan rowScanner, recur *entity.ContributionRecur) error {
	var subscriptionID sql.NullString
	var processorID sql.NullString
	var installments sql.NullInt32
	var startDate sql.NullTime
	var cancelDate sql.NullTime

	err := scan.Scan(
		&recur.ID,
		&recur.ContactID,
		&subscriptionID,
		&processorID,
		&recur.AmountCents,
		&recur.Currency,
		&recur.FrequencyUnit,
		&recur.FrequencyInterval,
		&installments,
		&recur.StatusID,
		&recur.AutoRenew,
		&startDate,
		&cancelDate,
		&recur.CreatedAt,
		&recur.UpdatedAt,
	)
	if err != nil {
		return err
	}

	recur.SubscriptionID = stringPtrFromNull(subscriptionID)
	recur.ProcessorID = stringPtrFromNull(processorID)
	recur.Installments = int32PtrFromNull(installments)
	recur.StartDate = timePtrFromNull(startDate)
	recur.CancelDate = timePtrFromNull(cancelDate)

	return nil
}
