package repository

import (
	"context"
	"errors"

	"github.com/civipay/authnet-gateway/app/entity"
)

var ErrPaymentRecordAlreadyExists = errors.New("payment record already exists")

type PaymentRecordRepository struct {
	db DBTX
}

func NewPaymentRecordRepository(db DBTX) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

func (r *PaymentRecordRepository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			contribution_id, trxn_id, amount_cents, currency, trxn_date, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ContributionID,
		record.TrxnID,
		record.AmountCents,
		record.Currency,
		record.TrxnDate,
		record.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentRecordAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

// ExistsByTrxnID reports whether a vendor transaction id has already been
// recorded. Webhook redelivery checks it before booking a repeat payment.
func (r *PaymentRecordRepository) ExistsByTrxnID(ctx context.Context, trxnID string) (bool, error) {
	query := `SELECT COUNT(*) FROM payment_records WHERE trxn_id = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, trxnID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PaymentRecordRepository) ListByContributionID(ctx context.Context, contributionID uint64) ([]*entity.PaymentRecord, error) {
	query := `
		SELECT id, contribution_id, trxn_id, amount_cents, currency, trxn_date, created_at
		FROM payment_records
		WHERE contribution_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, contributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*entity.PaymentRecord, 0)
	for rows.Next() {
		item := &entity.PaymentRecord{}
		err := rows.Scan(
			&item.ID,
			&item.ContributionID,
			&item.TrxnID,
			&item.AmountCents,
			&item.Currency,
			&item.TrxnDate,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
