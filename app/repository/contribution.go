package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/civipay/authnet-gateway/app/entity"
)

var (
	ErrContributionNotFound      = errors.New("contribution not found")
	ErrContributionAlreadyExists = errors.New("contribution already exists")
)

type ContributionFilter struct {
	ContactID           uint64
	ContributionRecurID uint64
	HasStatus           bool
	Status              int32
	Limit               int32
	Offset              int32
}

type ContributionRepository struct {
	db DBTX
}

func NewContributionRepository(db DBTX) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func (r *ContributionRepository) Create(ctx context.Context, contribution *entity.Contribution) error {
	query := `
		INSERT INTO contributions (
			contact_id, contribution_recur_id, invoice_id, trxn_id,
			amount_cents, currency, status, is_test, receive_date,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		contribution.ContactID,
		nullableUint64Value(contribution.ContributionRecurID),
		contribution.InvoiceID,
		nullableStringValue(contribution.TrxnID),
		contribution.AmountCents,
		contribution.Currency,
		contribution.StatusID,
		contribution.IsTest,
		nullableTimeValue(contribution.ReceiveDate),
		contribution.CreatedAt,
		contribution.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrContributionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	contribution.ID = uint64(id)
	return nil
}

func (r *ContributionRepository) Update(ctx context.Context, contribution *entity.Contribution) error {
	query := `
		UPDATE contributions SET
			contribution_recur_id = ?,
			invoice_id = ?,
			trxn_id = ?,
			amount_cents = ?,
			currency = ?,
			status = ?,
			is_test = ?,
			receive_date = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(contribution.ContributionRecurID),
		contribution.InvoiceID,
		nullableStringValue(contribution.TrxnID),
		contribution.AmountCents,
		contribution.Currency,
		contribution.StatusID,
		contribution.IsTest,
		nullableTimeValue(contribution.ReceiveDate),
		contribution.UpdatedAt,
		contribution.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContributionNotFound
	}

	return nil
}

func (r *ContributionRepository) FindByID(ctx context.Context, id uint64) (*entity.Contribution, error) {
	query := `
		SELECT id, contact_id, contribution_recur_id, invoice_id, trxn_id,
			amount_cents, currency, status, is_test, receive_date,
			created_at, updated_at
		FROM contributions
		WHERE id = ?
	`

	contribution := &entity.Contribution{}
	if err := scanContribution(r.db.QueryRowContext(ctx, query, id), contribution); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return contribution, nil
}

// FindByInvoiceID matches on the truncated form of the invoice number.
// Outbound requests only ever carry the first 20 characters, so stored rows
// are matched against LEFT(candidate, 20).
func (r *ContributionRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*entity.Contribution, error) {
	query := `
		SELECT id, contact_id, contribution_recur_id, invoice_id, trxn_id,
			amount_cents, currency, status, is_test, receive_date,
			created_at, updated_at
		FROM contributions
		WHERE invoice_id = LEFT(?, 20)
		ORDER BY id DESC
		LIMIT 1
	`

	contribution := &entity.Contribution{}
	if err := scanContribution(r.db.QueryRowContext(ctx, query, invoiceID), contribution); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return contribution, nil
}

func (r *ContributionRepository) FindByTrxnID(ctx context.Context, trxnID string) (*entity.Contribution, error) {
	query := `
		SELECT id, contact_id, contribution_recur_id, invoice_id, trxn_id,
			amount_cents, currency, status, is_test, receive_date,
			created_at, updated_at
		FROM contributions
		WHERE trxn_id = ?
		LIMIT 1
	`

	contribution := &entity.Contribution{}
	if err := scanContribution(r.db.QueryRowContext(ctx, query, trxnID), contribution); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return contribution, nil
}

// FindLatestByRecurID returns the most recent contribution in a recurring
// series. Repeat payments use it as the template for the new row.
func (r *ContributionRepository) FindLatestByRecurID(ctx context.Context, recurID uint64) (*entity.Contribution, error) {
	query := `
		SELECT id, contact_id, contribution_recur_id, invoice_id, trxn_id,
			amount_cents, currency, status, is_test, receive_date,
			created_at, updated_at
		FROM contributions
		WHERE contribution_recur_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	contribution := &entity.Contribution{}
	if err := scanContribution(r.db.QueryRowContext(ctx, query, recurID), contribution); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return contribution, nil
}

// HasOtherWithInvoiceID reports whether any contribution besides excludeID
// already carries the truncated invoice number. Failed rows do not count, so
// a donor may resubmit after a decline.
func (r *ContributionRepository) HasOtherWithInvoiceID(ctx context.Context, invoiceID string, excludeID uint64) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM contributions
		WHERE invoice_id = LEFT(?, 20) AND id <> ? AND status <> ?
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, invoiceID, excludeID, entity.ContributionStatusFailed).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ContributionRepository) List(ctx context.Context, filter ContributionFilter) ([]*entity.Contribution, error) {
	query := `
		SELECT id, contact_id, contribution_recur_id, invoice_id, trxn_id,
			amount_cents, currency, status, is_test, receive_date,
			created_at, updated_at
		FROM contributions
	`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if filter.ContactID > 0 {
		conditions = append(conditions, "contact_id = ?")
		args = append(args, filter.ContactID)
	}
	if filter.ContributionRecurID > 0 {
		conditions = append(conditions, "contribution_recur_id = ?")
		args = append(args, filter.ContributionRecurID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributions := make([]*entity.Contribution, 0)
	for rows.Next() {
		item := &entity.Contribution{}
		if err := scanContribution(rows, item); err != nil {
			return nil, err
		}
		contributions = append(contributions, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return contributions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContribution(scan rowScanner, contribution *entity.Contribution) error {
	var recurID sql.NullInt64
	var trxnID sql.NullString
	var receiveDate sql.NullTime

	err := scan.Scan(
		&contribution.ID,
		&contribution.ContactID,
		&recurID,
		&contribution.InvoiceID,
		&trxnID,
		&contribution.AmountCents,
		&contribution.Currency,
		&contribution.StatusID,
		&contribution.IsTest,
		&receiveDate,
		&contribution.CreatedAt,
		&contribution.UpdatedAt,
	)
	if err != nil {
		return err
	}

	contribution.ContributionRecurID = uint64PtrFromNull(recurID)
	contribution.TrxnID = stringPtrFromNull(trxnID)
	contribution.ReceiveDate = timePtrFromNull(receiveDate)

	return nil
}
