package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AuditRepository implements domain.AuditRepository using PostgreSQL.
// It only reads: entries are inserted by LoanRepository.UpdateLedger in
// the loan's transaction, and nothing updates or deletes them.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// ListByLoan retrieves the audit trail of a loan in recording order.
func (r *AuditRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, loan_id, action, total_paid_before, total_paid_after,
		       remaining_before, remaining_after, overdue_before, overdue_after,
		       installments_paid, status_before, status_after,
		       payment_reference, recorded_at
		FROM audit_entries
		WHERE loan_id = $1
		ORDER BY recorded_at`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			entry        domain.AuditEntry
			paidBefore   pgtype.Numeric
			paidAfter    pgtype.Numeric
			remBefore    pgtype.Numeric
			remAfter     pgtype.Numeric
			ovdBefore    pgtype.Numeric
			ovdAfter     pgtype.Numeric
			statusBefore string
			statusAfter  string
			reference    pgtype.Text
		)
		err := rows.Scan(&entry.ID, &entry.LoanID, &entry.Action,
			&paidBefore, &paidAfter, &remBefore, &remAfter, &ovdBefore,
			&ovdAfter, &entry.InstallmentsPaid, &statusBefore, &statusAfter,
			&reference, &entry.RecordedAt)
		if err != nil {
			return nil, err
		}
		entry.TotalPaidBefore = pgNumericToDecimal(paidBefore)
		entry.TotalPaidAfter = pgNumericToDecimal(paidAfter)
		entry.RemainingBefore = pgNumericToDecimal(remBefore)
		entry.RemainingAfter = pgNumericToDecimal(remAfter)
		entry.OverdueBefore = pgNumericToDecimal(ovdBefore)
		entry.OverdueAfter = pgNumericToDecimal(ovdAfter)
		entry.StatusBefore = domain.LoanStatus(statusBefore)
		entry.StatusAfter = domain.LoanStatus(statusAfter)
		if reference.Valid {
			entry.PaymentReference = reference.String
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func insertAuditEntry(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error {
	paidBefore, err := decimalToPgNumeric(entry.TotalPaidBefore)
	if err != nil {
		return err
	}
	paidAfter, err := decimalToPgNumeric(entry.TotalPaidAfter)
	if err != nil {
		return err
	}
	remBefore, err := decimalToPgNumeric(entry.RemainingBefore)
	if err != nil {
		return err
	}
	remAfter, err := decimalToPgNumeric(entry.RemainingAfter)
	if err != nil {
		return err
	}
	ovdBefore, err := decimalToPgNumeric(entry.OverdueBefore)
	if err != nil {
		return err
	}
	ovdAfter, err := decimalToPgNumeric(entry.OverdueAfter)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_entries (
			id, loan_id, action, total_paid_before, total_paid_after,
			remaining_before, remaining_after, overdue_before, overdue_after,
			installments_paid, status_before, status_after,
			payment_reference, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		entry.ID, entry.LoanID, entry.Action, paidBefore, paidAfter,
		remBefore, remAfter, ovdBefore, ovdAfter, entry.InstallmentsPaid,
		string(entry.StatusBefore), string(entry.StatusAfter),
		nullableText(entry.PaymentReference), entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
