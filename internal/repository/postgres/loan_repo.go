package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianpay/ledger-backend/internal/domain"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL.
// Loan rows carry a version column; every ledger update compare-and-swaps
// on it so concurrent writers to the same loan cannot both win.
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `
	id, borrower_id, principal, interest_rate_percent, tenure_months,
	currency, start_date, status, total_paid, remaining_amount,
	overdue_amount, last_payment_date, disbursed_at, completed_at,
	version, created_at, updated_at`

// Create inserts the loan and its full installment schedule in one
// transaction.
func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return err
	}
	rate, err := decimalToPgNumeric(loan.InterestRatePercent)
	if err != nil {
		return err
	}
	totalPaid, err := decimalToPgNumeric(loan.TotalPaid)
	if err != nil {
		return err
	}
	remaining, err := decimalToPgNumeric(loan.RemainingAmount)
	if err != nil {
		return err
	}
	overdue, err := decimalToPgNumeric(loan.OverdueAmount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO loans (
			id, borrower_id, principal, interest_rate_percent, tenure_months,
			currency, start_date, status, total_paid, remaining_amount,
			overdue_amount, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		loan.ID, loan.BorrowerID, principal, rate, loan.TenureMonths,
		string(loan.Currency), loan.StartDate, string(loan.Status), totalPaid,
		remaining, overdue, loan.Version, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	if err := upsertInstallments(ctx, tx, loan.ID, loan.RepaymentSchedule); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a loan with its full schedule.
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	schedule, err := r.loadSchedule(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	loan.RepaymentSchedule = schedule
	return loan, nil
}

// GetByBorrower retrieves all loans for a borrower, newest first.
func (r *LoanRepository) GetByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE borrower_id = $1 ORDER BY created_at DESC`, borrowerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectLoans(ctx, rows)
}

// ListByStatus retrieves all loans in the given status.
func (r *LoanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectLoans(ctx, rows)
}

// UpdateLedger persists the loan, its schedule and the audit entry in
// one transaction. The loan row is updated only when the stored version
// matches loan.Version; otherwise domain.ErrVersionConflict is returned
// and nothing is written. On success loan.Version is bumped to match
// the stored row.
func (r *LoanRepository) UpdateLedger(ctx context.Context, loan *domain.Loan, entry *domain.AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rate, err := decimalToPgNumeric(loan.InterestRatePercent)
	if err != nil {
		return err
	}
	totalPaid, err := decimalToPgNumeric(loan.TotalPaid)
	if err != nil {
		return err
	}
	remaining, err := decimalToPgNumeric(loan.RemainingAmount)
	if err != nil {
		return err
	}
	overdue, err := decimalToPgNumeric(loan.OverdueAmount)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE loans SET
			interest_rate_percent = $1,
			status = $2,
			total_paid = $3,
			remaining_amount = $4,
			overdue_amount = $5,
			last_payment_date = $6,
			disbursed_at = $7,
			completed_at = $8,
			updated_at = $9,
			version = version + 1
		WHERE id = $10 AND version = $11`,
		rate, string(loan.Status), totalPaid, remaining, overdue,
		loan.LastPaymentDate, loan.DisbursedAt, loan.CompletedAt,
		loan.UpdatedAt, loan.ID, loan.Version,
	)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	if err := upsertInstallments(ctx, tx, loan.ID, loan.RepaymentSchedule); err != nil {
		return err
	}

	if entry != nil {
		if err := insertAuditEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	loan.Version++
	return nil
}

func (r *LoanRepository) collectLoans(ctx context.Context, rows pgx.Rows) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, loan := range loans {
		schedule, err := r.loadSchedule(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		loan.RepaymentSchedule = schedule
	}
	return loans, nil
}

func (r *LoanRepository) loadSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT number, due_date, amount, principal_portion, interest_portion,
		       status, paid_amount, paid_at, payment_reference
		FROM installments
		WHERE loan_id = $1
		ORDER BY number`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedule []domain.Installment
	for rows.Next() {
		var (
			inst      domain.Installment
			amount    pgtype.Numeric
			principal pgtype.Numeric
			interest  pgtype.Numeric
			paid      pgtype.Numeric
			status    string
			paidAt    pgtype.Timestamptz
			reference pgtype.Text
		)
		if err := rows.Scan(&inst.Number, &inst.DueDate, &amount, &principal,
			&interest, &status, &paid, &paidAt, &reference); err != nil {
			return nil, err
		}
		inst.Amount = pgNumericToDecimal(amount)
		inst.PrincipalPortion = pgNumericToDecimal(principal)
		inst.InterestPortion = pgNumericToDecimal(interest)
		inst.PaidAmount = pgNumericToDecimal(paid)
		inst.Status = domain.InstallmentStatus(status)
		if paidAt.Valid {
			inst.PaidAt = &paidAt.Time
		}
		if reference.Valid {
			inst.PaymentReference = reference.String
		}
		schedule = append(schedule, inst)
	}
	return schedule, rows.Err()
}

// upsertInstallments writes the full schedule. Regenerated schedules
// (rate change) may shrink, so stale rows past the new tenure are
// removed first.
func upsertInstallments(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, schedule []domain.Installment) error {
	_, err := tx.Exec(ctx,
		`DELETE FROM installments WHERE loan_id = $1 AND number > $2`,
		loanID, len(schedule))
	if err != nil {
		return fmt.Errorf("trim installments: %w", err)
	}

	batch := &pgx.Batch{}
	for _, inst := range schedule {
		amount, err := decimalToPgNumeric(inst.Amount)
		if err != nil {
			return err
		}
		principal, err := decimalToPgNumeric(inst.PrincipalPortion)
		if err != nil {
			return err
		}
		interest, err := decimalToPgNumeric(inst.InterestPortion)
		if err != nil {
			return err
		}
		paid, err := decimalToPgNumeric(inst.PaidAmount)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO installments (
				loan_id, number, due_date, amount, principal_portion,
				interest_portion, status, paid_amount, paid_at, payment_reference
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (loan_id, number) DO UPDATE SET
				due_date = EXCLUDED.due_date,
				amount = EXCLUDED.amount,
				principal_portion = EXCLUDED.principal_portion,
				interest_portion = EXCLUDED.interest_portion,
				status = EXCLUDED.status,
				paid_amount = EXCLUDED.paid_amount,
				paid_at = EXCLUDED.paid_at,
				payment_reference = EXCLUDED.payment_reference`,
			loanID, inst.Number, inst.DueDate, amount, principal, interest,
			string(inst.Status), paid, inst.PaidAt, nullableText(inst.PaymentReference),
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range schedule {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert installment: %w", err)
		}
	}
	return nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		loan        domain.Loan
		principal   pgtype.Numeric
		rate        pgtype.Numeric
		totalPaid   pgtype.Numeric
		remaining   pgtype.Numeric
		overdue     pgtype.Numeric
		currency    string
		status      string
		lastPayment pgtype.Timestamptz
		disbursedAt pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&loan.ID, &loan.BorrowerID, &principal, &rate, &loan.TenureMonths,
		&currency, &loan.StartDate, &status, &totalPaid, &remaining,
		&overdue, &lastPayment, &disbursedAt, &completedAt,
		&loan.Version, &loan.CreatedAt, &loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	loan.Principal = pgNumericToDecimal(principal)
	loan.InterestRatePercent = pgNumericToDecimal(rate)
	loan.TotalPaid = pgNumericToDecimal(totalPaid)
	loan.RemainingAmount = pgNumericToDecimal(remaining)
	loan.OverdueAmount = pgNumericToDecimal(overdue)
	loan.Currency = domain.Currency(currency)
	loan.Status = domain.LoanStatus(status)
	if lastPayment.Valid {
		loan.LastPaymentDate = &lastPayment.Time
	}
	if disbursedAt.Valid {
		loan.DisbursedAt = &disbursedAt.Time
	}
	if completedAt.Valid {
		loan.CompletedAt = &completedAt.Time
	}
	return &loan, nil
}

func nullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
