package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// project folds an allocation into the loan's accumulators, applies the
// automatic Active -> Completed transition, and derives the audit entry
// plus notification requests for one payment operation.
func project(before *domain.Loan, updated *domain.Loan, alloc AllocationResult, cmd domain.PaymentCommand, cfg Config, now time.Time) domain.LedgerUpdateResult {
	updated.RepaymentSchedule = alloc.Schedule
	updated.TotalPaid = before.TotalPaid.Add(cmd.Amount)
	updated.RemainingAmount = floorZero(before.RemainingAmount.Sub(cmd.Amount))
	updated.OverdueAmount = floorZero(before.OverdueAmount.Sub(cmd.PenaltyAmount))
	updated.LastPaymentDate = &now
	updated.UpdatedAt = now

	completed := false
	if updated.RemainingAmount.IsZero() && updated.Status == domain.LoanStatusActive {
		// Carried-forward credit can zero the balance before the
		// allocator settled every installment; close the stragglers so
		// a completed loan never shows payable installments.
		for i := range updated.RepaymentSchedule {
			inst := &updated.RepaymentSchedule[i]
			if !inst.Status.Payable() {
				continue
			}
			inst.Status = domain.InstallmentStatusPaid
			inst.PaidAmount = inst.Amount
			inst.PaidAt = &now
			inst.PaymentReference = cmd.PaymentReference
			alloc.PaidNumbers = append(alloc.PaidNumbers, inst.Number)
		}
		sort.Ints(alloc.PaidNumbers)

		updated.Status = domain.LoanStatusCompleted
		updated.CompletedAt = &now
		completed = true
	}

	entry := newAuditEntry(before, updated, domain.AuditActionPayment, now)
	entry.InstallmentsPaid = alloc.PaidNumbers
	entry.PaymentReference = cmd.PaymentReference

	notifications := []domain.NotificationRequest{
		{
			Kind:       domain.NotificationPaymentConfirmed,
			LoanID:     updated.ID,
			BorrowerID: updated.BorrowerID,
			Amount:     cmd.Amount,
			Remaining:  updated.RemainingAmount,
			Payload: map[string]interface{}{
				"paymentReference": cmd.PaymentReference,
				"installmentsPaid": alloc.PaidNumbers,
			},
		},
	}
	if completed {
		notifications = append(notifications, domain.NotificationRequest{
			Kind:       domain.NotificationLoanCompleted,
			LoanID:     updated.ID,
			BorrowerID: updated.BorrowerID,
			Amount:     updated.TotalPaid,
			Remaining:  decimal.Zero,
		})
	}
	if cfg.LargePaymentThreshold.GreaterThan(decimal.Zero) && cmd.Amount.GreaterThan(cfg.LargePaymentThreshold) {
		notifications = append(notifications, domain.NotificationRequest{
			Kind:       domain.NotificationLargePaymentAlert,
			LoanID:     updated.ID,
			BorrowerID: updated.BorrowerID,
			Amount:     cmd.Amount,
			Remaining:  updated.RemainingAmount,
			Payload: map[string]interface{}{
				"threshold": cfg.LargePaymentThreshold.String(),
			},
		})
	}

	return domain.LedgerUpdateResult{
		Loan:          updated,
		AuditEntry:    entry,
		Notifications: notifications,
	}
}

// newAuditEntry snapshots the accumulator movement between the loan
// before and after one logical operation.
func newAuditEntry(before, after *domain.Loan, action string, now time.Time) domain.AuditEntry {
	return domain.AuditEntry{
		ID:              uuid.New(),
		LoanID:          after.ID,
		Action:          action,
		TotalPaidBefore: before.TotalPaid,
		TotalPaidAfter:  after.TotalPaid,
		RemainingBefore: before.RemainingAmount,
		RemainingAfter:  after.RemainingAmount,
		OverdueBefore:   before.OverdueAmount,
		OverdueAfter:    after.OverdueAmount,
		StatusBefore:    before.Status,
		StatusAfter:     after.Status,
		RecordedAt:      now,
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
