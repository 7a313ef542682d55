package ledger

import (
	"sort"
	"time"

	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AllocationResult is the outcome of applying payment funds to a
// schedule. Unallocated holds whatever the walk could not place; the
// engine decides whether that is an error or carried-forward credit.
type AllocationResult struct {
	Schedule      []domain.Installment
	PaidNumbers   []int
	PartialNumber int // 0 when no installment was partially filled
	Unallocated   decimal.Decimal
}

// Allocate applies cmd.Amount against the schedule in ascending
// installment-number order. An installment is settled only when the
// remaining funds cover its full outstanding amount; a partial fill is
// allowed solely for explicitly targeted installments and only when the
// config permits it. The penalty portion of the command never touches
// the schedule. The input slice is not mutated.
func Allocate(schedule []domain.Installment, cmd domain.PaymentCommand, cfg Config, now time.Time) (AllocationResult, error) {
	out := make([]domain.Installment, len(schedule))
	copy(out, schedule)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	result := AllocationResult{Schedule: out}
	funds := cmd.Amount

	if len(cmd.TargetInstallments) > 0 {
		targets, err := resolveTargets(out, cmd.TargetInstallments)
		if err != nil {
			return AllocationResult{}, err
		}
		for _, idx := range targets {
			if funds.IsZero() {
				break
			}
			inst := &out[idx]
			due := inst.Outstanding()
			switch {
			case funds.GreaterThanOrEqual(due):
				settle(inst, cmd.PaymentReference, now)
				funds = funds.Sub(due)
				result.PaidNumbers = append(result.PaidNumbers, inst.Number)
			case cfg.AllowPartialTargeted:
				inst.Status = domain.InstallmentStatusPartial
				inst.PaidAmount = inst.PaidAmount.Add(funds)
				inst.PaidAt = &now
				inst.PaymentReference = cmd.PaymentReference
				result.PartialNumber = inst.Number
				funds = decimal.Zero
			}
		}
		result.Unallocated = funds
		return result, nil
	}

	for i := range out {
		if funds.IsZero() {
			break
		}
		inst := &out[i]
		if !inst.Status.Payable() {
			continue
		}
		due := inst.Outstanding()
		if funds.LessThan(due) {
			break
		}
		settle(inst, cmd.PaymentReference, now)
		funds = funds.Sub(due)
		result.PaidNumbers = append(result.PaidNumbers, inst.Number)
	}
	result.Unallocated = funds
	return result, nil
}

// resolveTargets maps the requested installment numbers to schedule
// indexes in ascending order, rejecting unknown or already-paid targets.
func resolveTargets(schedule []domain.Installment, numbers []int) ([]int, error) {
	byNumber := make(map[int]int, len(schedule))
	for i, inst := range schedule {
		byNumber[inst.Number] = i
	}

	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)

	indexes := make([]int, 0, len(sorted))
	for _, n := range sorted {
		idx, ok := byNumber[n]
		if !ok || !schedule[idx].Status.Payable() {
			return nil, domain.ErrTargetInstallmentInvalid
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

func settle(inst *domain.Installment, reference string, now time.Time) {
	inst.Status = domain.InstallmentStatusPaid
	inst.PaidAmount = inst.Amount
	inst.PaidAt = &now
	inst.PaymentReference = reference
}
