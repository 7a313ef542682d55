package ledger

import (
	"testing"
	"time"

	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allocNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSchedule(amounts ...int64) []domain.Installment {
	schedule := make([]domain.Installment, 0, len(amounts))
	for i, amount := range amounts {
		schedule = append(schedule, domain.Installment{
			Number:           i + 1,
			DueDate:          scheduleStart.AddDate(0, i+1, 0),
			Amount:           decimal.NewFromInt(amount),
			PrincipalPortion: decimal.NewFromInt(amount),
			InterestPortion:  decimal.Zero,
			Status:           domain.InstallmentStatusPending,
			PaidAmount:       decimal.Zero,
		})
	}
	return schedule
}

func TestAllocate_SequentialFullInstallments(t *testing.T) {
	schedule := testSchedule(100, 100, 100)
	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(200),
		PenaltyAmount:    decimal.Zero,
		PaymentReference: "ref-1",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, result.PaidNumbers)
	assert.True(t, result.Unallocated.IsZero())
	assert.Equal(t, domain.InstallmentStatusPaid, result.Schedule[0].Status)
	assert.Equal(t, domain.InstallmentStatusPaid, result.Schedule[1].Status)
	assert.Equal(t, domain.InstallmentStatusPending, result.Schedule[2].Status)
	assert.Equal(t, "ref-1", result.Schedule[0].PaymentReference)
	require.NotNil(t, result.Schedule[0].PaidAt)
	assert.Equal(t, allocNow, *result.Schedule[0].PaidAt)
}

func TestAllocate_StopsWhenFundsShort(t *testing.T) {
	// 150 against two 100 installments: the first settles, the second is
	// untouched and 50 comes back unallocated
	schedule := testSchedule(100, 100)
	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(150),
		PaymentReference: "ref-2",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, result.PaidNumbers)
	assert.True(t, result.Unallocated.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, domain.InstallmentStatusPending, result.Schedule[1].Status)
	assert.True(t, result.Schedule[1].PaidAmount.IsZero())
}

func TestAllocate_SkipsPaidInstallments(t *testing.T) {
	schedule := testSchedule(100, 100, 100)
	schedule[0].Status = domain.InstallmentStatusPaid
	schedule[0].PaidAmount = schedule[0].Amount

	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(100),
		PaymentReference: "ref-3",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, result.PaidNumbers)
	assert.True(t, result.Unallocated.IsZero())
}

func TestAllocate_OverdueInstallmentsArePayable(t *testing.T) {
	schedule := testSchedule(100, 100)
	schedule[0].Status = domain.InstallmentStatusOverdue

	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(100),
		PaymentReference: "ref-4",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, result.PaidNumbers)
	assert.Equal(t, domain.InstallmentStatusPaid, result.Schedule[0].Status)
}

func TestAllocate_PenaltyNeverTouchesSchedule(t *testing.T) {
	schedule := testSchedule(100, 100)
	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(100),
		PenaltyAmount:    decimal.NewFromInt(100),
		PaymentReference: "ref-5",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	// Only Amount walks the schedule; the penalty settles separately
	assert.Equal(t, []int{1}, result.PaidNumbers)
	assert.True(t, result.Unallocated.IsZero())
}

func TestAllocate_TargetedInstallments(t *testing.T) {
	schedule := testSchedule(100, 100, 100)
	cmd := domain.PaymentCommand{
		Amount:             decimal.NewFromInt(200),
		TargetInstallments: []int{3, 1},
		PaymentReference:   "ref-6",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	// Targets are honored in ascending order regardless of request order
	assert.Equal(t, []int{1, 3}, result.PaidNumbers)
	assert.Equal(t, domain.InstallmentStatusPaid, result.Schedule[0].Status)
	assert.Equal(t, domain.InstallmentStatusPending, result.Schedule[1].Status)
	assert.Equal(t, domain.InstallmentStatusPaid, result.Schedule[2].Status)
}

func TestAllocate_TargetUnknownInstallment(t *testing.T) {
	schedule := testSchedule(100, 100)
	cmd := domain.PaymentCommand{
		Amount:             decimal.NewFromInt(100),
		TargetInstallments: []int{5},
		PaymentReference:   "ref-7",
	}

	_, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	assert.Equal(t, domain.ErrTargetInstallmentInvalid, err)
}

func TestAllocate_TargetAlreadyPaid(t *testing.T) {
	schedule := testSchedule(100, 100)
	schedule[0].Status = domain.InstallmentStatusPaid
	schedule[0].PaidAmount = schedule[0].Amount

	cmd := domain.PaymentCommand{
		Amount:             decimal.NewFromInt(100),
		TargetInstallments: []int{1},
		PaymentReference:   "ref-8",
	}

	_, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	assert.Equal(t, domain.ErrTargetInstallmentInvalid, err)
}

func TestAllocate_PartialTargetedAllowed(t *testing.T) {
	schedule := testSchedule(100, 100)
	cmd := domain.PaymentCommand{
		Amount:             decimal.NewFromInt(60),
		TargetInstallments: []int{2},
		PaymentReference:   "ref-9",
	}
	cfg := DefaultConfig()
	cfg.AllowPartialTargeted = true

	result, err := Allocate(schedule, cmd, cfg, allocNow)
	require.NoError(t, err)

	assert.Empty(t, result.PaidNumbers)
	assert.Equal(t, 2, result.PartialNumber)
	assert.True(t, result.Unallocated.IsZero())
	assert.Equal(t, domain.InstallmentStatusPartial, result.Schedule[1].Status)
	assert.True(t, result.Schedule[1].PaidAmount.Equal(decimal.NewFromInt(60)))
	assert.True(t, result.Schedule[1].Outstanding().Equal(decimal.NewFromInt(40)))
}

func TestAllocate_PartialTargetedDisallowed(t *testing.T) {
	schedule := testSchedule(100, 100)
	cmd := domain.PaymentCommand{
		Amount:             decimal.NewFromInt(60),
		TargetInstallments: []int{2},
		PaymentReference:   "ref-10",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	assert.Empty(t, result.PaidNumbers)
	assert.Zero(t, result.PartialNumber)
	assert.True(t, result.Unallocated.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, domain.InstallmentStatusPending, result.Schedule[1].Status)
}

func TestAllocate_CompletesPartialInstallment(t *testing.T) {
	schedule := testSchedule(100, 100)
	schedule[0].Status = domain.InstallmentStatusPartial
	schedule[0].PaidAmount = decimal.NewFromInt(40)

	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(60),
		PaymentReference: "ref-11",
	}

	result, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, result.PaidNumbers)
	assert.Equal(t, domain.InstallmentStatusPaid, result.Schedule[0].Status)
	assert.True(t, result.Schedule[0].PaidAmount.Equal(decimal.NewFromInt(100)))
}

func TestAllocate_DoesNotMutateInput(t *testing.T) {
	schedule := testSchedule(100, 100)
	cmd := domain.PaymentCommand{
		Amount:           decimal.NewFromInt(200),
		PaymentReference: "ref-12",
	}

	_, err := Allocate(schedule, cmd, DefaultConfig(), allocNow)
	require.NoError(t, err)

	for _, inst := range schedule {
		assert.Equal(t, domain.InstallmentStatusPending, inst.Status)
		assert.True(t, inst.PaidAmount.IsZero())
		assert.Nil(t, inst.PaidAt)
	}
}
