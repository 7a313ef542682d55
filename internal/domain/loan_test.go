package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLoan() *Loan {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Loan{
		ID:                  uuid.New(),
		BorrowerID:          uuid.New(),
		Principal:           decimal.NewFromInt(1000),
		InterestRatePercent: decimal.NewFromInt(12),
		TenureMonths:        2,
		Currency:            CurrencyUSD,
		StartDate:           now,
		Status:              LoanStatusPending,
		RepaymentSchedule: []Installment{
			{
				Number:           1,
				DueDate:          now.AddDate(0, 1, 0),
				Amount:           decimal.NewFromInt(505),
				PrincipalPortion: decimal.NewFromInt(500),
				InterestPortion:  decimal.NewFromInt(5),
				Status:           InstallmentStatusPending,
				PaidAmount:       decimal.Zero,
			},
			{
				Number:           2,
				DueDate:          now.AddDate(0, 2, 0),
				Amount:           decimal.NewFromInt(505),
				PrincipalPortion: decimal.NewFromInt(500),
				InterestPortion:  decimal.NewFromInt(5),
				Status:           InstallmentStatusPending,
				PaidAmount:       decimal.Zero,
			},
		},
		TotalPaid:       decimal.Zero,
		RemainingAmount: decimal.NewFromInt(1010),
		OverdueAmount:   decimal.Zero,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestLoanValidate(t *testing.T) {
	loan := validLoan()
	assert.NoError(t, loan.Validate())

	loan = validLoan()
	loan.Principal = decimal.Zero
	assert.Equal(t, ErrLoanPrincipalInvalid, loan.Validate())

	loan = validLoan()
	loan.InterestRatePercent = decimal.NewFromInt(-1)
	assert.Equal(t, ErrLoanRateInvalid, loan.Validate())

	loan = validLoan()
	loan.TenureMonths = 0
	assert.Equal(t, ErrLoanTenureInvalid, loan.Validate())

	loan = validLoan()
	loan.Currency = Currency("DOGE")
	assert.Equal(t, ErrLoanCurrencyInvalid, loan.Validate())
}

func TestLoanStatus_IsTerminal(t *testing.T) {
	assert.False(t, LoanStatusPending.IsTerminal())
	assert.False(t, LoanStatusApproved.IsTerminal())
	assert.False(t, LoanStatusActive.IsTerminal())
	assert.True(t, LoanStatusRejected.IsTerminal())
	assert.True(t, LoanStatusCompleted.IsTerminal())
	assert.True(t, LoanStatusDefaulted.IsTerminal())
}

func TestLoan_Totals(t *testing.T) {
	loan := validLoan()
	assert.True(t, loan.ScheduleTotal().Equal(decimal.NewFromInt(1010)))
	assert.True(t, loan.TotalInterest().Equal(decimal.NewFromInt(10)))
}

func TestLoan_HasPayments(t *testing.T) {
	loan := validLoan()
	assert.False(t, loan.HasPayments())

	loan.TotalPaid = decimal.NewFromInt(100)
	assert.True(t, loan.HasPayments())

	loan = validLoan()
	loan.RepaymentSchedule[0].Status = InstallmentStatusPartial
	assert.True(t, loan.HasPayments())
}

func TestLoan_CloneIsDeep(t *testing.T) {
	paidAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	loan := validLoan()
	loan.RepaymentSchedule[0].Status = InstallmentStatusPaid
	loan.RepaymentSchedule[0].PaidAt = &paidAt
	loan.LastPaymentDate = &paidAt

	clone := loan.Clone()
	clone.RepaymentSchedule[0].Status = InstallmentStatusPending
	clone.RepaymentSchedule[0].PaidAt = nil
	clone.RepaymentSchedule[1].PaidAmount = decimal.NewFromInt(50)
	*clone.LastPaymentDate = paidAt.AddDate(0, 1, 0)
	clone.TotalPaid = decimal.NewFromInt(505)

	assert.Equal(t, InstallmentStatusPaid, loan.RepaymentSchedule[0].Status)
	require.NotNil(t, loan.RepaymentSchedule[0].PaidAt)
	assert.Equal(t, paidAt, *loan.RepaymentSchedule[0].PaidAt)
	assert.True(t, loan.RepaymentSchedule[1].PaidAmount.IsZero())
	assert.Equal(t, paidAt, *loan.LastPaymentDate)
	assert.True(t, loan.TotalPaid.IsZero())
}

func TestInstallment_Outstanding(t *testing.T) {
	inst := Installment{
		Number:     1,
		Amount:     decimal.NewFromInt(100),
		Status:     InstallmentStatusPartial,
		PaidAmount: decimal.NewFromInt(40),
	}
	assert.True(t, inst.Outstanding().Equal(decimal.NewFromInt(60)))

	inst.Status = InstallmentStatusPaid
	inst.PaidAmount = inst.Amount
	assert.True(t, inst.Outstanding().IsZero())
}

func TestPaymentCommand_Validate(t *testing.T) {
	cmd := PaymentCommand{
		Amount:           decimal.NewFromInt(100),
		PaymentReference: "ref",
	}
	assert.NoError(t, cmd.Validate())

	cmd.Amount = decimal.Zero
	assert.Equal(t, ErrPaymentAmountInvalid, cmd.Validate())

	cmd.Amount = decimal.NewFromInt(100)
	cmd.PenaltyAmount = decimal.NewFromInt(-5)
	assert.Equal(t, ErrPaymentPenaltyInvalid, cmd.Validate())

	cmd.PenaltyAmount = decimal.Zero
	cmd.PaymentReference = ""
	assert.Equal(t, ErrPaymentReferenceRequired, cmd.Validate())
}

func TestPaymentCommand_Total(t *testing.T) {
	cmd := PaymentCommand{
		Amount:        decimal.NewFromInt(100),
		PenaltyAmount: decimal.NewFromInt(25),
	}
	assert.True(t, cmd.Total().Equal(decimal.NewFromInt(125)))
}

func TestCurrency_RoundAmount(t *testing.T) {
	assert.True(t, CurrencyUSD.RoundAmount(decimal.RequireFromString("10.555")).Equal(decimal.RequireFromString("10.56")))
	assert.True(t, CurrencyJPY.RoundAmount(decimal.RequireFromString("10.5")).Equal(decimal.NewFromInt(11)))
	assert.True(t, CurrencyJPY.RoundAmount(decimal.RequireFromString("10.4")).Equal(decimal.NewFromInt(10)))
}
