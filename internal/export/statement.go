package export

import (
	"fmt"
	"io"
	"time"

	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

const statementSheet = "Repayment Schedule"

// StatementColumn describes one column of the statement sheet.
type StatementColumn struct {
	Header string
	Value  func(inst domain.Installment) any
}

var statementColumns = []StatementColumn{
	{Header: "#", Value: func(i domain.Installment) any { return i.Number }},
	{Header: "Due Date", Value: func(i domain.Installment) any { return i.DueDate.Format("2006-01-02") }},
	{Header: "Amount", Value: func(i domain.Installment) any { return i.Amount.String() }},
	{Header: "Principal", Value: func(i domain.Installment) any { return i.PrincipalPortion.String() }},
	{Header: "Interest", Value: func(i domain.Installment) any { return i.InterestPortion.String() }},
	{Header: "Status", Value: func(i domain.Installment) any { return string(i.Status) }},
	{Header: "Paid Amount", Value: func(i domain.Installment) any { return i.PaidAmount.String() }},
	{Header: "Paid At", Value: func(i domain.Installment) any {
		if i.PaidAt == nil {
			return ""
		}
		return i.PaidAt.Format(time.RFC3339)
	}},
	{Header: "Reference", Value: func(i domain.Installment) any { return i.PaymentReference }},
}

// BuildStatement renders the loan's repayment schedule as an XLSX
// workbook: a summary block, one row per installment and a totals row
// that reconciles with principal plus total interest.
func BuildStatement(loan *domain.Loan) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", statementSheet); err != nil {
		return nil, err
	}

	// Summary block
	summary := [][2]any{
		{"Loan ID", loan.ID.String()},
		{"Status", string(loan.Status)},
		{"Currency", string(loan.Currency)},
		{"Principal", loan.Principal.String()},
		{"Interest Rate %", loan.InterestRatePercent.String()},
		{"Total Paid", loan.TotalPaid.String()},
		{"Remaining", loan.RemainingAmount.String()},
		{"Overdue", loan.OverdueAmount.String()},
	}
	for row, pair := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, row+1)
		valCell, _ := excelize.CoordinatesToCellName(2, row+1)
		if err := f.SetCellValue(statementSheet, keyCell, pair[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(statementSheet, valCell, pair[1]); err != nil {
			return nil, err
		}
	}

	headerRow := len(summary) + 2
	for col, c := range statementColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		if err := f.SetCellValue(statementSheet, cell, c.Header); err != nil {
			return nil, err
		}
	}

	for i, inst := range loan.RepaymentSchedule {
		rowIdx := headerRow + 1 + i
		for col, c := range statementColumns {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err := f.SetCellValue(statementSheet, cell, c.Value(inst)); err != nil {
				return nil, err
			}
		}
	}

	totalsRow := headerRow + 1 + len(loan.RepaymentSchedule)
	labelCell, _ := excelize.CoordinatesToCellName(1, totalsRow)
	if err := f.SetCellValue(statementSheet, labelCell, "Total"); err != nil {
		return nil, err
	}
	totalCell, _ := excelize.CoordinatesToCellName(3, totalsRow)
	if err := f.SetCellValue(statementSheet, totalCell, loan.ScheduleTotal().String()); err != nil {
		return nil, err
	}
	principalCell, _ := excelize.CoordinatesToCellName(4, totalsRow)
	if err := f.SetCellValue(statementSheet, principalCell, loan.Principal.String()); err != nil {
		return nil, err
	}
	interestCell, _ := excelize.CoordinatesToCellName(5, totalsRow)
	if err := f.SetCellValue(statementSheet, interestCell, loan.TotalInterest().String()); err != nil {
		return nil, err
	}

	return f, nil
}

// WriteStatement renders the statement and writes the workbook to w.
func WriteStatement(loan *domain.Loan, w io.Writer) error {
	f, err := BuildStatement(loan)
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}
