/*
Package payroll computes final settlements for offboarded employees.

PURPOSE:
  When a resignation is approved, the back office owes the employee a
  final settlement: salary pro-rated through the actual last working
  date, encashment of unused leave, and a deduction when the employee
  leaves before serving the full notice period.

  This package is a collaborator of the offboarding engine, not part of
  it. The approval state machine never calls into payroll; the API layer
  computes a settlement read-only for an approved or completed
  resignation.

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors.
     Money is never a float64.
  2. Purity: Compute is a pure function of its input; no storage, no
     clocks.

EXAMPLE:
  stmt := payroll.Compute(payroll.SettlementInput{
      MonthlyGross:        decimal.NewFromInt(90000),
      WorkedDaysInMonth:   18,
      DaysInMonth:         30,
      UnusedLeaveDays:     decimal.NewFromInt(4),
      NoticeShortfallDays: 5,
  })

SEE ALSO:
  - api/handlers.go: GetSettlement endpoint
*/
package payroll

import "github.com/shopspring/decimal"

// SettlementInput carries everything Compute needs. Callers derive the
// day counts from the resignation's actual last working date.
type SettlementInput struct {
	// MonthlyGross is the gross salary for the final month.
	MonthlyGross decimal.Decimal

	// WorkedDaysInMonth is how many days of the final month were worked,
	// DaysInMonth the calendar length of that month.
	WorkedDaysInMonth int
	DaysInMonth       int

	// UnusedLeaveDays is the leave balance paid out at the daily rate.
	UnusedLeaveDays decimal.Decimal

	// NoticeShortfallDays is how many notice days went unserved when the
	// actual last working date precedes the proposed one. Deducted at
	// the daily rate.
	NoticeShortfallDays int
}

// Settlement is the final-settlement breakdown. All figures are rounded
// to 2 decimal places.
type Settlement struct {
	DailyRate         decimal.Decimal
	ProratedSalary    decimal.Decimal
	LeaveEncashment   decimal.Decimal
	NoticeDeduction   decimal.Decimal
	NetPayable        decimal.Decimal
}

// Compute returns the settlement breakdown. A zero or negative month
// length yields a zero settlement rather than a division by zero.
func Compute(in SettlementInput) Settlement {
	if in.DaysInMonth <= 0 {
		return Settlement{
			DailyRate:       decimal.Zero,
			ProratedSalary:  decimal.Zero,
			LeaveEncashment: decimal.Zero,
			NoticeDeduction: decimal.Zero,
			NetPayable:      decimal.Zero,
		}
	}

	dailyRate := in.MonthlyGross.Div(decimal.NewFromInt(int64(in.DaysInMonth)))

	worked := in.WorkedDaysInMonth
	if worked < 0 {
		worked = 0
	}
	if worked > in.DaysInMonth {
		worked = in.DaysInMonth
	}
	prorated := dailyRate.Mul(decimal.NewFromInt(int64(worked)))

	encashment := dailyRate.Mul(in.UnusedLeaveDays)
	if encashment.IsNegative() {
		encashment = decimal.Zero
	}

	shortfall := in.NoticeShortfallDays
	if shortfall < 0 {
		shortfall = 0
	}
	deduction := dailyRate.Mul(decimal.NewFromInt(int64(shortfall)))

	net := prorated.Add(encashment).Sub(deduction)

	return Settlement{
		DailyRate:       dailyRate.Round(2),
		ProratedSalary:  prorated.Round(2),
		LeaveEncashment: encashment.Round(2),
		NoticeDeduction: deduction.Round(2),
		NetPayable:      net.Round(2),
	}
}
