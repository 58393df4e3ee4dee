// Package loan computes PRICE and SAC amortization schedules.
package loan

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// System selects how the principal is repaid.
type System string

const (
	// Price keeps the installment constant (French/annuity system).
	Price System = "PRICE"
	// SAC keeps the amortization constant.
	SAC System = "SAC"
)

// ParseSystem accepts PRICE or SAC in any case.
func ParseSystem(s string) (System, error) {
	switch System(strings.ToUpper(strings.TrimSpace(s))) {
	case Price:
		return Price, nil
	case SAC:
		return SAC, nil
	default:
		return "", fmt.Errorf("unknown amortization system %q", s)
	}
}

// Terms describe a loan.
type Terms struct {
	Principal  float64 `json:"loanAmount"`
	AnnualRate float64 `json:"interestRateAnnual"` // percent, e.g. 12 for 12%/yr
	Months     int     `json:"termMonths"`
	System     System  `json:"system"`
}

// Installment is one row of a schedule.
type Installment struct {
	Number       int     `json:"month"`
	Payment      float64 `json:"installment"`
	Interest     float64 `json:"interest"`
	Amortization float64 `json:"amortization"`
	Balance      float64 `json:"balance"`
}

// Schedule is the full repayment plan.
type Schedule struct {
	Terms         Terms         `json:"terms"`
	Installments  []Installment `json:"installments"`
	TotalPaid     float64       `json:"totalPaid"`
	TotalInterest float64       `json:"totalInterest"`
}

var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidTerm      = errors.New("term must be at least one month")
	ErrInvalidRate      = errors.New("annual rate must not be negative")
)

// Validate reports the first problem with t.
func (t Terms) Validate() error {
	switch {
	case t.Principal <= 0 || math.IsNaN(t.Principal) || math.IsInf(t.Principal, 0):
		return ErrInvalidPrincipal
	case t.Months < 1:
		return ErrInvalidTerm
	case t.AnnualRate < 0 || math.IsNaN(t.AnnualRate) || math.IsInf(t.AnnualRate, 0):
		return ErrInvalidRate
	}
	if _, err := ParseSystem(string(t.System)); err != nil {
		return err
	}
	return nil
}

// MonthlyRate converts the annual percentage to a monthly fraction.
func (t Terms) MonthlyRate() float64 {
	return t.AnnualRate / 12 / 100
}

// PriceInstallment is the constant annuity payment for t.
func PriceInstallment(principal, monthlyRate float64, months int) float64 {
	if monthlyRate == 0 {
		return principal / float64(months)
	}
	return principal * monthlyRate / (1 - math.Pow(1+monthlyRate, -float64(months)))
}

// Compute builds the schedule for t.
func Compute(t Terms) (Schedule, error) {
	if err := t.Validate(); err != nil {
		return Schedule{}, err
	}
	system, _ := ParseSystem(string(t.System))
	t.System = system

	rate := t.MonthlyRate()
	balance := t.Principal
	rows := make([]Installment, 0, t.Months)

	payment := PriceInstallment(t.Principal, rate, t.Months)
	amortization := t.Principal / float64(t.Months)

	var totalPaid, totalInterest float64
	for n := 1; n <= t.Months; n++ {
		interest := balance * rate
		row := Installment{Number: n, Interest: interest}

		switch system {
		case Price:
			row.Payment = payment
			row.Amortization = payment - interest
		case SAC:
			row.Amortization = amortization
			row.Payment = amortization + interest
		}

		balance -= row.Amortization
		if math.Abs(balance) < 1e-6 {
			balance = 0
		}
		row.Balance = balance

		totalPaid += row.Payment
		totalInterest += interest
		rows = append(rows, row)
	}

	return Schedule{
		Terms:         t,
		Installments:  rows,
		TotalPaid:     totalPaid,
		TotalInterest: totalInterest,
	}, nil
}
