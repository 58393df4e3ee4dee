package loan

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

func TestPriceExample(t *testing.T) {
	s, err := Compute(Terms{Principal: 100000, AnnualRate: 12, Months: 12, System: Price})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(s.Installments) != 12 {
		t.Fatalf("got %d installments, want 12", len(s.Installments))
	}
	got := s.Installments[0].Payment
	if math.Abs(got-8884.88) > 0.005 {
		t.Errorf("installment = %.4f, want ~8884.88", got)
	}
	last := s.Installments[len(s.Installments)-1]
	if math.Abs(last.Balance) > 0.01 {
		t.Errorf("final balance = %v, want ~0", last.Balance)
	}
	for i, row := range s.Installments {
		if math.Abs(row.Payment-got) > tolerance {
			t.Errorf("installment %d payment %.6f differs from %.6f", i+1, row.Payment, got)
		}
	}
}

func TestPriceAmortizationSumsToPrincipal(t *testing.T) {
	cases := []Terms{
		{Principal: 100000, AnnualRate: 12, Months: 12, System: Price},
		{Principal: 250000, AnnualRate: 9.5, Months: 360, System: Price},
		{Principal: 1500, AnnualRate: 0, Months: 7, System: Price},
		{Principal: 42.42, AnnualRate: 199, Months: 3, System: Price},
	}
	for _, tc := range cases {
		s, err := Compute(tc)
		if err != nil {
			t.Fatalf("Compute(%+v) error = %v", tc, err)
		}
		var sum float64
		for _, row := range s.Installments {
			sum += row.Amortization
		}
		if math.Abs(sum-tc.Principal) > 1e-6*math.Max(1, tc.Principal) {
			t.Errorf("%+v: amortization sum = %.8f, want %.8f", tc, sum, tc.Principal)
		}
	}
}

func TestSACAmortizationConstant(t *testing.T) {
	s, err := Compute(Terms{Principal: 120000, AnnualRate: 6, Months: 24, System: SAC})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	want := 120000.0 / 24
	prevPayment := math.Inf(1)
	for _, row := range s.Installments {
		if math.Abs(row.Amortization-want) > tolerance {
			t.Errorf("month %d amortization = %v, want %v", row.Number, row.Amortization, want)
		}
		if row.Payment >= prevPayment {
			t.Errorf("month %d payment %v did not decrease", row.Number, row.Payment)
		}
		prevPayment = row.Payment
	}
	if last := s.Installments[23]; last.Balance != 0 {
		t.Errorf("final balance = %v, want 0", last.Balance)
	}
}

func TestZeroRate(t *testing.T) {
	for _, sys := range []System{Price, SAC} {
		s, err := Compute(Terms{Principal: 1200, AnnualRate: 0, Months: 12, System: sys})
		if err != nil {
			t.Fatalf("%s: %v", sys, err)
		}
		for _, row := range s.Installments {
			if math.IsNaN(row.Payment) || math.Abs(row.Payment-100) > tolerance {
				t.Fatalf("%s month %d payment = %v, want 100", sys, row.Number, row.Payment)
			}
		}
		if s.TotalInterest != 0 {
			t.Errorf("%s total interest = %v", sys, s.TotalInterest)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		terms Terms
		want  error
	}{
		{"zero principal", Terms{Principal: 0, Months: 1, System: Price}, ErrInvalidPrincipal},
		{"zero term", Terms{Principal: 10, Months: 0, System: Price}, ErrInvalidTerm},
		{"negative rate", Terms{Principal: 10, Months: 1, AnnualRate: -1, System: SAC}, ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compute(tt.terms); !errors.Is(err, tt.want) {
				t.Errorf("Compute() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Compute(Terms{Principal: 10, Months: 1, System: "BALLOON"}); err == nil {
		t.Error("expected error for unknown system")
	}
	if _, err := Compute(Terms{Principal: 10, Months: 2, System: "sac"}); err != nil {
		t.Errorf("lower-case system rejected: %v", err)
	}
}
