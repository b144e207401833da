package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseLoanStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    LoanStatus
		wantErr bool
	}{
		{"ACTIVE", LoanActive, false},
		{"active", LoanActive, false},
		{" Returned ", LoanReturned, false},
		{"RETURNED", LoanReturned, false},
		{"", "", true},
		{"LOST", "", true},
		{"ACTIVEX", "", true},
	}

	for _, c := range cases {
		got, err := ParseLoanStatus(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseLoanStatus(%q): expected error, got %q", c.in, got)
			} else if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseLoanStatus(%q): error should wrap ErrInvalidInput, got %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLoanStatus(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLoanStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLoanOverdue(t *testing.T) {
	now := time.Now()
	loan := &Loan{Status: LoanActive, DueDate: now.Add(-time.Hour)}
	if !loan.Overdue(now) {
		t.Errorf("active loan past due date should be overdue")
	}

	loan.Status = LoanReturned
	if loan.Overdue(now) {
		t.Errorf("returned loan must never be overdue")
	}

	future := &Loan{Status: LoanActive, DueDate: now.Add(time.Hour)}
	if future.Overdue(now) {
		t.Errorf("loan before due date should not be overdue")
	}
}
