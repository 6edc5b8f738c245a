package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateDateAndMonth(t *testing.T) {
	dates := []struct {
		in string
		ok bool
	}{
		{"2024-05-01", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2024-5-1", false},
		{"2024-05", false},
		{"", false},
	}
	for _, tc := range dates {
		err := ValidateDate(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ValidateDate(%q) err=%v, want ok=%v", tc.in, err, tc.ok)
		}
	}

	months := []struct {
		in string
		ok bool
	}{
		{"2024-05", true},
		{"2024-13", false},
		{"2024-5", false},
		{"2024/05", false},
		{"2024-05-01", false},
	}
	for _, tc := range months {
		err := ValidateMonth(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ValidateMonth(%q) err=%v, want ok=%v", tc.in, err, tc.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	}
}

func TestMonthSequence(t *testing.T) {
	now := time.Date(2024, time.February, 17, 10, 0, 0, 0, time.UTC)
	got := MonthSequence(now, 6)
	want := []string{"2023-09", "2023-10", "2023-11", "2023-12", "2024-01", "2024-02"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MonthSequence = %v, want %v", got, want)
	}
	if MonthSequence(now, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID: "u1",
		Date:   "2024-05-01",
		Type:   Expense,
		Amount: decimal.RequireFromString("40"),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	long := good
	long.Description = strings.Repeat("x", 500)
	if err := long.Validate(); err != nil {
		t.Fatalf("long descriptions are allowed, got %v", err)
	}

	bads := []Transaction{
		{UserID: "", Date: "2024-05-01", Type: Expense},
		{UserID: "u1", Date: "05/01/2024", Type: Expense},
		{UserID: "u1", Date: "2024-05-01", Type: "transfer"},
		{UserID: "u1", Date: "2024-05-01", Type: Income, Amount: decimal.NewFromInt(-1)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d expected invalid argument, got %v", i, err)
		}
	}
}

func TestDefaultingPolicy(t *testing.T) {
	tx := Transaction{Category: "  "}.Normalize()
	if tx.Category != DefaultCategory {
		t.Fatalf("expected %q, got %q", DefaultCategory, tx.Category)
	}
	tx = Transaction{Category: " food ", Description: "  dinner  "}.Normalize()
	if tx.Category != " food " || tx.Description != "  dinner  " {
		t.Fatalf("present values must be kept as given, got %q / %q", tx.Category, tx.Description)
	}

	blank := " "
	if NormalizeBudgetCategory(&blank) != nil {
		t.Fatalf("blank budget category should mean whole month")
	}
	food := " food "
	if got := NormalizeBudgetCategory(&food); got == nil || *got != " food " {
		t.Fatalf("unexpected category %v", got)
	}
}

func TestTransactionPatchValidate(t *testing.T) {
	if err := (TransactionPatch{}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty patch should be rejected, got %v", err)
	}
	bad := TxType("gift")
	if err := (TransactionPatch{Type: &bad}).Validate(); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	desc := "lunch"
	if err := (TransactionPatch{Description: &desc}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
