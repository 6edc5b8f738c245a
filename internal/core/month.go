package core

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// ValidateDate checks a calendar day in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if len(s) != len(dateLayout) {
		return ErrInvalidDate
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateMonth checks a month in YYYY-MM form.
func ValidateMonth(s string) error {
	if len(s) != len(monthLayout) {
		return ErrInvalidMonth
	}
	if _, err := time.Parse(monthLayout, s); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// FormatDate renders t as a transaction date.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatMonth renders t as a budget month.
func FormatMonth(t time.Time) string {
	return t.Format(monthLayout)
}

// MonthOf returns the YYYY-MM prefix of a transaction date.
func MonthOf(date string) string {
	if len(date) < len(monthLayout) {
		return date
	}
	return date[:len(monthLayout)]
}

// MonthSequence returns the n months ending with the month of now, oldest first.
func MonthSequence(now time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	y, m := now.Year(), int(now.Month())
	months := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		months[i] = fmt.Sprintf("%04d-%02d", y, m)
		m--
		if m == 0 {
			m = 12
			y--
		}
	}
	return months
}
