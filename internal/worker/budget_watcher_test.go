package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

type stubBudgets struct {
	lines []core.BudgetLine
	err   error
	calls []string
}

func (s *stubBudgets) BudgetStatus(_ context.Context, userID, month string) ([]core.BudgetLine, error) {
	s.calls = append(s.calls, userID+"/"+month)
	return s.lines, s.err
}

type stubConsumer struct {
	msgs []*amqp.ChangeMessage
	errs []error
}

func (c *stubConsumer) ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error {
	for _, m := range c.msgs {
		c.errs = append(c.errs, handler(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func newWatcher(b BudgetReader) (*BudgetWatcher, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Component: log.ComponentWorker, Output: &buf})
	return NewBudgetWatcher(b, logger), &buf
}

func cat(s string) *string { return &s }

func TestCheckLogsExceededBudgets(t *testing.T) {
	budgets := &stubBudgets{lines: []core.BudgetLine{
		{Category: nil, Limit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(150)},
		{Category: cat("food"), Limit: decimal.NewFromInt(50), Spent: decimal.NewFromInt(50)},
		{Category: cat("fun"), Limit: decimal.NewFromInt(20), Spent: decimal.RequireFromString("20.01")},
	}}
	w, buf := newWatcher(budgets)

	n, err := w.Check(context.Background(), "u1", "2024-05")
	if err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("Check() = %d exceeded, want 2", n)
	}

	out := buf.String()
	if got := strings.Count(out, "Budget exceeded"); got != 2 {
		t.Errorf("logged %d warnings, want 2: %q", got, out)
	}
	for _, want := range []string{`category="(whole month)"`, "category=fun", "over_by=0.01", "over_by=50.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %q", want, out)
		}
	}
	if strings.Contains(out, "category=food") {
		t.Errorf("budget at its limit should not be reported: %q", out)
	}
}

func TestHandleChange(t *testing.T) {
	tests := []struct {
		name    string
		budgets *stubBudgets
		wantErr bool
		wantLog []string
	}{
		{"no budgets", &stubBudgets{}, false, []string{"Change message processed", "exceeded=0", "duration_ms="}},
		{"storage failure", &stubBudgets{err: core.ErrStorageUnavailable}, true, []string{"level=ERROR", "Budget check failed", "operation=consume", "month=2024-05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, buf := newWatcher(tt.budgets)
			msg := amqp.NewChangeMessage(amqp.KindTransactionCreated, "u1", "tx1", "2024-05")

			err := w.HandleChange(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleChange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, core.ErrStorageUnavailable) {
				t.Errorf("HandleChange() error = %v, want wrapped storage error", err)
			}
			if len(tt.budgets.calls) != 1 || tt.budgets.calls[0] != "u1/2024-05" {
				t.Errorf("BudgetStatus calls = %v", tt.budgets.calls)
			}
			for _, want := range tt.wantLog {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("log output missing %q: %q", want, buf.String())
				}
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	budgets := &stubBudgets{}
	w, _ := newWatcher(budgets)
	consumer := &stubConsumer{msgs: []*amqp.ChangeMessage{
		amqp.NewChangeMessage(amqp.KindBudgetChanged, "u1", "b1", "2024-05"),
		amqp.NewChangeMessage(amqp.KindTransactionDeleted, "u2", "t1", "2024-04"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run() error = %v, want nil after cancel", err)
	}
	if len(budgets.calls) != 2 {
		t.Errorf("handled %d messages, want 2", len(budgets.calls))
	}
}

type failingConsumer struct{ err error }

func (c failingConsumer) ConsumeChanges(context.Context, func(context.Context, *amqp.ChangeMessage) error) error {
	return c.err
}

func TestRunReturnsConsumerError(t *testing.T) {
	w, _ := newWatcher(&stubBudgets{})
	err := w.Run(context.Background(), failingConsumer{err: amqp.ErrCircuitOpen})
	if !errors.Is(err, amqp.ErrCircuitOpen) {
		t.Errorf("Run() error = %v, want consumer error", err)
	}
}
