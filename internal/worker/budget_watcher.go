package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// BudgetReader is the slice of the repository the watcher needs.
type BudgetReader interface {
	BudgetStatus(ctx context.Context, userID, month string) ([]core.BudgetLine, error)
}

// Consumer delivers change messages until ctx ends. *amqp.Client satisfies it.
type Consumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error
}

// BudgetWatcher re-evaluates a month's budgets whenever the ledger reports a
// change in it, and warns about every budget whose spend is over its limit.
type BudgetWatcher struct {
	budgets BudgetReader
	logger  *log.Logger
}

func NewBudgetWatcher(budgets BudgetReader, logger *log.Logger) *BudgetWatcher {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &BudgetWatcher{budgets: budgets, logger: logger}
}

// HandleChange checks the budgets of the month named by msg. A storage
// failure is returned so the message is requeued.
func (w *BudgetWatcher) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	start := time.Now()
	fields := log.NewFields().WithMessage(msg.ID, string(msg.Kind)).WithUser(msg.UserID)
	fields[log.FieldMonth] = msg.Month
	w.logger.DebugContext(ctx, "Processing change message", fields.ToSlice()...)

	exceeded, err := w.Check(ctx, msg.UserID, msg.Month)
	if err != nil {
		w.logger.LogError(ctx, "Budget check failed", err, log.OpConsume, fields)
		return fmt.Errorf("check budgets for %s: %w", msg.Month, err)
	}
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	fields[log.FieldExceeded] = exceeded
	w.logger.DebugContext(ctx, "Change message processed", fields.ToSlice()...)
	return nil
}

// Check logs every exceeded budget of month and returns how many there were.
func (w *BudgetWatcher) Check(ctx context.Context, userID, month string) (int, error) {
	lines, err := w.budgets.BudgetStatus(ctx, userID, month)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range lines {
		if !l.Exceeded() {
			continue
		}
		n++
		label := core.Budget{Category: l.Category}.CategoryLabel()
		w.logger.LogBudgetExceeded(ctx, userID, month, label, l.Limit, l.Spent)
	}
	return n, nil
}

// Run consumes change messages until ctx is cancelled.
func (w *BudgetWatcher) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Budget watcher started")
	err := consumer.ConsumeChanges(ctx, w.HandleChange)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Budget watcher stopped")
		return nil
	}
	return err
}
