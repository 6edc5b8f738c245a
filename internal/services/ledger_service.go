package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	DefaultRecentLimit  = 10
	DefaultReportMonths = 6
)

// ErrInvalidCredentials hides whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Publisher announces ledger writes. *amqp.Client satisfies it.
type Publisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
	Close() error
}

// LedgerService sits between entrypoints and the repository. Writes go to
// storage first; the change event is best effort.
type LedgerService struct {
	repo         *storage.Repository
	publisher    Publisher
	logger       *slog.Logger
	recentLimit  int
	reportMonths int
}

// Option tweaks a LedgerService.
type Option func(*LedgerService)

// WithPublisher enables change events. A nil publisher leaves them off.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithLogger fixes the service logger. Without it the service logs through
// the logger carried by each call's context.
func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecentLimit(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

func WithReportMonths(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.reportMonths = n
		}
	}
}

func NewLedgerService(repo *storage.Repository, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:         repo,
		recentLimit:  DefaultRecentLimit,
		reportMonths: DefaultReportMonths,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) log(ctx context.Context) *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return log.FromContext(ctx).Logger
}

// HashPassword hashes a plaintext password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// RegisterUser creates an account and returns its id.
func (s *LedgerService) RegisterUser(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", core.ErrEmptyUsername
	}
	if err := core.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	return s.repo.CreateUser(ctx, username, hash)
}

// Authenticate returns the user when password matches the stored hash. The
// username is trimmed the same way RegisterUser trims it.
func (s *LedgerService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *LedgerService) ChangePassword(ctx context.Context, userID, password string) error {
	if err := core.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, userID, hash)
}

func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	id, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	s.log(ctx).DebugContext(ctx, "Transaction saved",
		log.FieldTxID, id,
		log.FieldDate, tx.Date,
		log.FieldType, tx.Type,
		log.FieldAmount, tx.Amount.StringFixed(2))
	s.publish(ctx, amqp.KindTransactionCreated, tx.UserID, id, core.MonthOf(tx.Date))
	return id, nil
}

// UpdateTransaction applies patch and announces every month the row touched,
// the old one and, when the date moved, the new one.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) error {
	before, err := s.repo.FindTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateTransaction(ctx, userID, id, patch); err != nil {
		return err
	}
	month := core.MonthOf(before.Date)
	s.publish(ctx, amqp.KindTransactionUpdated, userID, id, month)
	if patch.Date != nil {
		if moved := core.MonthOf(*patch.Date); moved != month {
			s.publish(ctx, amqp.KindTransactionUpdated, userID, id, moved)
		}
	}
	return nil
}

// DeleteTransaction reports whether the transaction existed.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) (bool, error) {
	before, err := s.repo.FindTransaction(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	deleted, err := s.repo.DeleteTransaction(ctx, userID, id)
	if err != nil || !deleted {
		return deleted, err
	}
	s.publish(ctx, amqp.KindTransactionDeleted, userID, id, core.MonthOf(before.Date))
	return true, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, opts storage.ListOptions) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, opts)
}

// AddBudget returns "" with core.ErrConstraintViolation when the owner
// already has a budget for that month and category.
func (s *LedgerService) AddBudget(ctx context.Context, b core.Budget) (string, error) {
	id, err := s.repo.AddBudget(ctx, b)
	if err != nil {
		return "", err
	}
	s.log(ctx).DebugContext(ctx, "Budget saved", log.FieldBudgetID, id, log.FieldMonth, b.Month)
	s.publish(ctx, amqp.KindBudgetChanged, b.UserID, id, b.Month)
	return id, nil
}

func (s *LedgerService) UpdateBudget(ctx context.Context, b core.Budget) (bool, error) {
	before, err := s.repo.FindBudget(ctx, b.UserID, b.ID)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.UpdateBudget(ctx, b)
	if err != nil {
		return false, err
	}
	s.publish(ctx, amqp.KindBudgetChanged, b.UserID, b.ID, before.Month)
	if b.Month != before.Month {
		s.publish(ctx, amqp.KindBudgetChanged, b.UserID, b.ID, b.Month)
	}
	return ok, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID, id string) (bool, error) {
	before, err := s.repo.FindBudget(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	deleted, err := s.repo.DeleteBudget(ctx, userID, id)
	if err != nil || !deleted {
		return deleted, err
	}
	s.publish(ctx, amqp.KindBudgetChanged, userID, id, before.Month)
	return true, nil
}

func (s *LedgerService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID)
}

// Dashboard assembles the summary for the month containing now. The
// independent reads run concurrently; the first failure cancels the rest.
func (s *LedgerService) Dashboard(ctx context.Context, userID string, now time.Time) (core.Dashboard, error) {
	d := core.Dashboard{Month: core.FormatMonth(now)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.repo.Totals(gctx, userID)
		d.Totals = t
		return err
	})
	g.Go(func() error {
		recent, err := s.repo.RecentTransactions(gctx, userID, s.recentLimit)
		d.Recent = recent
		return err
	})
	g.Go(func() error {
		lines, err := s.repo.BudgetStatus(gctx, userID, d.Month)
		d.Budgets = lines
		return err
	})
	g.Go(func() error {
		spend, err := s.repo.SpendByCategory(gctx, userID, d.Month)
		d.SpendByCat = spend
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}

// Report returns the income/expense trend for the last reportMonths months
// and the category breakdown of the current one.
func (s *LedgerService) Report(ctx context.Context, userID string, now time.Time) (core.Report, error) {
	months := core.MonthSequence(now, s.reportMonths)
	current := core.FormatMonth(now)

	var (
		flows map[string]core.Totals
		spend map[string]decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		flows, err = s.repo.MonthIncomeExpense(gctx, userID, months)
		return err
	})
	g.Go(func() error {
		var err error
		spend, err = s.repo.SpendByCategory(gctx, userID, current)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Report{}, fmt.Errorf("report: %w", err)
	}

	r := core.Report{
		Months:       months,
		MonthIncome:  make([]decimal.Decimal, len(months)),
		MonthExpense: make([]decimal.Decimal, len(months)),
		CurrentMonth: current,
		Categories:   sortedCategories(spend),
	}
	for i, m := range months {
		r.MonthIncome[i] = flows[m].Income
		r.MonthExpense[i] = flows[m].Expense
	}
	return r, nil
}

// sortedCategories orders by amount, largest first, then by name.
func sortedCategories(spend map[string]decimal.Decimal) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(spend))
	for name, amount := range spend {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.Kind, userID, entityID, month string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewChangeMessage(kind, userID, entityID, month)
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		fields := log.NewFields().
			WithMessage(msg.ID, string(kind)).
			WithUser(userID).
			WithOperation(log.OpPublish).
			WithError(err)
		fields[log.FieldMonth] = month
		if kind == amqp.KindBudgetChanged {
			fields[log.FieldBudgetID] = entityID
		} else {
			fields[log.FieldTxID] = entityID
		}
		s.log(ctx).WarnContext(ctx, "Failed to publish change message", fields.ToSlice()...)
	}
}

// Close releases the publisher, if any.
func (s *LedgerService) Close() error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Close()
}
