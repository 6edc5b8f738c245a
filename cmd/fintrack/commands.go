package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// requireFlags reports the named flags that were left empty.
func requireFlags(fs *flag.FlagSet, names ...string) error {
	var missing []string
	for _, n := range names {
		if f := fs.Lookup(n); f == nil || f.Value.String() == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(fs.Output(), "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (a *app) userID(ctx context.Context, username string) (string, error) {
	u, err := a.repo.FindUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return "", fmt.Errorf("user %q does not exist", username)
	}
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (a *app) password(given string) (string, error) {
	if given != "" {
		return given, nil
	}
	fmt.Fprint(a.stdout, "Password: ")
	pw, err := readPassword(a.stdin)
	fmt.Fprintln(a.stdout)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pw == "" {
		return "", errors.New("password cannot be empty")
	}
	return pw, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (a *app) userAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("user add", a.stdout)
	username := fs.String("user", "", "username")
	pw := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user"); err != nil {
		return err
	}
	secret, err := a.password(*pw)
	if err != nil {
		return err
	}
	id, err := a.ledger.RegisterUser(ctx, *username, secret)
	if errors.Is(err, core.ErrConstraintViolation) {
		return fmt.Errorf("user %q already exists", *username)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(a.stdout, "User %s created with ID %s\n", *username, id)
	return nil
}

func (a *app) userPasswd(ctx context.Context, args []string) error {
	fs := newFlagSet("user passwd", a.stdout)
	username := fs.String("user", "", "username")
	pw := fs.String("password", "", "new password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	secret, err := a.password(*pw)
	if err != nil {
		return err
	}
	if err := a.ledger.ChangePassword(ctx, id, secret); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	fmt.Fprintf(a.stdout, "Password updated for %s\n", *username)
	return nil
}

func (a *app) txAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("tx add", a.stdout)
	username := fs.String("user", "", "owner username")
	date := fs.String("date", core.FormatDate(a.now()), "date YYYY-MM-DD")
	typ := fs.String("type", "expense", "income or expense")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	category := fs.String("category", "", "category (default General)")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user", "amount"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	t, err := core.ParseTxType(*typ)
	if err != nil {
		return err
	}
	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	txID, err := a.ledger.AddTransaction(ctx, core.Transaction{
		UserID:      id,
		Date:        *date,
		Type:        t,
		Amount:      amt,
		Category:    *category,
		Description: *desc,
	})
	if err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}
	fmt.Fprintf(a.stdout, "Transaction %s saved\n", txID)
	return nil
}

func (a *app) txList(ctx context.Context, args []string) error {
	fs := newFlagSet("tx list", a.stdout)
	username := fs.String("user", "", "owner username")
	month := fs.String("month", "", "only this month, YYYY-MM")
	typ := fs.String("type", "", "only income or expense")
	category := fs.String("category", "", "only this category")
	limit := fs.Int64("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	txs, err := a.ledger.ListTransactions(ctx, id, storage.ListOptions{
		Type:     core.TxType(*typ),
		Category: *category,
		Month:    *month,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, t := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Type, t.Amount.StringFixed(2), t.Category, t.Description)
	}
	return w.Flush()
}

func (a *app) budgetAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("budget add", a.stdout)
	username := fs.String("user", "", "owner username")
	month := fs.String("month", core.FormatMonth(a.now()), "month YYYY-MM")
	limit := fs.String("limit", "", "spending limit")
	category := fs.String("category", "", "category (whole month when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user", "limit"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	amt, err := core.ParseAmount(*limit)
	if err != nil {
		return err
	}
	b := core.Budget{UserID: id, Month: *month, Category: category, Limit: amt}
	budgetID, err := a.ledger.AddBudget(ctx, b)
	if errors.Is(err, core.ErrConstraintViolation) {
		return fmt.Errorf("a budget for %s %s already exists", *month, core.Budget{Category: core.NormalizeBudgetCategory(category)}.CategoryLabel())
	}
	if err != nil {
		return fmt.Errorf("add budget: %w", err)
	}
	fmt.Fprintf(a.stdout, "Budget %s saved\n", budgetID)
	return nil
}

func (a *app) budgetList(ctx context.Context, args []string) error {
	fs := newFlagSet("budget list", a.stdout)
	username := fs.String("user", "", "owner username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	budgets, err := a.ledger.ListBudgets(ctx, id)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMONTH\tCATEGORY\tLIMIT")
	for _, b := range budgets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Month, b.CategoryLabel(), b.Limit.StringFixed(2))
	}
	return w.Flush()
}

func (a *app) budgetRemove(ctx context.Context, args []string) error {
	fs := newFlagSet("budget rm", a.stdout)
	username := fs.String("user", "", "owner username")
	budgetID := fs.String("id", "", "budget id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user", "id"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	ok, err := a.ledger.DeleteBudget(ctx, id, *budgetID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("budget %s not found", *budgetID)
	}
	fmt.Fprintf(a.stdout, "Budget %s deleted\n", *budgetID)
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := newFlagSet("report", a.stdout)
	username := fs.String("user", "", "owner username")
	month := fs.String("month", "", "report as of this month, YYYY-MM (default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "user"); err != nil {
		return err
	}
	id, err := a.userID(ctx, *username)
	if err != nil {
		return err
	}
	now := a.now()
	if *month != "" {
		if now, err = time.Parse("2006-01", *month); err != nil {
			return core.ErrInvalidMonth
		}
	}

	d, err := a.ledger.Dashboard(ctx, id, now)
	if err != nil {
		return err
	}
	r, err := a.ledger.Report(ctx, id, now)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Income\t%s\n", d.Totals.Income.StringFixed(2))
	fmt.Fprintf(w, "Expense\t%s\n", d.Totals.Expense.StringFixed(2))
	fmt.Fprintf(w, "Balance\t%s\n", d.Totals.Balance().StringFixed(2))

	fmt.Fprintf(w, "\nMONTH\tINCOME\tEXPENSE\n")
	for i, m := range r.Months {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m, r.MonthIncome[i].StringFixed(2), r.MonthExpense[i].StringFixed(2))
	}

	fmt.Fprintf(w, "\nSPENDING %s\tAMOUNT\n", r.CurrentMonth)
	for _, c := range r.Categories {
		fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Amount.StringFixed(2))
	}

	if len(d.Budgets) > 0 {
		fmt.Fprintf(w, "\nBUDGET\tLIMIT\tSPENT\tREMAINING\n")
		for _, l := range d.Budgets {
			label := core.Budget{Category: l.Category}.CategoryLabel()
			if l.Exceeded() {
				label += " (over)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", label, l.Limit.StringFixed(2), l.Spent.StringFixed(2), l.Remaining().StringFixed(2))
		}
	}

	fmt.Fprintf(w, "\nRECENT\t\t\t\n")
	for _, t := range d.Recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Date, t.Type, t.Amount.StringFixed(2), t.Category)
	}
	return w.Flush()
}
