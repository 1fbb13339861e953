package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/spendwise/spendwise/internal/cli"
	"github.com/spendwise/spendwise/internal/model"
	"github.com/spendwise/spendwise/internal/store"
	"github.com/spendwise/spendwise/internal/tui"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses in the active date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}

			if from, _ := cmd.Flags().GetString("from"); from != "" {
				st.SetFromDate(model.NormalizeDate(from, time.Now()))
			}
			if to, _ := cmd.Flags().GetString("to"); to != "" {
				st.SetToDate(model.NormalizeDate(to, time.Now()))
			}

			all, _ := cmd.Flags().GetBool("all")
			if all {
				if err := fetchAll(cmd, st); err != nil {
					return err
				}
			} else {
				state := st.State()
				if err := st.FetchPage(cmd.Context(), state.FromDate, state.ToDate); err != nil {
					return err
				}
			}

			printExpenses(st.Expenses())
			state := st.State()
			if state.HasMore && !all {
				fmt.Println(cli.SubtleStyle.Render("more available: rerun with --all or use: spendwise browse"))
			}
			return nil
		},
	}
	cmd.Flags().String("from", "", "start date (yyyy-mm-dd, default: 10 days ago)")
	cmd.Flags().String("to", "", "end date (yyyy-mm-dd, default: today)")
	cmd.Flags().Bool("all", false, "walk every page instead of the first")
	return cmd
}

// fetchAll pages through the whole range, advancing the cursor after every
// non-empty page until the server runs dry.
func fetchAll(cmd *cobra.Command, st *store.Store) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Fetching expenses..."),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	for st.HasMore() {
		state := st.State()
		if err := st.FetchPage(cmd.Context(), state.FromDate, state.ToDate); err != nil {
			return err
		}
		_ = bar.Add(len(st.Expenses()) - len(state.Expenses))
		st.SetPage(state.Page + 1)
	}
	return nil
}

func printExpenses(expenses []model.Expense) {
	if len(expenses) == 0 {
		fmt.Println(cli.SubtleStyle.Render("no expenses in this range"))
		return
	}

	header := fmt.Sprintf("%-6s %-12s %-28s %-18s %10s", "ID", "Date", "Name", "Category", "Amount")
	fmt.Println(cli.TableHeaderStyle.Render(header))
	for _, e := range expenses {
		row := fmt.Sprintf("%-6d %-12s %-28s %-18s %10s",
			e.ID, e.Date, truncate(e.Name, 28), e.Category, cli.FormatAmount(e.Amount, e.Currency))
		fmt.Println(cli.TableCellStyle.Render(row))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Record a new expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}

			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			e := expenseFromFlags(cmd, model.Expense{Name: args[0], Amount: amount})
			if err := e.Validate(); err != nil {
				return err
			}

			id, err := st.Create(cmd.Context(), e)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded expense #%d: %s (%s)",
				id, e.Name, cli.FormatAmount(e.Amount, e.Currency))))
			return nil
		},
	}
	addExpenseFlags(cmd)
	return cmd
}

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update fields of an existing expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid expense id %q", args[0])
			}

			existing, err := client.GetExpense(cmd.Context(), id)
			if err != nil {
				return err
			}

			updated := expenseOverrides(cmd, existing)
			if err := updated.Validate(); err != nil {
				return err
			}

			if err := client.UpdateExpense(cmd.Context(), id, updated); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated expense #%d", id)))
			return nil
		},
	}
	cmd.Flags().String("name", "", "new name")
	cmd.Flags().Float64("amount", 0, "new amount")
	addExpenseFlags(cmd)
	return cmd
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid expense id %q", args[0])
			}
			if err := client.DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted expense #%d", id)))
			return nil
		},
	}
}

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse expenses interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(st)
		},
	}
}

// addExpenseFlags registers the optional expense field flags shared by add
// and edit.
func addExpenseFlags(cmd *cobra.Command) {
	cmd.Flags().String("category", string(model.CategoryOtherPayments), "expense category")
	cmd.Flags().String("currency", string(model.CurrencyUSD), "expense currency")
	cmd.Flags().String("date", "", "expense date (yyyy-mm-dd, default: today)")
	cmd.Flags().String("description", "", "free-form description")
}

// expenseFromFlags fills the optional fields of a new expense from flags,
// normalizing the date to the start of its day.
func expenseFromFlags(cmd *cobra.Command, e model.Expense) model.Expense {
	category, _ := cmd.Flags().GetString("category")
	currency, _ := cmd.Flags().GetString("currency")
	date, _ := cmd.Flags().GetString("date")
	description, _ := cmd.Flags().GetString("description")

	e.Category = model.Category(category)
	e.Currency = model.Currency(currency)
	e.Date = model.NormalizeDate(date, time.Now())
	e.Description = description
	return e
}

// expenseOverrides applies only the flags the user actually set on top of an
// existing expense.
func expenseOverrides(cmd *cobra.Command, e model.Expense) model.Expense {
	if cmd.Flags().Changed("name") {
		e.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("amount") {
		e.Amount, _ = cmd.Flags().GetFloat64("amount")
	}
	if cmd.Flags().Changed("category") {
		category, _ := cmd.Flags().GetString("category")
		e.Category = model.Category(category)
	}
	if cmd.Flags().Changed("currency") {
		currency, _ := cmd.Flags().GetString("currency")
		e.Currency = model.Currency(currency)
	}
	if cmd.Flags().Changed("date") {
		date, _ := cmd.Flags().GetString("date")
		e.Date = model.NormalizeDate(date, time.Now())
	}
	if cmd.Flags().Changed("description") {
		e.Description, _ = cmd.Flags().GetString("description")
	}
	return e
}
