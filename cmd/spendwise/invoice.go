package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spendwise/spendwise/internal/cli"
)

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice <image-file>",
		Short: "Pre-fill an expense from an invoice image",
		Long: `Upload an invoice image for analysis. The extracted field guesses are
normalized into an expense draft; pass --submit to record it immediately,
otherwise the draft is printed for review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, client, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open invoice: %w", err)
			}
			defer func() { _ = file.Close() }()

			draft, err := client.AnalyzeInvoice(cmd.Context(), filepath.Base(args[0]), file)
			if err != nil {
				return err
			}

			st.EditDraft(draft)
			expense := st.Current()

			fmt.Println(cli.FormatTitle("Invoice draft"))
			fmt.Printf("  Name:        %s\n", expense.Name)
			fmt.Printf("  Amount:      %s\n", cli.FormatAmount(expense.Amount, expense.Currency))
			fmt.Printf("  Category:    %s\n", expense.Category)
			fmt.Printf("  Date:        %s\n", expense.Date)
			if expense.Description != "" {
				fmt.Printf("  Description: %s\n", expense.Description)
			}

			submit, _ := cmd.Flags().GetBool("submit")
			if !submit {
				fmt.Println(cli.SubtleStyle.Render("draft only; pass --submit to record it"))
				return nil
			}

			toCreate := *expense
			toCreate.ID = 0
			if err := toCreate.Validate(); err != nil {
				return fmt.Errorf("draft is incomplete, fix and use: spendwise add: %w", err)
			}
			id, err := st.Create(cmd.Context(), toCreate)
			if err != nil {
				return err
			}
			st.ClearEdit()
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded expense #%d from invoice", id)))
			return nil
		},
	}
	cmd.Flags().Bool("submit", false, "record the draft immediately")
	return cmd
}
