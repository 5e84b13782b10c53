package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/estensen/roi-dashboard/internal/models"
	"github.com/estensen/roi-dashboard/internal/parser"
	"github.com/estensen/roi-dashboard/internal/presenter"
	"github.com/estensen/roi-dashboard/internal/render"
)

type reconcileOptions struct {
	transactionsFile string
	investmentsFile  string
	query            presenter.Query
	summary          bool
	asJSON           bool
}

func newReconcileCmd(a *app) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Deduplicate a transaction export and print one page of it",
		Long: `Reads a transaction history export (JSON API dump or CSV), collapses
duplicate and repeated ROI postings, then filters, sorts and paginates it.

Example:
  roidash reconcile --transactions history.json --investments investments.json
  roidash reconcile --transactions history.csv --type roi --sort amount --order asc
  roidash reconcile --transactions history.json --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReconcile(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.transactionsFile, "transactions", "t", "", "transaction history file (.json or .csv)")
	f.StringVarP(&opts.investmentsFile, "investments", "i", "", "investments file (.json), used for plan labels")
	f.StringVar(&opts.query.Filter.Search, "search", "", "case-insensitive search over type, amount and label")
	f.StringVar(&opts.query.Filter.Status, "status", presenter.FilterAll, "status filter")
	f.StringVar(&opts.query.Filter.Type, "type", presenter.FilterAll, "type filter")
	f.StringVar(&opts.query.Sort.By, "sort", presenter.SortByDate, "sort by date or amount")
	f.StringVar(&opts.query.Sort.Order, "order", presenter.OrderDesc, "asc or desc")
	f.IntVar(&opts.query.Page, "page", 1, "page number")
	f.IntVar(&opts.query.PageSize, "page-size", 0, "rows per page (default from display.page_size)")
	f.BoolVar(&opts.summary, "summary", false, "print daily totals instead of a page")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")

	_ = cmd.MarkFlagRequired("transactions")
	return cmd
}

func (a *app) runReconcile(cmd *cobra.Command, opts *reconcileOptions) error {
	if err := opts.query.Sort.Validate(); err != nil {
		return err
	}

	p := parser.NewFileParser()

	transactions, err := p.ParseTransactions(opts.transactionsFile)
	if err != nil {
		return fmt.Errorf("error reading transactions: %w", err)
	}

	var investments []models.Investment
	if opts.investmentsFile != "" {
		if investments, err = p.ParseInvestments(opts.investmentsFile); err != nil {
			return fmt.Errorf("error reading investments: %w", err)
		}
	}

	reconciled, stats := a.deduplicator().Run(transactions)
	a.logger.Info("reconciled transactions",
		"input", stats.Input,
		"exact_duplicates", stats.ExactDuplicates,
		"collapsed", stats.Collapsed,
		"output", stats.Output,
	)

	out := cmd.OutOrStdout()

	if opts.summary {
		summaries := presenter.Summarize(reconciled)
		if opts.asJSON {
			return json.NewEncoder(out).Encode(summaries)
		}
		render.Summaries(out, summaries)
		return nil
	}

	presenterOpts, err := a.presenterOptions()
	if err != nil {
		return err
	}

	q := opts.query
	if q.PageSize <= 0 {
		q.PageSize = a.cfg.Display.PageSize
	}
	list := presenter.New(investments, presenterOpts...).Present(reconciled, q)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	render.Transactions(out, list)
	return nil
}
