package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/service"
)

var reviewFlags struct {
	ids    []string
	force  bool
	output string
}

var reviewCmd = &cobra.Command{
	Use:   "review <vertical>",
	Short: "Review a stored collection and write results back",
	Long: "Reviews the stored collection of one vertical (claims, drg, medical-necessity\n" +
		"or readmissions) and rewrites its file. With no --ids everything is reviewed.",
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

var rulesCmd = &cobra.Command{
	Use:   "rules <vertical>",
	Short: "List the rules of a vertical",
	Args:  cobra.ExactArgs(1),
	RunE:  runRules,
}

func init() {
	f := reviewCmd.Flags()
	f.StringSliceVar(&reviewFlags.ids, "ids", nil, "Comma-separated ids to review (default all)")
	f.BoolVar(&reviewFlags.force, "force", false, "Re-review outlier claims that are no longer Pending")
	f.StringVarP(&reviewFlags.output, "output", "o", "table", "Output format: table or json")

	rootCmd.AddCommand(reviewCmd, rulesCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	// Logs go to stderr so stdout carries only the report.
	a, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	rv, err := a.registry.Get(args[0])
	if err != nil {
		return err
	}

	report, err := rv.Review(cmd.Context(), service.Request{IDs: reviewFlags.ids, Force: reviewFlags.force})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch reviewFlags.output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "table":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tERRORS")
		for _, o := range report.Outcomes {
			fmt.Fprintf(w, "%s\t%s\t%d\n", o.ID, o.Status, len(o.Errors))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s review %s (rules %s): %d reviewed, %d not found, %d failed, %d skipped in %dms\n",
			report.Vertical, report.ID, report.RuleVersion,
			report.Tally[review.OutcomeReviewed], report.Tally[review.OutcomeNotFound],
			report.Tally[review.OutcomeFailed], report.Tally[review.OutcomeSkipped],
			report.DurationMs)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", reviewFlags.output)
	}
}

func runRules(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	rv, err := a.registry.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tNAME")
	for _, r := range rv.Rules() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Category, r.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d rules, version %s\n", len(rv.Rules()), rv.RuleVersion())
	return nil
}
