package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/quotecrawl/internal/config"
	"github.com/nao1215/quotecrawl/internal/database"
	"github.com/nao1215/quotecrawl/internal/output"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "List stored crawl runs or export one of them",
		Long: `History reads the local crawl database.

Without flags it lists stored runs, newest first, optionally only those of
one host. With --run it prints the records of that run again, or its summary
when --report is given.

Examples:
  # List all runs
  quotecrawl history

  # List runs of one host
  quotecrawl history quotes.toscrape.com

  # Export the records of run 3 as CSV
  quotecrawl history --run 3 -f csv > quotes.csv

  # Show the Markdown summary of run 3
  quotecrawl history --run 3 --report markdown

  # List all crawled hosts
  quotecrawl history --hosts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0,
		"Print the records of the run with this ID")
	cmd.Flags().StringP("format", "f", output.FormatJSONL,
		"Record format for --run: jsonl, json or csv")
	cmd.Flags().String("report", "",
		"Print the summary of --run in this format instead of its records")
	cmd.Flags().BoolP("hosts", "H", false,
		"List all crawled hosts")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	runID, err := flags.GetInt64("run")
	if err != nil {
		return err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}
	reportFormat, err := flags.GetString("report")
	if err != nil {
		return err
	}
	listHosts, err := flags.GetBool("hosts")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case listHosts:
		return printHosts(ctx, db, out)
	case runID > 0:
		return printRun(ctx, db, out, runID, format, reportFormat)
	default:
		host := ""
		if len(args) > 0 {
			host = strings.ToLower(args[0])
		}
		return printRuns(ctx, db, out, host)
	}
}

// printHosts prints every host with stored runs.
func printHosts(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	hosts, err := db.ListHosts(ctx)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		fmt.Fprintln(out, "No crawls stored yet")
		return nil
	}

	fmt.Fprintf(out, "Crawled hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Fprintf(out, "  • %s\n", host)
	}
	return nil
}

// printRuns prints a table of stored runs.
func printRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, host string) error {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		if host != "" {
			fmt.Fprintf(out, "No crawl history found for %s\n", host)
		} else {
			fmt.Fprintln(out, "No crawls stored yet")
		}
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-8s  %-24s  %s\n", "ID", "Date", "Pages", "Records", "Stopped", "Seed")
	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %-8d  %-24s  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.PageCount,
			run.RecordCount,
			string(run.StopReason),
			run.Seed,
		)
	}
	return nil
}

// printRun prints the records of one run, or its summary when reportFormat is set.
// The text summary of a stored run always includes the page list.
func printRun(ctx context.Context, db *database.CrawlDB, out io.Writer, id int64, format, reportFormat string) error {
	report, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}

	if reportFormat != "" {
		var w output.ReportWriter = output.NewTextWriter(out, output.WithVerbose(true))
		if !strings.EqualFold(reportFormat, output.ReportText) {
			if w, err = output.NewReportWriter(reportFormat, out, getVersion()); err != nil {
				return err
			}
		}
		_, err = w.Write(report)
		return err
	}

	w, err := output.NewRecordWriter(format, out)
	if err != nil {
		return err
	}
	if err := w.WriteRecords(report.Records); err != nil {
		return err
	}
	return w.Close()
}
