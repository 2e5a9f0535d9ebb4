package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for quotecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotecrawl",
		Short: "Crawl paginated quote listings into structured records",
		Long: `quotecrawl fetches a quote listing page, extracts every quote block
(text, author, author page, tags) and follows the "next" link as long as it
points to the page number the crawler expects next.

Runs are stored in a local SQLite history so earlier results can be listed
and exported again.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
