package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abelbrown/popcorn/internal/history"
	"github.com/abelbrown/popcorn/internal/search"
)

var (
	historyLimit     int
	historyStats     bool
	historyPruneDays int
)

var historyCmd = &cobra.Command{
	Use:   "history [term]",
	Short: "Show past searches",
	Long: `Show past searches, newest first. With a term, past queries are
fuzzy-matched against it instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := history.Open(historyPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer st.Close()

		out := cmd.OutOrStdout()
		if historyPruneDays > 0 {
			n, err := st.Prune(time.Now().AddDate(0, 0, -historyPruneDays))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pruned %d searches older than %d days\n", n, historyPruneDays)
		}
		if historyStats {
			return printHistoryStats(out, st)
		}
		if len(args) == 1 {
			return printQueryMatches(out, st, args[0], historyLimit)
		}
		return printRecent(out, st, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum rows to show")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "count searches by outcome")
	historyCmd.Flags().IntVar(&historyPruneDays, "prune", 0, "delete searches older than this many days")
	rootCmd.AddCommand(historyCmd)
}

func printRecent(out io.Writer, st *history.Store, limit int) error {
	entries, err := st.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No searches yet")
		return nil
	}
	dim := color.New(color.Faint).SprintFunc()
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s %4d  %-30s %s\n",
			dim(e.Started.Local().Format("2006-01-02 15:04")),
			statusLabel(e.Status),
			e.Count,
			truncate(e.Query, 30),
			dim(formatDuration(e.Duration)))
	}
	return nil
}

func printQueryMatches(out io.Writer, st *history.Store, term string, limit int) error {
	matches, err := st.Search(term, limit)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintf(out, "No past searches match %q\n", term)
		return nil
	}
	for _, q := range matches {
		fmt.Fprintln(out, q)
	}
	return nil
}

func printHistoryStats(out io.Writer, st *history.Store) error {
	stats, err := st.Stats()
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return errors.New("history is empty")
	}
	statuses := make([]string, 0, len(stats))
	total := 0
	for s, n := range stats {
		statuses = append(statuses, s)
		total += n
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(out, "%s %d\n", statusLabel(s), stats[s])
	}
	fmt.Fprintf(out, "%-9s %d\n", "total", total)
	return nil
}

// statusLabel pads then colors a status so escape codes don't skew columns.
func statusLabel(status string) string {
	padded := fmt.Sprintf("%-9s", status)
	switch status {
	case search.StatusReady:
		return color.GreenString(padded)
	case search.StatusFailed:
		return color.RedString(padded)
	case search.StatusCancelled:
		return color.YellowString(padded)
	default:
		return padded
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}
