package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/popcorn/internal/omdb"
	"github.com/abelbrown/popcorn/internal/search"
)

// catalog is the slice of the omdb client the search command needs.
type catalog interface {
	Search(ctx context.Context, query string) (omdb.SearchPage, error)
	Detail(ctx context.Context, id string) (omdb.MovieDetail, error)
}

type searchOptions struct {
	details     bool
	limit       int
	concurrency int
}

var searchOpts searchOptions

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog once and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var rec search.Recorder
		if hist := openHistory(); hist != nil {
			defer hist.Close()
			rec = hist
		}
		return runSearch(ctx, cmd.OutOrStdout(), newClient(cfg), rec, strings.Join(args, " "), searchOpts)
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&searchOpts.details, "details", "d", false, "fetch full details for each result")
	searchCmd.Flags().IntVarP(&searchOpts.limit, "limit", "n", 10, "maximum results to print")
	searchCmd.Flags().IntVar(&searchOpts.concurrency, "concurrency", 4, "parallel detail requests")
	rootCmd.AddCommand(searchCmd)
}

// runSearch performs one search, optionally expands each hit with its
// details, and records the outcome in rec when rec is non-nil.
func runSearch(ctx context.Context, out io.Writer, client catalog, rec search.Recorder, query string, opts searchOptions) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return errors.New("empty query")
	}

	qid := uuid.NewString()
	start := time.Now()
	if rec != nil {
		_ = rec.Start(qid, query, start)
	}
	finish := func(status string, n int) {
		if rec != nil {
			_ = rec.Finish(qid, status, n, time.Since(start))
		}
	}

	page, err := client.Search(ctx, query)
	switch {
	case omdb.IsCancelled(err):
		finish(search.StatusCancelled, 0)
		return err
	case errors.Is(err, omdb.ErrNotFound):
		finish(search.StatusFailed, 0)
		color.New(color.FgYellow).Fprintln(out, omdb.MessageNotFound)
		return nil
	case err != nil:
		finish(search.StatusFailed, 0)
		return fmt.Errorf("%s: %w", omdb.UserMessage(err), err)
	}
	finish(search.StatusReady, page.Total)

	items := page.Items
	if opts.limit > 0 && len(items) > opts.limit {
		items = items[:opts.limit]
	}

	var details []omdb.MovieDetail
	if opts.details {
		details, err = fetchDetails(ctx, client, items, opts.concurrency)
		if err != nil {
			return err
		}
	}

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintln(out, green(fmt.Sprintf("Found %d results", page.Total)))
	fmt.Fprintln(out)
	for i, it := range items {
		fmt.Fprintf(out, "  %s %s  %s\n", bold(truncate(it.Title, 60)), dim("("+it.Year+")"), cyan(it.ID))
		if details == nil {
			continue
		}
		d := details[i]
		var facts []string
		if d.Runtime != "" && d.Runtime != "N/A" {
			facts = append(facts, d.Runtime)
		}
		if d.IMDbRating != "" && d.IMDbRating != "N/A" {
			facts = append(facts, "⭐ "+d.IMDbRating)
		}
		if d.Director != "" && d.Director != "N/A" {
			facts = append(facts, d.Director)
		}
		if len(facts) > 0 {
			fmt.Fprintf(out, "      %s\n", dim(strings.Join(facts, " · ")))
		}
		if d.Plot != "" && d.Plot != "N/A" {
			fmt.Fprintf(out, "      %s\n", truncate(d.Plot, 100))
		}
	}
	return nil
}

// fetchDetails loads details for items in parallel, preserving order.
// A missing title leaves a zero MovieDetail in its slot.
func fetchDetails(ctx context.Context, client catalog, items []omdb.SearchResult, limit int) ([]omdb.MovieDetail, error) {
	if limit <= 0 {
		limit = 1
	}
	out := make([]omdb.MovieDetail, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, it := range items {
		g.Go(func() error {
			d, err := client.Detail(gctx, it.ID)
			if errors.Is(err, omdb.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("detail %s: %w", it.ID, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
