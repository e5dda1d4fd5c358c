package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

// queryFlags are shared by every query subcommand.
type queryFlags struct {
	pageSize     int
	limit        int
	jq           string
	continuation string
	onePage      bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Items per page (default: $IOTHUB_PAGE_SIZE)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Stop after this many items (default: all)")
	cmd.Flags().StringVar(&f.jq, "jq", "", "jq expression applied to each item")
	cmd.Flags().StringVar(&f.continuation, "continuation", "", "Resume from a continuation token; fetches one page")
	cmd.Flags().BoolVar(&f.onePage, "one-page", false, "Fetch a single page and print its continuation token")
}

func (f *queryFlags) paged() bool {
	return f.onePage || f.continuation != ""
}

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run paged queries over twins and jobs",
	}
	cmd.AddCommand(
		newQueryTwinsCmd(a),
		newQueryRawCmd(a),
		newQueryDeviceJobsCmd(a),
		newQueryJobsCmd(a),
	)
	return cmd
}

func newQueryTwinsCmd(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:     "twins SQL",
		Short:   "Query device and module twins",
		Example: `  iothub query twins "SELECT * FROM devices WHERE tags.site = 'north'" --limit 20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.printer(cmd, f.jq, twinColumns)
			if f.paged() {
				col, err := a.client.QueryTwinCollection(args[0], f.pageSize)
				if err != nil {
					return err
				}
				return printPage(cmd.Context(), p, col, f)
			}
			cur, err := a.client.QueryTwins(cmd.Context(), args[0], f.pageSize)
			if err != nil {
				return err
			}
			return printAll(cmd.Context(), p, cur, f.limit)
		},
	}
	f.register(cmd)
	return cmd
}

func newQueryRawCmd(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:     "raw SQL",
		Short:   "Run a projection or aggregation query",
		Example: `  iothub query raw "SELECT status, COUNT() AS n FROM devices GROUP BY status"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.printer(cmd, f.jq, nil)
			if f.paged() {
				col, err := a.client.QueryRawCollection(args[0], f.pageSize)
				if err != nil {
					return err
				}
				return printPage(cmd.Context(), p, col, f)
			}
			cur, err := a.client.QueryRaw(cmd.Context(), args[0], f.pageSize)
			if err != nil {
				return err
			}
			return printAll(cmd.Context(), p, cur, f.limit)
		},
	}
	f.register(cmd)
	return cmd
}

func newQueryDeviceJobsCmd(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:     "device-jobs SQL",
		Short:   "Query per-device job records",
		Example: `  iothub query device-jobs "SELECT * FROM devices.jobs WHERE devices.jobs.jobId = 'fw-42'"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.printer(cmd, f.jq, deviceJobColumns)
			if f.paged() {
				col, err := a.client.QueryDeviceJobCollection(args[0], f.pageSize)
				if err != nil {
					return err
				}
				return printPage(cmd.Context(), p, col, f)
			}
			cur, err := a.client.QueryDeviceJobs(cmd.Context(), args[0], f.pageSize)
			if err != nil {
				return err
			}
			return printAll(cmd.Context(), p, cur, f.limit)
		},
	}
	f.register(cmd)
	return cmd
}

func newQueryJobsCmd(a *app) *cobra.Command {
	var f queryFlags
	var filter client.JobFilter
	cmd := &cobra.Command{
		Use:     "jobs",
		Short:   "List scheduled jobs",
		Example: `  iothub query jobs --type scheduleDeviceMethod --status running`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.printer(cmd, f.jq, jobColumns)
			if f.paged() {
				col, err := a.client.QueryJobResponseCollection(filter, f.pageSize)
				if err != nil {
					return err
				}
				return printPage(cmd.Context(), p, col, f)
			}
			cur, err := a.client.QueryJobResponses(cmd.Context(), filter, f.pageSize)
			if err != nil {
				return err
			}
			return printAll(cmd.Context(), p, cur, f.limit)
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "Job type: scheduleDeviceMethod or scheduleUpdateTwin")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Job status: queued, scheduled, running, completed, failed, cancelled")
	f.register(cmd)
	return cmd
}

func (a *app) printer(cmd *cobra.Command, expr string, cols []column) *printer {
	return &printer{
		w:       cmd.OutOrStdout(),
		errw:    cmd.ErrOrStderr(),
		format:  a.output,
		jq:      a.jq,
		expr:    expr,
		columns: cols,
	}
}

// printAll walks cur until it is exhausted or limit items were read.
func printAll[T any](ctx context.Context, p *printer, cur *query.Cursor[T], limit int) error {
	start := time.Now()
	var items []T
	for item, err := range cur.All(ctx) {
		if err != nil {
			return err
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	slog.Debug("query walked",
		slog.Int("items", len(items)),
		slog.Int("pages", cur.Pages()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	generic, err := toGeneric(items)
	if err != nil {
		return err
	}
	return p.print(generic)
}

// printPage fetches a single page of col and reports where to resume.
func printPage[T any](ctx context.Context, p *printer, col *query.Collection[T], f queryFlags) error {
	pageSize := f.pageSize
	if pageSize <= 0 {
		pageSize = col.PageSize()
	}
	page, err := col.NextWith(ctx, query.Options{ContinuationToken: f.continuation, PageSize: pageSize})
	if err != nil {
		return err
	}
	if page == nil {
		return nil
	}

	generic, err := toGeneric(page.Items())
	if err != nil {
		return err
	}
	if err := p.print(generic); err != nil {
		return err
	}

	if page.HasMore() {
		fmt.Fprintln(p.errw, pterm.Info.Sprintf("more results: --continuation %q", page.ContinuationToken()))
	}
	return nil
}
