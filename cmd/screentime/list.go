package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/screentime/screentime"
)

// limitFlag returns nil when --limit was not given.
func limitFlag(cmd *cobra.Command) (*int, error) {
	if !cmd.Flags().Changed("limit") {
		return nil, nil
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return nil, err
	}
	return &limit, nil
}

// withQuery opens the store for one command and closes it afterwards.
func (a *app) withQuery(fn func(q *screentime.QueryService) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(screentime.NewQueryService(store))
}

// =============================================================================
// ADJUSTMENT TYPES
// =============================================================================

func (a *app) adjustmentTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjustment-type",
		Short: "Commands related to adjustment types",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the available adjustment types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := limitFlag(cmd)
			if err != nil {
				return err
			}
			return a.withQuery(func(q *screentime.QueryService) error {
				return listAdjustmentTypes(cmd, q, limit)
			})
		},
	}
	list.Flags().IntP("limit", "l", 0, "maximum number of adjustment types to return")

	cmd.AddCommand(list)
	return cmd
}

func listAdjustmentTypes(cmd *cobra.Command, q *screentime.QueryService, limit *int) error {
	if limit != nil && *limit < 0 {
		return &screentime.ValidationError{Field: "limit", Message: "must not be negative"}
	}
	types, err := q.ListAdjustmentTypes(cmd.Context())
	if err != nil {
		return err
	}
	return renderTable(cmd.OutOrStdout(),
		[]string{"ID", "Description", "Adjustment"},
		adjustmentTypeRows(screentime.Truncate(types, limit)))
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func (a *app) adjustmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjustments",
		Short: "Commands related to adjustments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List adjustments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				filter screentime.AdjustmentFilter
				err    error
			)
			if filter.Limit, err = limitFlag(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("type") {
				typeID, _ := cmd.Flags().GetInt64("type")
				filter.Type = &typeID
			}
			since, _ := cmd.Flags().GetString("since")
			if filter.Since, err = screentime.ParseInstant(since, "since", screentime.StartOfDay); err != nil {
				return err
			}
			return a.withQuery(func(q *screentime.QueryService) error {
				return listAdjustments(cmd, q, filter)
			})
		},
	}
	list.Flags().Int64("type", 0, "only adjustments of this adjustment type ID")
	list.Flags().String("since", "", "only adjustments created at or after this time (RFC 3339 or YYYY-MM-DD)")
	list.Flags().IntP("limit", "l", 0, "maximum number of adjustments to return")

	cmd.AddCommand(list)
	return cmd
}

func listAdjustments(cmd *cobra.Command, q *screentime.QueryService, filter screentime.AdjustmentFilter) error {
	ctx := cmd.Context()
	adjs, err := q.ListAdjustments(ctx, filter)
	if err != nil {
		return err
	}
	names, err := typeNames(ctx, q)
	if err != nil {
		return err
	}
	return renderTable(cmd.OutOrStdout(),
		[]string{"ID", "Type", "Description", "Minutes", "Created"},
		adjustmentRows(adjs, names))
}

func typeNames(ctx context.Context, q *screentime.QueryService) (map[int64]string, error) {
	types, err := q.ListAdjustmentTypes(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Description
	}
	return names, nil
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (a *app) timeEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time-entries",
		Short: "Commands related to time entries",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List time entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				filter screentime.TimeEntryFilter
				err    error
			)
			if filter.Limit, err = limitFlag(cmd); err != nil {
				return err
			}
			since, _ := cmd.Flags().GetString("since")
			if filter.Since, err = screentime.ParseInstant(since, "since", screentime.StartOfDay); err != nil {
				return err
			}
			return a.withQuery(func(q *screentime.QueryService) error {
				entries, err := q.ListTimeEntries(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return renderTable(cmd.OutOrStdout(),
					[]string{"ID", "Time", "Created"},
					timeEntryRows(entries))
			})
		},
	}
	list.Flags().String("since", "", "only entries created at or after this time (RFC 3339 or YYYY-MM-DD)")
	list.Flags().IntP("limit", "l", 0, "maximum number of time entries to return")

	cmd.AddCommand(list)
	return cmd
}

// =============================================================================
// BALANCE
// =============================================================================

func (a *app) balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the screen time balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				w   screentime.Window
				err error
			)
			since, _ := cmd.Flags().GetString("since")
			if w.Since, err = screentime.ParseInstant(since, "since", screentime.StartOfDay); err != nil {
				return err
			}
			until, _ := cmd.Flags().GetString("until")
			if w.Until, err = screentime.ParseInstant(until, "until", screentime.EndOfDay); err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := screentime.NewBalanceEngine(store).Window(cmd.Context(), w)
			if err != nil {
				return err
			}
			return printBalance(cmd, b)
		},
	}
	cmd.Flags().String("since", "", "only records created at or after this time")
	cmd.Flags().String("until", "", "only records created at or before this time")
	return cmd
}

func printBalance(cmd *cobra.Command, b screentime.Balance) error {
	out := cmd.OutOrStdout()
	_, err := fmt.Fprintf(out, "%s %s (%d minutes, %s hours)\n  earned %s  spent %s\n",
		titleStyle.Render("Balance:"),
		b.Minutes.Format(),
		int64(b.Minutes),
		b.Minutes.Hours().StringFixed(2),
		b.Adjusted.Format(),
		b.Spent.Format(),
	)
	return err
}
