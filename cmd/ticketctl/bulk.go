package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deskline/ticket-sync/internal/domain"
)

func newBulkCmd(c *cli) *cobra.Command {
	bulk := &cobra.Command{
		Use:   "bulk",
		Short: "Apply one change to many tickets",
	}
	bulk.AddCommand(
		bulkCmd(c, "close IDS...", "Close tickets", 0,
			func(ctx context.Context, _ string, ids []int64) (domain.BulkResult, error) {
				return c.app.Store.BulkCloseTickets(ctx, ids)
			}),
		bulkCmd(c, "status STATUS IDS...", "Set the status of tickets", 1,
			func(ctx context.Context, value string, ids []int64) (domain.BulkResult, error) {
				status := domain.TicketStatus(value)
				if !status.Valid() {
					return domain.BulkResult{}, fmt.Errorf("invalid status %q", value)
				}
				return c.app.Store.BulkUpdateStatus(ctx, ids, status)
			}),
		bulkCmd(c, "assign USER_ID IDS...", "Assign tickets to a user", 1,
			func(ctx context.Context, value string, ids []int64) (domain.BulkResult, error) {
				userID, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return domain.BulkResult{}, fmt.Errorf("invalid user id %q", value)
				}
				return c.app.Store.BulkAssignTickets(ctx, ids, userID)
			}),
		bulkCmd(c, "priority PRIORITY IDS...", "Set the priority of tickets", 1,
			func(ctx context.Context, value string, ids []int64) (domain.BulkResult, error) {
				return c.app.Store.BulkUpdatePriority(ctx, ids, value)
			}),
		bulkCmd(c, "type TYPE IDS...", "Set the type of tickets", 1,
			func(ctx context.Context, value string, ids []int64) (domain.BulkResult, error) {
				return c.app.Store.BulkUpdateType(ctx, ids, value)
			}),
	)
	return bulk
}

// bulkCmd builds a bulk subcommand. When valueArgs is 1 the first argument is the new value
// and the rest are ticket ids, which may also be comma separated.
func bulkCmd(c *cli, use, short string, valueArgs int, run func(ctx context.Context, value string, ids []int64) (domain.BulkResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(valueArgs + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if valueArgs == 1 {
				value, args = args[0], args[1:]
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			// Mirror the affected tickets first so the local counters move with the change.
			if _, err := c.app.RefreshTickets(cmd.Context(), domain.Pagination{}, true); err != nil {
				return c.failure(err)
			}
			result, err := run(cmd.Context(), value, ids)
			if err != nil {
				return c.failure(err)
			}
			return c.emit(cmd.OutOrStdout(), result, func(w io.Writer) {
				if result.Message != "" {
					fmt.Fprintln(w, result.Message)
					return
				}
				fmt.Fprintf(w, "%d tickets updated\n", result.Updated)
			})
		},
	}
}
