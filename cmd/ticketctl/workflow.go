package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deskline/ticket-sync/internal/domain"
)

// workflowCmd builds a command that runs one single-ticket transition and prints the
// reloaded ticket.
func workflowCmd(c *cli, use, short string, args cobra.PositionalArgs, run func(ctx context.Context, id int64, args []string) (domain.Ticket, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			ticket, err := run(cmd.Context(), id, args[1:])
			if err != nil {
				return c.failure(err)
			}
			if cur := c.app.Store.Current().Get(); cur != nil && cur.ID == id {
				ticket = *cur
			}
			return c.printTicket(cmd, ticket)
		},
	}
}

func newCloseCmd(c *cli) *cobra.Command {
	return workflowCmd(c, "close ID", "Close a ticket", cobra.ExactArgs(1),
		func(ctx context.Context, id int64, _ []string) (domain.Ticket, error) {
			return c.app.Store.CloseTicket(ctx, id)
		})
}

func newResolveCmd(c *cli) *cobra.Command {
	var resolution, code string
	cmd := workflowCmd(c, "resolve ID", "Resolve a ticket", cobra.ExactArgs(1),
		func(ctx context.Context, id int64, _ []string) (domain.Ticket, error) {
			return c.app.Store.ResolveTicket(ctx, id, resolution, code)
		})
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "what was done (required)")
	cmd.Flags().StringVar(&code, "code", "", "resolution code (default \"fixed\")")
	_ = cmd.MarkFlagRequired("resolution")
	return cmd
}

func newReopenCmd(c *cli) *cobra.Command {
	var reason string
	cmd := workflowCmd(c, "reopen ID", "Reopen a resolved or closed ticket", cobra.ExactArgs(1),
		func(ctx context.Context, id int64, _ []string) (domain.Ticket, error) {
			return c.app.Store.ReopenTicket(ctx, id, reason)
		})
	cmd.Flags().StringVar(&reason, "reason", "", "why the ticket is reopened")
	return cmd
}

func newAssignCmd(c *cli) *cobra.Command {
	return workflowCmd(c, "assign ID USER_ID", "Assign a ticket to a user", cobra.ExactArgs(2),
		func(ctx context.Context, id int64, rest []string) (domain.Ticket, error) {
			userID, err := strconv.ParseInt(rest[0], 10, 64)
			if err != nil {
				return domain.Ticket{}, fmt.Errorf("invalid user id %q", rest[0])
			}
			return c.app.Store.AssignTicket(ctx, id, userID)
		})
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			if err := c.app.Store.DeleteTicket(cmd.Context(), id); err != nil {
				return c.failure(err)
			}
			return c.emit(cmd.OutOrStdout(), map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted ticket #%d\n", id)
			})
		},
	}
}
