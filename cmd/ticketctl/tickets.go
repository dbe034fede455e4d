package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/deskline/ticket-sync/internal/domain"
)

func newLoginCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and print an access token for TICKET_API_TOKEN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.app.Config.API
			if cfg.Username == "" {
				return fmt.Errorf("--username is required")
			}
			user, err := c.app.Login(cmd.Context(), cfg.Username, cfg.Password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return c.emit(out, map[string]any{"access_token": c.app.Session.Token(), "user": user}, func(w io.Writer) {
				fmt.Fprintf(w, "signed in as %s (id %d, %s)\n", user.Username, user.ID, user.Role)
				fmt.Fprintln(w, c.app.Session.Token())
			})
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	var (
		filters domain.Filters
		status  string
		page    domain.Pagination
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets matching filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			filters.Status = domain.TicketStatus(status)
			if status != "" && !filters.Status.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}
			c.app.Store.SetFilters(filters)
			result, err := c.app.RefreshTickets(cmd.Context(), page, true)
			if err != nil {
				return c.failure(err)
			}
			return c.emit(cmd.OutOrStdout(), result, func(w io.Writer) {
				writeTickets(w, result.Items, result.Total)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "new, open, pending, resolved or closed")
	f.StringVar(&filters.Priority, "priority", "", "priority tag")
	f.StringVar(&filters.TicketType, "type", "", "ticket type tag")
	f.StringVar(&filters.Category, "category", "", "category")
	f.StringVarP(&filters.Search, "search", "s", "", "free-text search")
	f.BoolVar(&filters.MyTickets, "mine", false, "only tickets assigned to or requested by me")
	f.IntVar(&page.Skip, "skip", 0, "tickets to skip")
	f.IntVar(&page.Limit, "limit", 0, "maximum tickets to return")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ticket counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			stats, err := c.app.RefreshStats(cmd.Context(), true)
			if err != nil {
				return c.failure(err)
			}
			return c.emit(cmd.OutOrStdout(), stats, func(w io.Writer) { writeStats(w, stats) })
		},
	}
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one ticket with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			ticket, err := c.app.Store.FetchTicket(cmd.Context(), id)
			if err != nil {
				return c.failure(err)
			}
			return c.printTicket(cmd, ticket)
		},
	}
}

// ticketFlags binds the editable fields. Only flags the user set end up in the input.
type ticketFlags struct {
	title, description, priority, ticketType, category, status string
	assignee                                                   int64
	slaBreached                                                bool
}

func (tf *ticketFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&tf.title, "title", "t", "", "title")
	f.StringVarP(&tf.description, "description", "d", "", "description")
	f.StringVar(&tf.priority, "priority", "", "priority tag")
	f.StringVar(&tf.ticketType, "type", "", "ticket type tag")
	f.StringVar(&tf.category, "category", "", "category")
	f.StringVar(&tf.status, "status", "", "status")
	f.Int64Var(&tf.assignee, "assignee", 0, "assignee user id")
	f.BoolVar(&tf.slaBreached, "sla-breached", false, "mark the SLA as breached")
}

func (tf *ticketFlags) input(cmd *cobra.Command) domain.TicketInput {
	changed := cmd.Flags().Changed
	var in domain.TicketInput
	if changed("title") {
		in.Title = domain.StringPtr(tf.title)
	}
	if changed("description") {
		in.Description = domain.StringPtr(tf.description)
	}
	if changed("priority") {
		in.Priority = domain.StringPtr(tf.priority)
	}
	if changed("type") {
		in.TicketType = domain.StringPtr(tf.ticketType)
	}
	if changed("category") {
		in.Category = domain.StringPtr(tf.category)
	}
	if changed("status") {
		status := domain.TicketStatus(tf.status)
		in.Status = &status
	}
	if changed("assignee") {
		in.AssignedToID = domain.Int64Ptr(tf.assignee)
	}
	if changed("sla-breached") {
		breached := tf.slaBreached
		in.SLABreached = &breached
	}
	return in
}

func newCreateCmd(c *cli) *cobra.Command {
	var tf ticketFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tf.title == "" {
				return fmt.Errorf("--title is required")
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			ticket, err := c.app.Store.CreateTicket(cmd.Context(), tf.input(cmd))
			if err != nil {
				return c.failure(err)
			}
			return c.printTicket(cmd, ticket)
		},
	}
	tf.bind(cmd)
	return cmd
}

func newUpdateCmd(c *cli) *cobra.Command {
	var tf ticketFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit ticket fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			ticket, err := c.app.Store.UpdateTicket(cmd.Context(), id, tf.input(cmd))
			if err != nil {
				return c.failure(err)
			}
			return c.printTicket(cmd, ticket)
		},
	}
	tf.bind(cmd)
	return cmd
}

func newCommentCmd(c *cli) *cobra.Command {
	var internal bool
	cmd := &cobra.Command{
		Use:   "comment ID TEXT",
		Short: "Add a comment to a ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.signIn(cmd.Context()); err != nil {
				return err
			}
			comment, err := c.app.Store.AddComment(cmd.Context(), id, domain.CommentInput{Content: args[1], IsInternal: internal})
			if err != nil {
				return c.failure(err)
			}
			return c.emit(cmd.OutOrStdout(), comment, func(w io.Writer) {
				fmt.Fprintf(w, "added comment #%d to ticket #%d\n", comment.ID, id)
			})
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "hide the comment from the requester")
	return cmd
}

func (c *cli) printTicket(cmd *cobra.Command, ticket domain.Ticket) error {
	return c.emit(cmd.OutOrStdout(), ticket, func(w io.Writer) { writeTicket(w, ticket) })
}
