package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/deskline/ticket-sync/internal/domain"
)

// failure prefers the message the store recorded, which is the server's own wording when
// it gave one.
func (c *cli) failure(err error) error {
	if msg := c.app.Store.LastError().Get(); msg != "" {
		return errors.New(msg)
	}
	return err
}

func (c *cli) emit(w io.Writer, v any, table func(io.Writer)) error {
	if c.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(w)
	return nil
}

func writeTickets(w io.Writer, tickets []domain.Ticket, total int) {
	if len(tickets) == 0 {
		fmt.Fprintln(w, "No tickets found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTYPE\tASSIGNEE\tSLA\tTITLE")
	for _, t := range tickets {
		assignee := "-"
		if t.AssignedToID != nil {
			assignee = fmt.Sprint(*t.AssignedToID)
		}
		sla := ""
		if t.SLABreached {
			sla = "breached"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.TicketType, assignee, sla, t.Title)
	}
	_ = tw.Flush()
	if total > len(tickets) {
		fmt.Fprintf(w, "%d of %d tickets\n", len(tickets), total)
	}
}

func writeTicket(w io.Writer, t domain.Ticket) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", t.ID)
	fmt.Fprintf(tw, "Title\t%s\n", t.Title)
	fmt.Fprintf(tw, "Status\t%s\n", t.Status)
	fmt.Fprintf(tw, "Priority\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Type\t%s\n", t.TicketType)
	if t.Category != "" {
		fmt.Fprintf(tw, "Category\t%s\n", t.Category)
	}
	if t.AssignedToID != nil {
		fmt.Fprintf(tw, "Assignee\t%d\n", *t.AssignedToID)
	}
	if t.RequesterID != nil {
		fmt.Fprintf(tw, "Requester\t%d\n", *t.RequesterID)
	}
	if t.SLABreached {
		fmt.Fprintln(tw, "SLA\tbreached")
	}
	if t.Resolution != "" {
		fmt.Fprintf(tw, "Resolution\t%s\n", t.Resolution)
	}
	_ = tw.Flush()
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
	if len(t.Comments) > 0 {
		fmt.Fprintln(w, "\nComments:")
		for _, cm := range t.Comments {
			marker := ""
			if cm.IsInternal {
				marker = " (internal)"
			}
			fmt.Fprintf(w, "  #%d%s: %s\n", cm.ID, marker, cm.Content)
		}
	}
}

func writeStats(w io.Writer, s domain.TicketStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "total\t%d\n", s.Total)
	fmt.Fprintf(tw, "new\t%d\n", s.New)
	fmt.Fprintf(tw, "open\t%d\n", s.Open)
	fmt.Fprintf(tw, "pending\t%d\n", s.Pending)
	fmt.Fprintf(tw, "resolved\t%d\n", s.Resolved)
	fmt.Fprintf(tw, "closed\t%d\n", s.Closed)
	fmt.Fprintf(tw, "sla breached\t%d\n", s.SLABreached)
	fmt.Fprintf(tw, "by priority\t%s\n", formatCounts(s.ByPriority))
	fmt.Fprintf(tw, "by type\t%s\n", formatCounts(s.ByType))
	_ = tw.Flush()
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
