package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/deskline/ticket-sync/internal/domain"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statsStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("237"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	frozenStyle   = lipgloss.NewStyle().Faint(true)
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	confirmStyle  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("214")).Padding(0, 1)
	breachedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	statusColors = map[domain.TicketStatus]lipgloss.Color{
		domain.TicketStatusNew:      lipgloss.Color("14"),
		domain.TicketStatusOpen:     lipgloss.Color("10"),
		domain.TicketStatusPending:  lipgloss.Color("11"),
		domain.TicketStatusResolved: lipgloss.Color("13"),
		domain.TicketStatusClosed:   lipgloss.Color("8"),
	}
)

// View renders the board.
func (b *Board) View() string {
	var sections []string
	sections = append(sections, b.renderHeader(), b.renderList())
	if b.detail != nil {
		sections = append(sections, b.renderDetail())
	}
	if b.confirm != nil {
		sections = append(sections, confirmStyle.Render(b.confirm.question+"  (y/n)"))
	}
	sections = append(sections, b.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (b *Board) renderHeader() string {
	stats := b.app.Store.Stats().Get()
	title := titleStyle.Render(fmt.Sprintf("Tickets · %s", b.view))
	counters := statsStyle.Render(fmt.Sprintf("total %d  new %d  open %d  pending %d  resolved %d  closed %d  sla %d",
		stats.Total, stats.New, stats.Open, stats.Pending, stats.Resolved, stats.Closed, stats.SLABreached))
	if b.app.Store.Loading().Get() {
		counters += statsStyle.Render("  loading…")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, counters)
}

func (b *Board) renderList() string {
	tickets := b.Visible()
	if len(tickets) == 0 {
		return helpStyle.Render("no tickets")
	}
	rows := make([]string, 0, len(tickets))
	for i, t := range tickets {
		mark := "[ ]"
		if _, ok := b.selected[t.ID]; ok {
			mark = "[x]"
		}
		row := fmt.Sprintf("%s #%-5d %s %-8s %-10s %s", mark, t.ID, renderStatus(t.Status), t.Priority, t.TicketType, t.Title)
		if t.SLABreached {
			row += " " + breachedStyle.Render("SLA")
		}
		if i == b.cursor {
			row = cursorStyle.Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (b *Board) renderDetail() string {
	cur := b.app.Store.Current().Get()
	var body string
	if cur == nil || cur.ID != b.detail.id {
		body = fmt.Sprintf("loading ticket #%d…", b.detail.id)
	} else {
		lines := []string{
			titleStyle.Render(fmt.Sprintf("#%d %s", cur.ID, cur.Title)),
			fmt.Sprintf("status %s  priority %s  type %s", renderStatus(cur.Status), cur.Priority, cur.TicketType),
		}
		if cur.AssignedToID != nil {
			lines = append(lines, fmt.Sprintf("assigned to %d", *cur.AssignedToID))
		}
		if cur.Description != "" {
			lines = append(lines, "", cur.Description)
		}
		if cur.Resolution != "" {
			lines = append(lines, "", "resolution: "+cur.Resolution)
		}
		if n := len(cur.Comments); n > 0 {
			lines = append(lines, "", fmt.Sprintf("%d comments, latest: %s", n, cur.Comments[n-1].Content))
		}
		lines = append(lines, "", helpStyle.Render("c close · x resolve · o reopen · a assign to me · esc back"))
		body = strings.Join(lines, "\n")
	}
	pane := paneStyle.Render(body)
	if b.detail.frozen {
		return frozenStyle.Render(pane)
	}
	return pane
}

func (b *Board) renderFooter() string {
	help := helpStyle.Render("j/k move · space select · enter open · C close selected · d delete · tab view · r refresh · q quit")
	if b.status == "" {
		return help
	}
	if msg := b.app.Store.LastError().Get(); msg != "" && msg == b.status {
		return lipgloss.JoinVertical(lipgloss.Left, errorStyle.Render(b.status), help)
	}
	return lipgloss.JoinVertical(lipgloss.Left, statsStyle.Render(b.status), help)
}

func renderStatus(status domain.TicketStatus) string {
	style := lipgloss.NewStyle().Width(9)
	if color, ok := statusColors[status]; ok {
		style = style.Foreground(color)
	}
	return style.Render(string(status))
}
