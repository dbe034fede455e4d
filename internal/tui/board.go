// Package tui is the terminal ticket board. It renders the store's collection and stats,
// memoizes derived views through the session cache and stacks its detail and confirmation
// panes on the overlay coordinator, so Esc always dismisses the topmost one.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deskline/ticket-sync/internal/app"
	"github.com/deskline/ticket-sync/internal/domain"
)

// View selects which slice of the collection the board lists.
type View int

const (
	ViewAll View = iota
	ViewOpen
	ViewMine
)

func (v View) String() string {
	switch v {
	case ViewOpen:
		return "open"
	case ViewMine:
		return "mine"
	default:
		return "all"
	}
}

// Overlay kinds registered with the coordinator.
const (
	OverlayDetail  = "ticket-detail"
	OverlayConfirm = "confirm"
)

// ResolutionText is recorded when a ticket is resolved from the board.
const ResolutionText = "Resolved from ticket board"

type loadedMsg struct{ err error }

type detailLoadedMsg struct {
	id  int64
	err error
}

type mutationMsg struct {
	label     string
	err       error
	onSuccess func()
}

type detailPane struct {
	id     int64
	frozen bool
}

type confirmPrompt struct {
	question  string
	label     string
	action    func(context.Context) error
	onSuccess func()
}

// Board is the bubbletea model. It is used by pointer: overlay callbacks registered with the
// coordinator mutate it from inside Update.
type Board struct {
	app *app.Context
	ctx context.Context

	view     View
	cursor   int
	selected map[int64]struct{}
	detail   *detailPane
	confirm  *confirmPrompt
	status   string
	width    int
	height   int
}

// NewBoard creates a board bound to one session.
func NewBoard(ctx context.Context, a *app.Context) *Board {
	return &Board{app: a, ctx: ctx, selected: map[int64]struct{}{}}
}

// Init loads the list and stats, reusing cached payloads when they are fresh.
func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.refresh(false), b.refreshStats(false))
}

// Update handles one message.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case loadedMsg:
		b.report("refreshed", msg.err)
		b.clampCursor()
	case detailLoadedMsg:
		if msg.err != nil {
			b.report("", msg.err)
		}
	case mutationMsg:
		if msg.err == nil && msg.onSuccess != nil {
			msg.onSuccess()
		}
		b.report(msg.label, msg.err)
		b.clampCursor()
	case tea.KeyMsg:
		return b, b.handleKey(msg)
	}
	return b, nil
}

func (b *Board) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		b.app.Overlays.CloseAll()
		return tea.Quit
	}
	if b.app.Overlays.HandleKey(msg) {
		return nil
	}
	if top, ok := b.app.Overlays.Top(); ok {
		switch top.Kind {
		case OverlayConfirm:
			return b.handleConfirmKey(msg)
		case OverlayDetail:
			return b.handleDetailKey(msg)
		}
		return nil
	}
	return b.handleListKey(msg)
}

func (b *Board) handleListKey(msg tea.KeyMsg) tea.Cmd {
	tickets := b.Visible()
	switch msg.String() {
	case "q":
		return tea.Quit
	case "esc":
		b.selected = map[int64]struct{}{}
	case "j", "down":
		if b.cursor < len(tickets)-1 {
			b.cursor++
		}
	case "k", "up":
		if b.cursor > 0 {
			b.cursor--
		}
	case "tab":
		b.view = (b.view + 1) % 3
		b.cursor = 0
	case " ":
		if t, ok := b.cursorTicket(); ok {
			if _, picked := b.selected[t.ID]; picked {
				delete(b.selected, t.ID)
			} else {
				b.selected[t.ID] = struct{}{}
			}
		}
	case "r":
		return tea.Batch(b.refresh(true), b.refreshStats(true))
	case "enter":
		if t, ok := b.cursorTicket(); ok {
			return b.openDetail(t.ID)
		}
	case "d":
		if t, ok := b.cursorTicket(); ok {
			id := t.ID
			b.ask(fmt.Sprintf("Delete ticket #%d?", id), "deleted", func(ctx context.Context) error {
				return b.app.Store.DeleteTicket(ctx, id)
			})
		}
	case "C":
		ids := b.SelectedIDs()
		if len(ids) == 0 {
			b.status = "select tickets with space first"
			return nil
		}
		b.ask(fmt.Sprintf("Close %d tickets?", len(ids)), "closed", func(ctx context.Context) error {
			_, err := b.app.Store.BulkCloseTickets(ctx, ids)
			return err
		})
		b.confirm.onSuccess = func() { b.selected = map[int64]struct{}{} }
	}
	return nil
}

func (b *Board) handleDetailKey(msg tea.KeyMsg) tea.Cmd {
	id := b.detail.id
	switch msg.String() {
	case "q":
		b.closeDetail()
	case "c":
		b.ask(fmt.Sprintf("Close ticket #%d?", id), "closed", func(ctx context.Context) error {
			_, err := b.app.Store.CloseTicket(ctx, id)
			return err
		})
	case "x":
		b.ask(fmt.Sprintf("Resolve ticket #%d?", id), "resolved", func(ctx context.Context) error {
			_, err := b.app.Store.ResolveTicket(ctx, id, ResolutionText, "")
			return err
		})
	case "o":
		return b.mutate("reopened", func(ctx context.Context) error {
			_, err := b.app.Store.ReopenTicket(ctx, id, "")
			return err
		}, nil)
	case "a":
		userID, ok := b.app.Session.CurrentUserID()
		if !ok {
			b.status = "not signed in"
			return nil
		}
		return b.mutate("assigned", func(ctx context.Context) error {
			_, err := b.app.Store.AssignTicket(ctx, id, userID)
			return err
		}, nil)
	}
	return nil
}

func (b *Board) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "enter":
		prompt := b.confirm
		b.app.Overlays.CloseTopmost()
		return b.mutate(prompt.label, prompt.action, prompt.onSuccess)
	case "n":
		b.app.Overlays.CloseTopmost()
	}
	return nil
}

func (b *Board) openDetail(id int64) tea.Cmd {
	pane := &detailPane{id: id}
	b.detail = pane
	b.app.Overlays.RegisterWithCallbacks(OverlayDetail,
		b.closeDetail,
		func() { pane.frozen = true },
		func() { pane.frozen = false },
	)
	ctx := b.ctx
	return func() tea.Msg {
		_, err := b.app.Store.FetchTicket(ctx, id)
		return detailLoadedMsg{id: id, err: err}
	}
}

func (b *Board) closeDetail() {
	b.detail = nil
	b.app.Overlays.Unregister(OverlayDetail)
}

func (b *Board) ask(question, label string, action func(context.Context) error) {
	b.confirm = &confirmPrompt{question: question, label: label, action: action}
	b.app.Overlays.Register(OverlayConfirm, func() {
		b.confirm = nil
		b.app.Overlays.Unregister(OverlayConfirm)
	})
}

func (b *Board) mutate(label string, action func(context.Context) error, onSuccess func()) tea.Cmd {
	ctx := b.ctx
	return func() tea.Msg {
		return mutationMsg{label: label, err: action(ctx), onSuccess: onSuccess}
	}
}

func (b *Board) refresh(force bool) tea.Cmd {
	ctx := b.ctx
	return func() tea.Msg {
		_, err := b.app.RefreshTickets(ctx, domain.Pagination{}, force)
		return loadedMsg{err: err}
	}
}

func (b *Board) refreshStats(force bool) tea.Cmd {
	ctx := b.ctx
	return func() tea.Msg {
		_, err := b.app.RefreshStats(ctx, force)
		return loadedMsg{err: err}
	}
}

func (b *Board) report(label string, err error) {
	if err == nil {
		b.status = label
		return
	}
	if msg := b.app.Store.LastError().Get(); msg != "" {
		b.status = msg
		return
	}
	b.status = err.Error()
}

// Visible returns the tickets listed under the current view.
func (b *Board) Visible() []domain.Ticket {
	switch b.view {
	case ViewOpen:
		return b.app.OpenTickets()
	case ViewMine:
		return b.app.MyTickets()
	default:
		return b.app.Store.Tickets().Get()
	}
}

// SelectedIDs returns the picked tickets in list order.
func (b *Board) SelectedIDs() []int64 {
	var ids []int64
	for _, t := range b.app.Store.Tickets().Get() {
		if _, ok := b.selected[t.ID]; ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (b *Board) cursorTicket() (domain.Ticket, bool) {
	tickets := b.Visible()
	if b.cursor < 0 || b.cursor >= len(tickets) {
		return domain.Ticket{}, false
	}
	return tickets[b.cursor], true
}

func (b *Board) clampCursor() {
	if n := len(b.Visible()); b.cursor >= n {
		b.cursor = max(n-1, 0)
	}
}

// Run starts the board on the terminal and blocks until it exits.
func Run(ctx context.Context, a *app.Context) error {
	_, err := tea.NewProgram(NewBoard(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
