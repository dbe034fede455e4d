// Package overlay coordinates a stack of modal surfaces. Only the topmost registration is
// interactive; registering a new overlay freezes the one beneath it and unregistering
// unfreezes whatever becomes the new top.
package overlay

import (
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/reactive"
)

// ErrNoActiveOverlay is returned when callbacks are attached while the stack is empty.
var ErrNoActiveOverlay = errors.New("overlay: no active overlay")

// Registration is one entry of the overlay stack.
type Registration struct {
	Kind         string
	OnClose      func()
	RegisteredAt time.Time
	OnFreeze     func()
	OnUnfreeze   func()
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now for registration stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Coordinator owns the overlay stack. Handlers are always invoked with the coordinator
// unlocked, so they may register or unregister overlays themselves.
type Coordinator struct {
	mu     sync.Mutex
	stack  *reactive.Value[[]Registration]
	now    func() time.Time
	logger *zap.Logger
}

// New returns an empty coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		stack:  reactive.NewValue[[]Registration](nil),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register freezes the current top (if it has a freeze handler) and then pushes a new entry
// without freeze/unfreeze handlers. Attach them with SetCallbacks before registering anything else.
func (c *Coordinator) Register(kind string, onClose func()) {
	c.push(Registration{Kind: kind, OnClose: onClose})
}

// RegisterWithCallbacks pushes an entry with its freeze/unfreeze handlers already attached.
func (c *Coordinator) RegisterWithCallbacks(kind string, onClose, onFreeze, onUnfreeze func()) {
	c.push(Registration{Kind: kind, OnClose: onClose, OnFreeze: onFreeze, OnUnfreeze: onUnfreeze})
}

func (c *Coordinator) push(entry Registration) {
	if top, ok := c.Top(); ok && top.OnFreeze != nil {
		top.OnFreeze()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.RegisteredAt = c.now()
	current := c.stack.Get()
	next := make([]Registration, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, entry)
	c.stack.Set(next)
	c.logger.Debug("overlay registered", zap.String("kind", entry.Kind), zap.Int("depth", len(next)))
}

// SetCallbacks attaches freeze/unfreeze handlers to the current top entry.
func (c *Coordinator) SetCallbacks(onFreeze, onUnfreeze func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.stack.Get()
	if len(current) == 0 {
		return ErrNoActiveOverlay
	}
	next := append([]Registration(nil), current...)
	next[len(next)-1].OnFreeze = onFreeze
	next[len(next)-1].OnUnfreeze = onUnfreeze
	c.stack.Set(next)
	return nil
}

// Unregister removes the most recently registered entry of kind, which need not be the top.
// If entries remain, the new top's unfreeze handler runs. It reports whether an entry was removed.
func (c *Coordinator) Unregister(kind string) bool {
	c.mu.Lock()
	current := c.stack.Get()
	index := -1
	for i := len(current) - 1; i >= 0; i-- {
		if current[i].Kind == kind {
			index = i
			break
		}
	}
	if index < 0 {
		c.mu.Unlock()
		return false
	}
	next := make([]Registration, 0, len(current)-1)
	next = append(next, current[:index]...)
	next = append(next, current[index+1:]...)
	c.stack.Set(next)
	var unfreeze func()
	if len(next) > 0 {
		unfreeze = next[len(next)-1].OnUnfreeze
	}
	c.mu.Unlock()

	c.logger.Debug("overlay unregistered", zap.String("kind", kind), zap.Int("depth", len(next)))
	if unfreeze != nil {
		unfreeze()
	}
	return true
}

// CloseAll invokes every close handler from top to bottom and then empties the stack,
// regardless of what the handlers did to it.
func (c *Coordinator) CloseAll() {
	stack := c.Stack()
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].OnClose != nil {
			stack[i].OnClose()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack.Set(nil)
}

// CloseTopmost invokes the top entry's close handler. It reports false when the stack is empty.
func (c *Coordinator) CloseTopmost() bool {
	top, ok := c.Top()
	if !ok {
		return false
	}
	if top.OnClose != nil {
		top.OnClose()
	}
	return true
}

// HandleKey closes the topmost overlay when msg is the cancel key. It reports whether the
// key was consumed.
func (c *Coordinator) HandleKey(msg tea.KeyMsg) bool {
	if msg.Type != tea.KeyEsc {
		return false
	}
	return c.CloseTopmost()
}

// Top returns the interactive entry.
func (c *Coordinator) Top() (Registration, bool) {
	stack := c.stack.Get()
	if len(stack) == 0 {
		return Registration{}, false
	}
	return stack[len(stack)-1], true
}

// Stack returns a copy of the stack, bottom first.
func (c *Coordinator) Stack() []Registration {
	return append([]Registration(nil), c.stack.Get()...)
}

// HasActive reports whether any overlay is registered.
func (c *Coordinator) HasActive() bool { return len(c.stack.Get()) > 0 }

// Count returns the stack depth.
func (c *Coordinator) Count() int { return len(c.stack.Get()) }

// Subscribe registers h to receive every new stack.
func (c *Coordinator) Subscribe(h func([]Registration)) (unsubscribe func()) {
	return c.stack.Subscribe(h)
}
