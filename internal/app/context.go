// Package app wires the components of one client session: the ticket store, the payload
// cache and the overlay coordinator, together with the session, HTTP client and event
// plumbing they depend on. Each Context is independent; nothing here is global.
package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/cache"
	"github.com/deskline/ticket-sync/internal/client"
	"github.com/deskline/ticket-sync/internal/config"
	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/events"
	"github.com/deskline/ticket-sync/internal/observability"
	"github.com/deskline/ticket-sync/internal/overlay"
	"github.com/deskline/ticket-sync/internal/session"
	"github.com/deskline/ticket-sync/internal/store"
	"github.com/deskline/ticket-sync/internal/worker"
)

// Cache keys. Fetched payloads live under "fetch:", derived views under "view:".
const (
	keyStats      = "fetch:stats"
	prefixTickets = "fetch:tickets:"
	prefixViews   = "view:"
	keyOpenView   = prefixViews + "open"
	keyMineView   = prefixViews + "mine"
)

// ErrNoCredentials is returned by SignIn when neither a token nor a username is configured.
var ErrNoCredentials = errors.New("no access token or username configured")

// Context is the per-session component graph.
type Context struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Session    *session.Session
	Client     *client.TicketClient
	Dispatcher events.Dispatcher
	Activity   *worker.ActivityWorker
	Store      *store.TicketStore
	Cache      *cache.Cache
	Overlays   *overlay.Coordinator

	closeOnce sync.Once
	unsub     []func()
}

// New builds a Context talking to the Ticket Service at cfg.API.BaseURL.
func New(cfg *config.Config, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	sess := session.New(logger.Named("session"))
	if cfg.API.AccessToken != "" {
		sess.SetToken(cfg.API.AccessToken)
	}
	httpClient := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout,
		Tokens:  sess,
		Logger:  logger.Named("client"),
	})

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	activity := worker.NewActivityWorker(logger.Named("activity"), metrics, 0)
	activity.Start(dispatcher)

	a := &Context{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Session:    sess,
		Client:     httpClient,
		Dispatcher: dispatcher,
		Activity:   activity,
		Store: store.NewTicketStore(store.Dependencies{
			Service:    httpClient,
			Session:    sess,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		Cache: cache.New(
			cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
			cache.WithLogger(logger.Named("cache")),
		),
		Overlays: overlay.New(overlay.WithLogger(logger.Named("overlay"))),
	}
	a.wire()
	return a
}

// wire keeps the cache coherent with the store: derived views are dropped whenever the
// collection changes and fetched list pages whenever a mutation lands or rolls back.
func (a *Context) wire() {
	a.unsub = append(a.unsub, a.Store.Tickets().Subscribe(func([]domain.Ticket) {
		a.Cache.InvalidatePrefix(prefixViews)
	}))
	for _, eventType := range events.AllEventTypes {
		eventType := eventType
		a.Dispatcher.Subscribe(eventType, func(context.Context, events.Event) error {
			a.Cache.InvalidatePrefix(prefixTickets)
			if eventType == events.EventMutationRolledBack {
				a.Cache.Invalidate(keyStats)
			}
			return nil
		})
	}
}

// Close detaches the cache from the store and drops every overlay.
func (a *Context) Close() {
	a.closeOnce.Do(func() {
		for _, unsubscribe := range a.unsub {
			unsubscribe()
		}
		a.Overlays.CloseAll()
		a.Cache.Clear()
	})
}

// SignIn establishes the session from configuration: a configured token is used as is,
// otherwise the configured username and password are exchanged for one.
func (a *Context) SignIn(ctx context.Context) error {
	if a.Session.Token() != "" {
		return nil
	}
	if a.Config.API.Username == "" {
		return ErrNoCredentials
	}
	_, err := a.Login(ctx, a.Config.API.Username, a.Config.API.Password)
	return err
}

// Login signs in with explicit credentials. Cached payloads belong to the previous identity
// and are dropped.
func (a *Context) Login(ctx context.Context, username, password string) (domain.User, error) {
	user, err := a.Session.Login(ctx, a.Client, username, password)
	if err != nil {
		return domain.User{}, err
	}
	a.Cache.Clear()
	return user, nil
}

// RefreshTickets loads the list for the store's current filters unless the same query was
// fetched within the cache TTL, in which case the cached page is put back into the store.
// force bypasses the cache.
func (a *Context) RefreshTickets(ctx context.Context, page domain.Pagination, force bool) (domain.TicketPage, error) {
	query := domain.TicketQuery{Filters: a.Store.Filters().Get(), Pagination: page}
	key := prefixTickets + query.Values().Encode()
	if !force {
		if cached, ok := cache.GetAs[domain.TicketPage](a.Cache, key); ok {
			a.Store.ShowPage(cached)
			return cached, nil
		}
	}
	fetched, err := a.Store.FetchTickets(ctx, page)
	if err != nil {
		return domain.TicketPage{}, err
	}
	a.Cache.Set(key, fetched)
	return fetched, nil
}

// RefreshStats reloads the aggregate unless it was fetched within the cache TTL. Between
// fetches the store keeps the counters current itself.
func (a *Context) RefreshStats(ctx context.Context, force bool) (domain.TicketStats, error) {
	if !force {
		if _, ok := a.Cache.Get(keyStats); ok {
			return a.Store.Stats().Get(), nil
		}
	}
	stats, err := a.Store.FetchTicketStats(ctx)
	if err != nil {
		return domain.TicketStats{}, err
	}
	a.Cache.Set(keyStats, stats)
	return stats, nil
}

// OpenTickets is the store's open-ticket view, memoized until the collection changes.
func (a *Context) OpenTickets() []domain.Ticket {
	return a.memoView(keyOpenView, a.Store.OpenTickets)
}

// MyTickets is the store's my-tickets view, memoized until the collection changes.
func (a *Context) MyTickets() []domain.Ticket {
	return a.memoView(keyMineView, a.Store.MyTickets)
}

func (a *Context) memoView(key string, compute func() []domain.Ticket) []domain.Ticket {
	if cached, ok := cache.GetAs[[]domain.Ticket](a.Cache, key); ok {
		return cached
	}
	version := a.Store.Tickets().Version()
	view := compute()
	if a.Store.Tickets().Version() == version {
		a.Cache.Set(key, view)
	}
	return view
}
