// Package tracker keeps an entity list live. A List fetches its entities,
// keeps one status subscription open per entity with pending work, and
// folds pushed updates back into the list.
package tracker

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/vrsandeep/intake-go/internal/channel"
	"github.com/vrsandeep/intake-go/internal/debounce"
	"github.com/vrsandeep/intake-go/internal/listview"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/reconcile"
	"github.com/vrsandeep/intake-go/internal/selector"
)

// Subscriber opens and closes status subscriptions. *channel.Manager
// satisfies it.
type Subscriber interface {
	Open(kind models.ChannelKind, key string, onMessage channel.MessageFunc) (channel.Handle, error)
	Close(h channel.Handle)
	State(h channel.Handle) channel.State
}

// FetchFunc loads the full entity list.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Deps are the collaborators shared by every tracker.
type Deps struct {
	Subscriber Subscriber
	Notifier   reconcile.Notifier
	Debounce   time.Duration
	// OnSync, if set, observes every subscription change.
	OnSync func(kind models.ChannelKind, delta selector.Delta)
}

// Options describes one tracked list.
type Options[T any] struct {
	Kind         models.ChannelKind
	Fetch        FetchFunc[T]
	Key          func(T) string
	Pending      func(T) bool
	Apply        reconcile.ApplyFunc[T]
	SearchFields []string
	// ReloadOnValidate refetches the list and resets every subscription
	// when a pushed update validates an entity.
	ReloadOnValidate bool
}

// List is a live entity list. It is safe for concurrent use.
type List[T any] struct {
	opts       Options[T]
	deps       Deps
	store      *reconcile.Store[T]
	reconciler *reconcile.Reconciler[T]
	debouncer  *debounce.Debouncer[[]T]
	ctx        context.Context
	cancel     context.CancelFunc

	mu      sync.Mutex
	subs    map[string]channel.Handle
	closed  bool
	reloads sync.WaitGroup
}

// New builds a List. Nothing is fetched until Refresh.
func New[T any](opts Options[T], deps Deps) *List[T] {
	ctx, cancel := context.WithCancel(context.Background())
	l := &List[T]{
		opts:   opts,
		deps:   deps,
		store:  reconcile.NewStore[T](opts.SearchFields...),
		subs:   make(map[string]channel.Handle),
		ctx:    ctx,
		cancel: cancel,
	}
	l.debouncer = debounce.New(deps.Debounce, l.sync)
	l.store.OnChange(l.debouncer.Push)

	var onReload func()
	if opts.ReloadOnValidate {
		onReload = l.reloadAsync
	}
	l.reconciler = reconcile.NewReconciler(l.store, opts.Apply, deps.Notifier, onReload)
	return l
}

// Refresh fetches the full list and replaces the stored one. Subscriptions
// follow once the debounce window passes.
func (l *List[T]) Refresh(ctx context.Context) error {
	items, err := l.opts.Fetch(ctx)
	if err != nil {
		log.Printf("Error fetching %s list: %v", l.opts.Kind, err)
		if l.deps.Notifier != nil {
			l.deps.Notifier.SetMessage("Could not load the list: " + err.Error())
			l.deps.Notifier.OpenModal()
		}
		return err
	}
	l.store.Set(items)
	return nil
}

// Reload drops every subscription and refetches the list.
func (l *List[T]) Reload(ctx context.Context) error {
	l.resetSubscriptions()
	return l.Refresh(ctx)
}

func (l *List[T]) reloadAsync() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.reloads.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.reloads.Done()
		if err := l.Reload(l.ctx); err != nil {
			log.Printf("Reload of %s list failed: %v", l.opts.Kind, err)
		}
	}()
}

// Flush runs a pending subscription sync now instead of after the window.
func (l *List[T]) Flush() { l.debouncer.Flush() }

// sync opens and closes subscriptions so that exactly the pending entities
// of items are subscribed.
func (l *List[T]) sync(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	l.pruneLocked()
	previous := make(selector.Set, len(l.subs))
	for k := range l.subs {
		previous[k] = struct{}{}
	}
	delta := selector.Reconcile(previous, items, l.opts.Key, l.opts.Pending)
	if delta.Empty() {
		return
	}

	for _, key := range delta.ToClose {
		l.deps.Subscriber.Close(l.subs[key])
		delete(l.subs, key)
	}
	for _, key := range delta.ToOpen {
		h, err := l.deps.Subscriber.Open(l.opts.Kind, key, l.handleMessage)
		if err != nil {
			log.Printf("Could not subscribe to %s updates for %s: %v", l.opts.Kind, key, err)
			continue
		}
		l.subs[key] = h
	}
	if l.deps.OnSync != nil {
		l.deps.OnSync(l.opts.Kind, delta)
	}
}

// pruneLocked forgets subscriptions the relay ended with a normal close, so
// the selector opens them again while their entity is still pending.
// l.mu must be held.
func (l *List[T]) pruneLocked() {
	for key, h := range l.subs {
		if l.deps.Subscriber.State(h).Live() {
			continue
		}
		log.Printf("%s subscription for %s was closed by the relay", l.opts.Kind, key)
		l.deps.Subscriber.Close(h)
		delete(l.subs, key)
	}
}

func (l *List[T]) handleMessage(raw json.RawMessage) {
	l.reconciler.HandleMessage(raw)
}

func (l *List[T]) resetSubscriptions() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, h := range l.subs {
		l.deps.Subscriber.Close(h)
		delete(l.subs, key)
	}
}

// Subscriptions returns the subscribed keys, sorted.
func (l *List[T]) Subscriptions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.subs))
	for k := range l.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns the full list.
func (l *List[T]) Items() []T { return l.store.Items() }

// View returns the searched and sorted list.
func (l *List[T]) View() []T { return l.store.View() }

// SetQuery changes the search query of the view.
func (l *List[T]) SetQuery(query string) { l.store.SetQuery(query) }

// RequestSort sorts the view by key, toggling the direction on repeat.
func (l *List[T]) RequestSort(key string) listview.SortConfig { return l.store.RequestSort(key) }

// Close stops the list: pending syncs are dropped and every subscription
// it owns is closed. Close is idempotent.
func (l *List[T]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.debouncer.Cancel()
	for key, h := range l.subs {
		l.deps.Subscriber.Close(h)
		delete(l.subs, key)
	}
	l.mu.Unlock()

	l.cancel()
	l.reloads.Wait()
}
