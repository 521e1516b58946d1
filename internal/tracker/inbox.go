package tracker

import (
	"context"
	"encoding/json"
	"log"
	"slices"
	"sync"

	"github.com/vrsandeep/intake-go/internal/channel"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/reconcile"
)

// Inbox keeps a user's notifications, newest first, and appends the ones
// pushed on the notification channel.
type Inbox struct {
	userID   string
	fetch    FetchFunc[models.Notification]
	sub      Subscriber
	notifier reconcile.Notifier
	onNotify func(models.Notification)

	mu     sync.Mutex
	items  []models.Notification
	handle channel.Handle
	opened bool
	closed bool
}

// NewInbox returns an Inbox for userID. onNotify, if set, sees every
// pushed notification.
func NewInbox(userID string, fetch FetchFunc[models.Notification], deps Deps, onNotify func(models.Notification)) *Inbox {
	return &Inbox{
		userID:   userID,
		fetch:    fetch,
		sub:      deps.Subscriber,
		notifier: deps.Notifier,
		onNotify: onNotify,
	}
}

// FetchNotifications lists a user's unread notifications through fetch.
func FetchNotifications(list func(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error), userID string) FetchFunc[models.Notification] {
	return func(ctx context.Context) ([]models.Notification, error) {
		return list(ctx, userID, true)
	}
}

// Open loads the stored notifications and subscribes to new ones.
func (i *Inbox) Open(ctx context.Context) error {
	if i.fetch != nil {
		items, err := i.fetch(ctx)
		if err != nil {
			log.Printf("Error fetching notifications: %v", err)
			if i.notifier != nil {
				i.notifier.SetMessage("Could not load notifications: " + err.Error())
				i.notifier.OpenModal()
			}
			return err
		}
		i.mu.Lock()
		i.items = items
		i.mu.Unlock()
	}

	h, err := i.sub.Open(models.ChannelNotification, i.userID, i.handleMessage)
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.handle = h
	i.opened = true
	i.mu.Unlock()
	return nil
}

// Resubscribe opens the notification channel again if the relay closed
// it. It reports whether a new subscription was made.
func (i *Inbox) Resubscribe() (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || !i.opened || i.sub.State(i.handle).Live() {
		return false, nil
	}
	i.sub.Close(i.handle)
	h, err := i.sub.Open(models.ChannelNotification, i.userID, i.handleMessage)
	if err != nil {
		return false, err
	}
	i.handle = h
	return true, nil
}

func (i *Inbox) handleMessage(raw json.RawMessage) {
	var n models.Notification
	if err := json.Unmarshal(raw, &n); err != nil || n.Message == "" {
		log.Printf("Ignoring notification frame %s", raw)
		return
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	if n.ID != "" && slices.ContainsFunc(i.items, func(existing models.Notification) bool { return existing.ID == n.ID }) {
		i.mu.Unlock()
		return
	}
	i.items = slices.Insert(i.items, 0, n)
	i.mu.Unlock()

	if i.onNotify != nil {
		i.onNotify(n)
	}
}

// Items returns the notifications, newest first.
func (i *Inbox) Items() []models.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.items)
}

// Unread counts notifications not yet read.
func (i *Inbox) Unread() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, item := range i.items {
		if !item.Read {
			n++
		}
	}
	return n
}

// Close unsubscribes. It is idempotent.
func (i *Inbox) Close() {
	i.mu.Lock()
	h := i.handle
	i.handle = channel.Handle{}
	i.closed = true
	i.mu.Unlock()
	i.sub.Close(h)
}
