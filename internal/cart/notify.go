package cart

import (
	"context"
	"sync"
)

// Notification is a user-visible message raised by a cart command.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var packRemoved = Notification{
	Title:   "Pack supprimé",
	Message: "Le pack et tous ses articles ont été supprimés du panier",
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// StockReducer is told when a cart is cleared so it can drop pending reservations.
type StockReducer interface {
	ClearItems(ctx context.Context, profileID string)
}

// Inbox buffers notifications until the next response drains them.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func (i *Inbox) Notify(_ context.Context, n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
}

// Drain returns the buffered notifications and empties the inbox.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	return out
}

type nopStock struct{}

func (nopStock) ClearItems(context.Context, string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
