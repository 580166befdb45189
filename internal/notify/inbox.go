package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

// DefaultInboxLimit bounds the undelivered notifications kept per session.
const DefaultInboxLimit = 20

// Message is a notification waiting to be picked up by a client.
type Message struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Inbox queues notifications for HTTP clients, which display them on their side.
type Inbox struct {
	mu         sync.Mutex
	permission challenge.Permission
	limit      int
	items      []Message
	now        func() time.Time
}

// NewInbox returns an inbox starting with the given permission. A non-positive limit uses DefaultInboxLimit.
func NewInbox(permission challenge.Permission, limit int) *Inbox {
	if limit <= 0 {
		limit = DefaultInboxLimit
	}
	if permission == "" {
		permission = challenge.PermissionDefault
	}
	return &Inbox{permission: permission, limit: limit, now: time.Now}
}

// RequestPermission reports the permission the client last granted; the client owns the prompt.
func (i *Inbox) RequestPermission(_ context.Context) challenge.Permission {
	return i.Permission()
}

func (i *Inbox) Permission() challenge.Permission {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.permission
}

// SetPermission records the answer the user gave to the client's permission prompt.
func (i *Inbox) SetPermission(p challenge.Permission) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.permission = p
}

func (i *Inbox) Notify(_ context.Context, n challenge.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.items = append(i.items, Message{
		ID:        newID(),
		Title:     n.Title,
		Body:      n.Body,
		Amount:    n.Amount,
		CreatedAt: i.now().UTC(),
	})
	if over := len(i.items) - i.limit; over > 0 {
		i.items = append([]Message(nil), i.items[over:]...)
	}
}

// Drain returns and forgets every queued message, oldest first.
func (i *Inbox) Drain() []Message {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := i.items
	i.items = nil
	if out == nil {
		out = []Message{}
	}
	return out
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
