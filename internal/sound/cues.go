package sound

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultCueLimit = 20

// Cue asks a client to play an asset.
type Cue struct {
	ID        string    `json:"id"`
	Asset     string    `json:"asset"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Resolver maps an asset path to a URL a client can fetch.
type Resolver func(ctx context.Context, asset string) (string, error)

// Cues records sound requests for HTTP clients instead of playing them locally.
type Cues struct {
	resolve Resolver

	mu    sync.Mutex
	items []Cue
	now   func() time.Time
}

// NewCues returns a cue recorder. A nil resolver uses the asset path as URL.
func NewCues(resolve Resolver) *Cues {
	return &Cues{resolve: resolve, now: time.Now}
}

func (c *Cues) Play(ctx context.Context, asset string) {
	url := asset
	if c.resolve != nil {
		if resolved, err := c.resolve(ctx, asset); err == nil {
			url = resolved
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Cue{ID: uuid.NewString(), Asset: asset, URL: url, CreatedAt: c.now().UTC()})
	if over := len(c.items) - defaultCueLimit; over > 0 {
		c.items = append([]Cue(nil), c.items[over:]...)
	}
}

// Drain returns and forgets every pending cue, oldest first.
func (c *Cues) Drain() []Cue {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.items
	c.items = nil
	if out == nil {
		out = []Cue{}
	}
	return out
}
