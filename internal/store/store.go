// Package store persists the Flow snapshot. Every mutation runs
// through Update, which serializes writers and commits the whole
// document atomically. Readers always receive private copies.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wesm/flow/internal/model"
)

// ErrCorrupt is returned when the persisted document cannot be
// decoded. The file is left untouched for the user to repair.
var ErrCorrupt = errors.New("corrupt data file")

// Change sources.
const (
	SourceCommit   = "commit"
	SourceExternal = "external"
)

// Change describes a committed modification of the snapshot.
type Change struct {
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// Store loads and transactionally updates the snapshot.
type Store interface {
	// Load returns a private copy of the current snapshot.
	Load(ctx context.Context) (*model.Snapshot, error)
	// Update hands fn a private copy of the snapshot and commits
	// it when fn returns nil. It returns a copy of the committed
	// document.
	Update(ctx context.Context, fn func(*model.Snapshot) error) (*model.Snapshot, error)
	// Replace overwrites the whole document.
	Replace(ctx context.Context, s *model.Snapshot) error
	// Subscribe returns a channel of change notifications and a
	// function that cancels the subscription.
	Subscribe() (<-chan Change, func())
	Close() error
}

// subscriberBuffer is the per-subscriber queue length. Changes
// beyond it are dropped; a subscriber that misses one still sees
// the next and reloads the full snapshot anyway.
const subscriberBuffer = 8

// Notifier fans out change notifications.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Change]struct{}
	now  func() time.Time
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[chan Change]struct{}),
		now:  time.Now,
	}
}

// Subscribe registers a new listener.
func (n *Notifier) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			if _, ok := n.subs[ch]; ok {
				delete(n.subs, ch)
				close(ch)
			}
			n.mu.Unlock()
		})
	}
}

// Publish sends a change from source to every subscriber without
// blocking.
func (n *Notifier) Publish(source string) {
	c := Change{Source: source, At: n.now()}
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close closes every subscriber channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		delete(n.subs, ch)
		close(ch)
	}
}
