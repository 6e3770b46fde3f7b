package service

import (
	"sync"

	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

const subscriberBuffer = 16

// SessionNotifier fans session changes out to subscribers. Publish never
// blocks; a subscriber that falls behind misses events.
type SessionNotifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan models.SessionEvent
}

// NewSessionNotifier constructs an empty notifier.
func NewSessionNotifier() *SessionNotifier {
	return &SessionNotifier{subs: make(map[int]chan models.SessionEvent)}
}

// Subscribe registers a listener. The returned cancel closes the channel.
func (n *SessionNotifier) Subscribe() (<-chan models.SessionEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan models.SessionEvent, subscriberBuffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

// Publish delivers evt to every subscriber with room in its buffer.
func (n *SessionNotifier) Publish(evt models.SessionEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
