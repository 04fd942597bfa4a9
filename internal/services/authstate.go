package services

import (
	"sort"
	"sync"

	"github.com/dmitrijs2005/pocketbank/internal/models"
)

// AuthListener receives the signed-in user, or nil after sign-out.
type AuthListener func(u *models.User)

// AuthBus fans auth-state changes out to listeners. Each ledger instance
// owns its own bus.
type AuthBus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]AuthListener
}

func NewAuthBus() *AuthBus {
	return &AuthBus{listeners: map[int]AuthListener{}}
}

// Subscribe adds fn. The returned function removes it and may be called
// more than once.
func (b *AuthBus) Subscribe(fn AuthListener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every listener synchronously, in subscription order. The
// lock is not held during the calls, so listeners may subscribe or
// unsubscribe.
func (b *AuthBus) Publish(u *models.User) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]AuthListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		var copied *models.User
		if u != nil {
			c := *u
			copied = &c
		}
		fn(copied)
	}
}

// Len reports the number of listeners.
func (b *AuthBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
