package bus

import "sync"

// Handler receives raw lines published on a channel. Handlers are matched
// by equality on Unsubscribe, so implementations should be pointer types.
type Handler interface {
	HandleLine(channel, line string)
}

// Bus is an in-process publish/subscribe hub keyed by channel name.
// Publish delivers synchronously on the caller's goroutine.
type Bus struct {
	mu       sync.RWMutex
	channels map[string][]Handler
}

func New() *Bus {
	return &Bus{channels: make(map[string][]Handler)}
}

// Subscribe registers h on channel. Subscribing the same handler twice to
// a channel has no further effect.
func (b *Bus) Subscribe(channel string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.channels[channel] {
		if existing == h {
			return
		}
	}
	b.channels[channel] = append(b.channels[channel], h)
}

// Unsubscribe removes h from channel. Unknown handlers are ignored.
func (b *Bus) Unsubscribe(channel string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.channels[channel]
	for i, existing := range handlers {
		if existing != h {
			continue
		}
		rest := make([]Handler, 0, len(handlers)-1)
		rest = append(rest, handlers[:i]...)
		rest = append(rest, handlers[i+1:]...)
		if len(rest) == 0 {
			delete(b.channels, channel)
		} else {
			b.channels[channel] = rest
		}
		return
	}
}

// Publish hands line to every handler subscribed to channel.
func (b *Bus) Publish(channel, line string) {
	b.mu.RLock()
	handlers := b.channels[channel]
	b.mu.RUnlock()

	for _, h := range handlers {
		h.HandleLine(channel, line)
	}
}

// Subscribers returns the number of handlers on channel.
func (b *Bus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}
