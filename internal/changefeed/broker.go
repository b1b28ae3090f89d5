package changefeed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 32

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Broker is the in-process Feed used when no NATS server is configured.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	log    zerolog.Logger
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		subs: make(map[int]*subscriber),
		log:  log.With().Str("component", "changefeed").Logger(),
	}
}

// Publish delivers e to every matching subscriber. Subscribers that are not
// keeping up lose the event.
func (b *Broker) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, s := range b.subs {
		if !s.filter.Match(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.log.Warn().Int("subscriber", id).Str("type", string(e.Type)).Msg("subscriber slow, event dropped")
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, f Filter) (<-chan Event, error) {
	s := &subscriber{ch: make(chan Event, subscriberBuffer), filter: f}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
