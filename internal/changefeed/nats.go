package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const subjectPrefix = "photowall.submissions."

// NatsFeed publishes change events on NATS so every server instance sees
// changes made by the others.
type NatsFeed struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// ConnectNATS dials url and wraps the connection in a Feed.
func ConnectNATS(url string, log zerolog.Logger) (*NatsFeed, error) {
	conn, err := nats.Connect(url, nats.Name("photowall"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNatsFeed(conn, log), nil
}

func NewNatsFeed(conn *nats.Conn, log zerolog.Logger) *NatsFeed {
	return &NatsFeed{conn: conn, log: log.With().Str("component", "changefeed-nats").Logger()}
}

func (f *NatsFeed) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return f.conn.Publish(subjectPrefix+string(e.Type), data)
}

func (f *NatsFeed) Subscribe(ctx context.Context, filter Filter) (<-chan Event, error) {
	out := make(chan Event, subscriberBuffer)
	var (
		mu     sync.Mutex
		closed bool
	)

	sub, err := f.conn.Subscribe(subjectPrefix+"*", func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			f.log.Warn().Err(err).Str("subject", msg.Subject).Msg("undecodable change event")
			return
		}
		if !filter.Match(e) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- e:
		default:
			f.log.Warn().Str("type", string(e.Type)).Msg("subscriber slow, event dropped")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to change feed: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			f.log.Debug().Err(err).Msg("unsubscribe change feed")
		}
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}

func (f *NatsFeed) Close() {
	f.conn.Drain()
}
