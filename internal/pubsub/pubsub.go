package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// MediaJobsChannel carries the id of a media asset whose jobs were just queued.
const MediaJobsChannel = "media_jobs"

// Event is a single notification. Payload is empty for Reconnected events.
type Event struct {
	Channel     string
	Payload     string
	Reconnected bool
}

type Handler func(event Event)

// PubSub listens on Postgres channels with LISTEN/NOTIFY.
type PubSub struct {
	connStr  string
	channels []string
	listener *pq.Listener
	handlers []Handler
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewPubSub(connStr string, channels ...string) *PubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  connStr,
		channels: channels,
		handlers: make([]Handler, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a handler for every channel
func (ps *PubSub) Subscribe(handler Handler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Start begins listening for notifications
func (ps *PubSub) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("PubSub listener error", slog.Any("error", err))
		}
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("PubSub connection attempt failed, will retry")
		case pq.ListenerEventDisconnected:
			slog.Warn("PubSub disconnected, will attempt reconnect")
		case pq.ListenerEventReconnected:
			// Notifications sent while disconnected are lost.
			slog.Info("PubSub reconnected")
			for _, ch := range ps.channels {
				ps.notifyHandlers(Event{Channel: ch, Reconnected: true})
			}
		}
	}

	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, reportProblem)

	for _, ch := range ps.channels {
		if err := ps.listener.Listen(ch); err != nil {
			return fmt.Errorf("failed to listen on %s channel: %w", ch, err)
		}
	}

	slog.Info("PubSub started listening", slog.Any("channels", ps.channels))

	go ps.processNotifications()

	return nil
}

// Stop closes the listener
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
	slog.Info("PubSub stopped")
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case n := <-ps.listener.Notify:
			if n == nil {
				// Connection lost, handled by reportProblem
				continue
			}

			slog.Debug("Received notification",
				slog.String("channel", n.Channel),
				slog.String("payload", n.Extra))

			ps.notifyHandlers(Event{Channel: n.Channel, Payload: n.Extra})
		}
	}
}

func (ps *PubSub) notifyHandlers(event Event) {
	ps.mu.RLock()
	handlers := make([]Handler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
