package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/krobus00/clob-gateway/internal/entity"
	"github.com/krobus00/clob-gateway/internal/util"
)

// ConnectivitySource reports whether the upstream venue stream is live.
// Satisfied by *venueconn.Connection.
type ConnectivitySource interface {
	Connected() bool
}

// Subscriber is one local client registration. Its delivery queue is
// bounded; a subscriber that falls behind is disconnected rather than
// allowed to stall the rest.
type Subscriber struct {
	id   string
	send chan entity.PushMessage
}

func (s *Subscriber) ID() string {
	return s.id
}

// Receive is the subscriber's delivery queue. It is closed when the
// subscriber is unregistered or dropped on overflow.
func (s *Subscriber) Receive() <-chan entity.PushMessage {
	return s.send
}

// Hub fans venue events out to every registered subscriber. Delivery is
// fire-and-forget: a full queue drops the subscriber, never blocks the
// broadcast.
type Hub struct {
	source     ConnectivitySource
	bufferSize int

	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	closed      bool
}

func NewHub(source ConnectivitySource, bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Hub{
		source:      source,
		bufferSize:  bufferSize,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Register adds a subscriber and queues its initial connection_status
// message reflecting the connectivity snapshot at this instant.
func (h *Hub) Register() *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		send: make(chan entity.PushMessage, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.send)
		return sub
	}

	sub.send <- util.NewConnectionStatusMessage(h.source.Connected())
	h.subscribers[sub] = struct{}{}

	logrus.WithField("subscriber_id", sub.id).Info("subscriber registered")

	return sub
}

// Unregister removes a subscriber and closes its queue. Events broadcast
// afterwards are never delivered to it.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropLocked(sub)
}

// Broadcast delivers the message to every registered subscriber.
// Subscribers whose queue is full are dropped and their queue closed.
func (h *Hub) Broadcast(msg entity.PushMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.send <- msg:
		default:
			logrus.WithField("subscriber_id", sub.id).Warn("subscriber queue full, disconnecting")
			h.dropLocked(sub)
		}
	}
}

// Connected snapshots the upstream connectivity flag.
func (h *Hub) Connected() bool {
	return h.source.Connected()
}

// SubscriberCount reports the number of live registrations.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Close drops every subscriber and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subscribers {
		h.dropLocked(sub)
	}
}

func (h *Hub) dropLocked(sub *Subscriber) {
	if _, ok := h.subscribers[sub]; !ok {
		return
	}

	delete(h.subscribers, sub)
	close(sub.send)

	logrus.WithField("subscriber_id", sub.id).Info("subscriber unregistered")
}
