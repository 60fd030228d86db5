package messages

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Type names a message carried between the relay, the session lifecycle
// and open browser tabs
type Type string

const (
	TypeShareDataReceived Type = "SHARE_DATA_RECEIVED"
	TypeLoginOK           Type = "LOGIN_OK"
	TypeLoginFailed       Type = "LOGIN_FAILED"
)

const defaultBuffer = 16

// Message is the JSON envelope sent to subscribers
type Message struct {
	Type  Type   `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Hub is a process-local publish/subscribe channel. Publishing never
// blocks: a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Message
	nextID uint64
	buffer int
	logger zerolog.Logger
}

type HubOption func(*Hub)

// WithBuffer sets the per-subscriber channel capacity
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithLogger(logger zerolog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(options ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[uint64]chan Message),
		buffer: defaultBuffer,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber. The returned cancel function
// removes it and closes the channel; calling it twice is safe.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Message, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers msg to every subscriber and returns how many received it
func (h *Hub) Publish(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.subs {
		select {
		case ch <- msg:
			delivered++
		default:
			h.logger.Warn().Uint64("subscriber", id).Str("type", string(msg.Type)).Msg("subscriber buffer full, message dropped")
		}
	}
	return delivered
}

// HasSubscribers reports whether any live instance is listening
func (h *Hub) HasSubscribers() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs) > 0
}
