// Package bus routes questions from channels to the answer engine and
// answers back to the channel that asked.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"unibot/internal/domain"
)

const publishTimeout = 5 * time.Second

// InMemoryBus is a Go-channel based message bus for in-process routing.
// Channels publish inbound questions; the answer engine subscribes and
// sends outbound answers, which the bus dispatches to the handler the
// originating channel registered.
type InMemoryBus struct {
	inbound  chan domain.InboundMessage
	handlers map[string]func(domain.OutboundMessage)
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger
}

// New creates an InMemoryBus with the given inbound buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &InMemoryBus{
		inbound:  make(chan domain.InboundMessage, bufferSize),
		handlers: make(map[string]func(domain.OutboundMessage)),
		logger:   logger,
	}
}

// Publish enqueues a question. If the buffer is full it waits up to
// publishTimeout instead of dropping; a question is only dropped after the
// wait expires, and that is logged as an error.
func (b *InMemoryBus) Publish(msg domain.InboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("publish on closed bus", "channel", msg.Channel)
		return
	}

	select {
	case b.inbound <- msg:
	default:
		b.logger.Warn("inbound bus full, waiting", "channel", msg.Channel, "sender", msg.SenderID)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- msg:
		case <-timer.C:
			b.logger.Error("question dropped, bus full", "channel", msg.Channel, "sender", msg.SenderID)
		}
	}
}

// Subscribe returns the inbound question stream. The channel is closed by
// Close, which ends the answer engine's consume loop.
func (b *InMemoryBus) Subscribe() <-chan domain.InboundMessage {
	return b.inbound
}

// SendOutbound delivers an answer to the handler of its channel.
func (b *InMemoryBus) SendOutbound(msg domain.OutboundMessage) {
	b.mu.RLock()
	handler, ok := b.handlers[msg.Channel]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no handler for channel", "channel", msg.Channel)
		return
	}
	handler(msg)
}

// OnOutbound registers the delivery handler for a channel name.
func (b *InMemoryBus) OnOutbound(channelName string, handler func(domain.OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channelName] = handler
}

// Close shuts the inbound stream. Publish after Close is a logged no-op.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
