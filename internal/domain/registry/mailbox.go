package registry

import (
	"sync"

	"github.com/DingWH03/uchat-sub000/internal/domain/push"
)

const defaultMailboxSize = 256

// Mailbox is the outbound frame queue owned by one live connection. Any
// number of producers enqueue; a single writer drains in strict FIFO order.
// The buffer is bounded as a hardening measure: a full mailbox closes itself,
// tearing the connection down rather than blocking or reordering senders.
type Mailbox struct {
	mu       sync.Mutex
	frames   chan push.Outbound
	closed   bool
	replaced bool
}

// NewMailbox returns a mailbox buffering up to size frames. Non-positive
// sizes fall back to the default.
func NewMailbox(size int) *Mailbox {
	if size <= 0 {
		size = defaultMailboxSize
	}
	return &Mailbox{frames: make(chan push.Outbound, size)}
}

// Enqueue appends f to the queue. It reports false when the mailbox is
// already closed, or when the buffer is full, in which case the mailbox
// closes itself and the writer emits its terminal close frame.
func (m *Mailbox) Enqueue(f push.Outbound) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	select {
	case m.frames <- f:
		return true
	default:
		m.closed = true
		close(m.frames)
		return false
	}
}

// Close makes the writer drain whatever is queued and then exit. Safe to
// call repeatedly and concurrently with Enqueue.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.frames)
	}
}

// Frames is the writer's end of the queue. The channel closes when the
// mailbox does; frames already queued are still delivered first.
func (m *Mailbox) Frames() <-chan push.Outbound { return m.frames }

// markReplaced tags the mailbox as superseded by a newer connection holding
// the same session id, so its reader skips session teardown.
func (m *Mailbox) markReplaced() {
	m.mu.Lock()
	m.replaced = true
	m.mu.Unlock()
}

// Replaced reports whether a newer connection took over this session id.
func (m *Mailbox) Replaced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaced
}
