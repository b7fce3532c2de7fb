package registry

import (
	"hash/fnv"
	"sync"

	"github.com/DingWH03/uchat-sub000/internal/domain/push"
)

const senderShardCount = 32

// SenderStore maps session ids to live mailboxes. It is lock-striped so a
// stall on one bucket cannot block unrelated sends.
type SenderStore struct {
	shards [senderShardCount]senderShard
}

type senderShard struct {
	mu sync.RWMutex
	m  map[string]*Mailbox
}

func NewSenderStore() *SenderStore {
	s := &SenderStore{}
	for i := range s.shards {
		s.shards[i].m = make(map[string]*Mailbox)
	}
	return s
}

func (s *SenderStore) shard(id string) *senderShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()%senderShardCount]
}

// Insert registers mb under id. A previous mailbox for the same id is marked
// replaced and closed: its writer drains and exits with a terminal close
// frame, and the new connection becomes the sole live one.
func (s *SenderStore) Insert(id string, mb *Mailbox) {
	sh := s.shard(id)
	sh.mu.Lock()
	old := sh.m[id]
	sh.m[id] = mb
	sh.mu.Unlock()

	if old != nil && old != mb {
		old.markReplaced()
		old.Close()
	}
}

// Remove drops the mailbox for id and closes it. Unknown ids are a no-op.
func (s *SenderStore) Remove(id string) {
	sh := s.shard(id)
	sh.mu.Lock()
	mb := sh.m[id]
	delete(sh.m, id)
	sh.mu.Unlock()

	if mb != nil {
		mb.Close()
	}
}

// Release removes id only while it still maps to mb. A reader tearing down
// its own connection uses this so it cannot evict a mailbox installed by a
// concurrent reconnect with the same session id.
func (s *SenderStore) Release(id string, mb *Mailbox) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	cur, ok := sh.m[id]
	if !ok || cur != mb {
		sh.mu.Unlock()
		return false
	}
	delete(sh.m, id)
	sh.mu.Unlock()

	mb.Close()
	return true
}

// Send enqueues f for id. An absent or already-closed mailbox is a silent
// no-op: the connection is gone or on its way out.
func (s *SenderStore) Send(id string, f push.Outbound) bool {
	sh := s.shard(id)
	sh.mu.RLock()
	mb := sh.m[id]
	sh.mu.RUnlock()

	if mb == nil {
		return false
	}
	return mb.Enqueue(f)
}

// Broadcast sends f to every id. A drop on one mailbox does not affect the
// others. Returns the number of successful enqueues.
func (s *SenderStore) Broadcast(ids []string, f push.Outbound) int {
	n := 0
	for _, id := range ids {
		if s.Send(id, f) {
			n++
		}
	}
	return n
}

// ClearAll closes every mailbox and empties the store.
func (s *SenderStore) ClearAll() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		boxes := make([]*Mailbox, 0, len(sh.m))
		for _, mb := range sh.m {
			boxes = append(boxes, mb)
		}
		sh.m = make(map[string]*Mailbox)
		sh.mu.Unlock()

		for _, mb := range boxes {
			mb.Close()
		}
	}
}

// Len reports how many mailboxes are registered.
func (s *SenderStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}
