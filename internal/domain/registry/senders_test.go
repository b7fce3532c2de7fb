package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DingWH03/uchat-sub000/internal/domain/push"
)

func TestSenderStoreSend(t *testing.T) {
	s := NewSenderStore()
	mb := NewMailbox(4)
	s.Insert("sid-1", mb)

	assert.True(t, s.Send("sid-1", push.Text([]byte("hello"))))
	assert.False(t, s.Send("sid-missing", push.Text([]byte("nobody"))), "absent id is a silent no-op")

	f := <-mb.Frames()
	assert.Equal(t, "hello", string(f.Data))
}

func TestSenderStoreInsertReplacesPrevious(t *testing.T) {
	s := NewSenderStore()
	old := NewMailbox(4)
	s.Insert("sid-1", old)

	fresh := NewMailbox(4)
	s.Insert("sid-1", fresh)

	assert.True(t, old.Replaced())
	_, open := <-old.Frames()
	assert.False(t, open, "replaced mailbox must be closed")

	assert.True(t, s.Send("sid-1", push.Text([]byte("to-new"))))
	f := <-fresh.Frames()
	assert.Equal(t, "to-new", string(f.Data))
	assert.Equal(t, 1, s.Len())
}

func TestSenderStoreRemoveCloses(t *testing.T) {
	s := NewSenderStore()
	mb := NewMailbox(4)
	s.Insert("sid-1", mb)

	s.Remove("sid-1")
	_, open := <-mb.Frames()
	assert.False(t, open)
	assert.False(t, s.Send("sid-1", push.Text(nil)))
	assert.Equal(t, 0, s.Len())

	// Removing an unknown id does nothing.
	s.Remove("sid-1")
}

func TestSenderStoreRelease(t *testing.T) {
	s := NewSenderStore()
	mine := NewMailbox(4)
	s.Insert("sid-1", mine)

	// A reconnect installs a new mailbox before the old reader tears down.
	taken := NewMailbox(4)
	s.Insert("sid-1", taken)

	assert.False(t, s.Release("sid-1", mine), "stale reader must not evict the new mailbox")
	assert.True(t, s.Send("sid-1", push.Text([]byte("still-alive"))))

	assert.True(t, s.Release("sid-1", taken))
	assert.Equal(t, 0, s.Len())
}

func TestSenderStoreBroadcastIsolation(t *testing.T) {
	s := NewSenderStore()
	full := NewMailbox(1)
	require.True(t, full.Enqueue(push.Text(nil))) // saturate so broadcast overflows it
	healthy := NewMailbox(4)
	s.Insert("sid-full", full)
	s.Insert("sid-ok", healthy)

	n := s.Broadcast([]string{"sid-full", "sid-ok", "sid-gone"}, push.Text([]byte("fanout")))
	assert.Equal(t, 1, n)

	f := <-healthy.Frames()
	assert.Equal(t, "fanout", string(f.Data))
}

func TestSenderStoreClearAll(t *testing.T) {
	s := NewSenderStore()
	boxes := make([]*Mailbox, 0, 40)
	for i := 0; i < 40; i++ {
		mb := NewMailbox(2)
		s.Insert(fmt.Sprintf("sid-%d", i), mb)
		boxes = append(boxes, mb)
	}
	require.Equal(t, 40, s.Len())

	s.ClearAll()
	assert.Equal(t, 0, s.Len())
	for _, mb := range boxes {
		_, open := <-mb.Frames()
		assert.False(t, open)
	}
}
