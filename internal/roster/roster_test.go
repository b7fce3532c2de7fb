package roster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

// fakeRosterStore counts loads; the embedded interfaces cover the methods
// the resolver never touches.
type fakeRosterStore struct {
	store.FriendStore
	store.GroupStore

	mu          sync.Mutex
	friendLoads int
	memberLoads int
	friends     map[uint32][]uint32
	members     map[uint32][]uint32
	err         error
	delay       time.Duration
}

func (f *fakeRosterStore) FriendIDs(_ context.Context, user uint32) ([]uint32, error) {
	f.mu.Lock()
	f.friendLoads++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.friends[user], nil
}

func (f *fakeRosterStore) MemberIDs(_ context.Context, group uint32) ([]uint32, error) {
	f.mu.Lock()
	f.memberLoads++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[group], nil
}

func (f *fakeRosterStore) loads() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.friendLoads, f.memberLoads
}

func (f *fakeRosterStore) setFriends(user uint32, ids []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends[user] = ids
}

func newTestRoster(fake *fakeRosterStore) *Roster {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRoster(NewLRUCache(), fake, fake, logger, metrics.NoopCollector{})
}

func TestRosterFriendsCacheAside(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRosterStore{friends: map[uint32][]uint32{1: {2, 3}}}
	r := newTestRoster(fake)

	ids, err := r.Friends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, ids)

	ids, err = r.Friends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, ids)

	fl, _ := fake.loads()
	assert.Equal(t, 1, fl, "second read is served from cache")
}

func TestRosterEmptyRosterCaches(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRosterStore{friends: map[uint32][]uint32{}}
	r := newTestRoster(fake)

	ids, err := r.Friends(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = r.Friends(ctx, 9)
	require.NoError(t, err)

	fl, _ := fake.loads()
	assert.Equal(t, 1, fl, "an empty roster is still a cacheable answer")
}

func TestRosterInvalidateFriends(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRosterStore{friends: map[uint32][]uint32{1: {2}}}
	r := newTestRoster(fake)

	_, err := r.Friends(ctx, 1)
	require.NoError(t, err)

	fake.setFriends(1, []uint32{2, 5})
	require.NoError(t, r.InvalidateFriends(ctx, 1))

	ids, err := r.Friends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 5}, ids, "the reload observes the mutation")

	fl, _ := fake.loads()
	assert.Equal(t, 2, fl)
}

func TestRosterMembers(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRosterStore{members: map[uint32][]uint32{10: {1, 2, 3}}}
	r := newTestRoster(fake)

	ids, err := r.Members(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, ids)

	_, err = r.Members(ctx, 10)
	require.NoError(t, err)
	_, ml := fake.loads()
	assert.Equal(t, 1, ml)

	require.NoError(t, r.InvalidateMembers(ctx, 10))
	_, err = r.Members(ctx, 10)
	require.NoError(t, err)
	_, ml = fake.loads()
	assert.Equal(t, 2, ml)
}

func TestRosterSingleflightCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRosterStore{
		friends: map[uint32][]uint32{1: {2}},
		delay:   30 * time.Millisecond,
	}
	r := newTestRoster(fake)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := r.Friends(ctx, 1)
			assert.NoError(t, err)
			assert.Equal(t, []uint32{2}, ids)
		}()
	}
	wg.Wait()

	fl, _ := fake.loads()
	assert.Equal(t, 1, fl, "concurrent misses collapse into one store load")
}

func TestRosterBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRosterStore{err: errors.New("store down")}
	r := newTestRoster(fake)

	for i := 0; i < 6; i++ {
		_, err := r.Friends(ctx, 1)
		require.Error(t, err)
	}

	_, err := r.Friends(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	fl, _ := fake.loads()
	assert.Equal(t, 6, fl, "the open breaker short-circuits the store")
}
