package registry

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

const registryShardCount = 32

// MemoryRegistry is the single-node SessionRegistry: a lock-striped session
// map plus a user → id-set reverse index, with an optional sliding TTL
// enforced lazily on lookup and by a background sweep.
type MemoryRegistry struct {
	sessions [registryShardCount]sessionShard
	byUser   [registryShardCount]userShard

	ttl           time.Duration
	sweepInterval time.Duration

	stopSweep chan struct{}
	stopOnce  sync.Once
}

type sessionShard struct {
	mu sync.RWMutex
	m  map[string]*sessionRecord
}

type userShard struct {
	mu sync.Mutex
	m  map[uint32]map[string]struct{}
}

type sessionRecord struct {
	info      model.SessionInfo
	expiresAt time.Time // zero when no TTL is configured
}

// NewMemoryRegistry builds an in-memory registry. Without options sessions
// never expire.
func NewMemoryRegistry(opts ...MemoryOption) *MemoryRegistry {
	r := &MemoryRegistry{}
	for i := range r.sessions {
		r.sessions[i].m = make(map[string]*sessionRecord)
	}
	for i := range r.byUser {
		r.byUser[i].m = make(map[uint32]map[string]struct{})
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ttl > 0 {
		if r.sweepInterval <= 0 {
			r.sweepInterval = r.ttl / 2
			if r.sweepInterval < time.Second {
				r.sweepInterval = time.Second
			}
		}
		r.stopSweep = make(chan struct{})
		go r.sweep()
	}
	return r
}

// Stop terminates the background sweep, if one is running.
func (r *MemoryRegistry) Stop() {
	r.stopOnce.Do(func() {
		if r.stopSweep != nil {
			close(r.stopSweep)
		}
	})
}

func (r *MemoryRegistry) sessionShard(id string) *sessionShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &r.sessions[h.Sum32()%registryShardCount]
}

func (r *MemoryRegistry) userShard(user uint32) *userShard {
	return &r.byUser[user%registryShardCount]
}

func (r *MemoryRegistry) Insert(_ context.Context, id string, info model.SessionInfo) (bool, error) {
	rec := &sessionRecord{info: info}
	if r.ttl > 0 {
		rec.expiresAt = time.Now().Add(r.ttl)
	}

	ss := r.sessionShard(id)
	ss.mu.Lock()
	prev := ss.m[id]
	ss.m[id] = rec
	ss.mu.Unlock()

	// An id collision that changes owner must not leave the old user's
	// bucket pointing at the id.
	if prev != nil && prev.info.UserID != info.UserID {
		r.dropFromUser(prev.info.UserID, id)
	}

	us := r.userShard(info.UserID)
	us.mu.Lock()
	set := us.m[info.UserID]
	first := len(set) == 0
	if set == nil {
		set = make(map[string]struct{})
		us.m[info.UserID] = set
	}
	set[id] = struct{}{}
	us.mu.Unlock()

	return first, nil
}

// lookup fetches a live record, applying the sliding TTL. Expired records
// are unlinked on the spot, which is the implicit delete the TTL contract
// describes; no presence edge fires for it here.
func (r *MemoryRegistry) lookup(id string) (model.SessionInfo, bool) {
	ss := r.sessionShard(id)
	ss.mu.Lock()
	rec, ok := ss.m[id]
	if !ok {
		ss.mu.Unlock()
		return model.SessionInfo{}, false
	}
	if r.ttl > 0 {
		now := time.Now()
		if now.After(rec.expiresAt) {
			delete(ss.m, id)
			ss.mu.Unlock()
			// Reverse index is fixed outside the sessions lock.
			r.dropFromUser(rec.info.UserID, id)
			return model.SessionInfo{}, false
		}
		rec.expiresAt = now.Add(r.ttl)
	}
	info := rec.info
	ss.mu.Unlock()
	return info, true
}

func (r *MemoryRegistry) LookupUser(_ context.Context, id string) (uint32, error) {
	info, ok := r.lookup(id)
	if !ok {
		return 0, model.ErrNotFound
	}
	return info.UserID, nil
}

func (r *MemoryRegistry) LookupRole(_ context.Context, id string) (model.Role, error) {
	info, ok := r.lookup(id)
	if !ok {
		return model.RoleInvalid, model.ErrNotFound
	}
	return info.Role, nil
}

func (r *MemoryRegistry) IDsOf(_ context.Context, user uint32) ([]string, error) {
	us := r.userShard(user)
	us.mu.Lock()
	set := us.m[user]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	us.mu.Unlock()
	return ids, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) (model.SessionInfo, bool, error) {
	ss := r.sessionShard(id)
	ss.mu.Lock()
	rec, ok := ss.m[id]
	if ok {
		delete(ss.m, id)
	}
	// The sessions lock is released before the reverse index is touched;
	// the two maps are never held together.
	ss.mu.Unlock()

	if !ok {
		return model.SessionInfo{}, false, model.ErrNotFound
	}
	if r.ttl > 0 && time.Now().After(rec.expiresAt) {
		// Already expired: unlink silently, the session was implicitly gone.
		r.dropFromUser(rec.info.UserID, id)
		return model.SessionInfo{}, false, model.ErrNotFound
	}

	last := r.dropFromUser(rec.info.UserID, id)
	return rec.info, last, nil
}

// dropFromUser removes id from the user's bucket, evicting the bucket when
// it empties. Reports whether this removal took the user offline.
func (r *MemoryRegistry) dropFromUser(user uint32, id string) bool {
	us := r.userShard(user)
	us.mu.Lock()
	defer us.mu.Unlock()

	set, ok := us.m[user]
	if !ok {
		return false
	}
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	if len(set) == 0 {
		delete(us.m, user)
		return true
	}
	return false
}

func (r *MemoryRegistry) OnlineTree(_ context.Context) (map[uint32][]model.SessionEntry, error) {
	tree := make(map[uint32][]model.SessionEntry)
	now := time.Now()
	for i := range r.sessions {
		ss := &r.sessions[i]
		ss.mu.RLock()
		for id, rec := range ss.m {
			if r.ttl > 0 && now.After(rec.expiresAt) {
				continue
			}
			tree[rec.info.UserID] = append(tree[rec.info.UserID], model.SessionEntry{ID: id, Info: rec.info})
		}
		ss.mu.RUnlock()
	}
	return tree, nil
}

func (r *MemoryRegistry) ClearAll(_ context.Context) error {
	for i := range r.sessions {
		ss := &r.sessions[i]
		ss.mu.Lock()
		ss.m = make(map[string]*sessionRecord)
		ss.mu.Unlock()
	}
	for i := range r.byUser {
		us := &r.byUser[i]
		us.mu.Lock()
		us.m = make(map[uint32]map[string]struct{})
		us.mu.Unlock()
	}
	return nil
}

func (r *MemoryRegistry) sweep() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopSweep:
			return
		case <-ticker.C:
			r.evictExpired()
		}
	}
}

func (r *MemoryRegistry) evictExpired() {
	type victim struct {
		user uint32
		id   string
	}
	now := time.Now()
	var victims []victim
	for i := range r.sessions {
		ss := &r.sessions[i]
		ss.mu.Lock()
		for id, rec := range ss.m {
			if now.After(rec.expiresAt) {
				delete(ss.m, id)
				victims = append(victims, victim{user: rec.info.UserID, id: id})
			}
		}
		ss.mu.Unlock()
	}
	for _, v := range victims {
		r.dropFromUser(v.user, v.id)
	}
}
