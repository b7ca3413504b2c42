package pipeline

import (
	"context"
	"sync"
)

type sceneKey struct {
	projectID  string
	sceneIndex int
}

// sceneLocks is a keyed mutex. Entries are dropped once no caller holds or
// waits on them.
type sceneLocks struct {
	mu    sync.Mutex
	slots map[sceneKey]*lockSlot
}

type lockSlot struct {
	token chan struct{}
	refs  int
}

func newSceneLocks() *sceneLocks {
	return &sceneLocks{slots: make(map[sceneKey]*lockSlot)}
}

// acquire blocks until key is free or ctx is done. The returned release must
// be called exactly once.
func (l *sceneLocks) acquire(ctx context.Context, key sceneKey) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{token: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.token <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.token
				l.drop(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.drop(key, slot)
		return nil, ctx.Err()
	}
}

func (l *sceneLocks) drop(key sceneKey, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *sceneLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
