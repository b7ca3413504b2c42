package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSceneLocksSerializeSameKey(t *testing.T) {
	locks := newSceneLocks()
	key := sceneKey{projectID: "p1", sceneIndex: 0}

	release, err := locks.acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan func())
	go func() {
		next, err := locks.acquire(context.Background(), key)
		if err != nil {
			t.Errorf("second acquire: %v", err)
			close(acquired)
			return
		}
		acquired <- next
	}()

	select {
	case <-acquired:
		t.Fatal("second caller acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	next := <-acquired
	if next == nil {
		t.Fatal("second caller never acquired the lock")
	}
	next()
	if locks.size() != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", locks.size())
	}
}

func TestSceneLocksIndependentKeys(t *testing.T) {
	locks := newSceneLocks()
	a, err := locks.acquire(context.Background(), sceneKey{projectID: "p1", sceneIndex: 0})
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer a()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := locks.acquire(ctx, sceneKey{projectID: "p1", sceneIndex: 1})
	if err != nil {
		t.Fatalf("different scene should not block: %v", err)
	}
	b()
}

func TestSceneLocksCancelledWait(t *testing.T) {
	locks := newSceneLocks()
	key := sceneKey{projectID: "p1", sceneIndex: 2}
	release, _ := locks.acquire(context.Background(), key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locks.acquire(ctx, key); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	release()
	release()
	if locks.size() != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", locks.size())
	}
}
