package telegram

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex[string]()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.withLock("chat-1", func() {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected same-key calls to serialize, saw max concurrency %d", maxActive)
	}
}

func TestKeyedMutexAllowsDifferentKeysConcurrently(t *testing.T) {
	k := newKeyedMutex[string]()
	start := make(chan struct{})
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		k.withLock("a", func() {
			<-start
		})
	}()
	go func() {
		defer wg.Done()
		k.withLock("b", func() {
			<-start
		})
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	// Give both goroutines a chance to enter their critical sections before
	// releasing them; if "b" were blocked behind "a" this would deadlock.
	time.Sleep(20 * time.Millisecond)
	close(start)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected different keys to run concurrently, but the call blocked")
	}
}
