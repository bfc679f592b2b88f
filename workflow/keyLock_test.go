package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyLocker_SerializesSameKey(t *testing.T) {
	for run := 0; run < 20; run++ {
		l := NewKeyLocker(nil, quietLogger())
		var inside, maxInside int32
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := l.Lock(context.Background(), "молоко")
				if err != nil {
					t.Errorf("Lock: %v", err)
					return
				}
				defer release()
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				counter++
				atomic.AddInt32(&inside, -1)
			}()
		}
		wg.Wait()

		if maxInside != 1 {
			t.Fatalf("run=%d expected one holder at a time, saw %d", run, maxInside)
		}
		if counter != 50 {
			t.Fatalf("run=%d expected 50 increments, got %d", run, counter)
		}
	}
}

func TestKeyLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewKeyLocker(nil, quietLogger())
	releaseMilk, err := l.Lock(context.Background(), "молоко")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer releaseMilk()

	done := make(chan struct{})
	go func() {
		release, err := l.Lock(context.Background(), "кава")
		if err == nil {
			release()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lock on another key blocked")
	}
}

func TestKeyLocker_CancelledContext(t *testing.T) {
	l := NewKeyLocker(nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Lock(ctx, "молоко"); err == nil {
		t.Fatalf("expected an error for a cancelled context")
	}
}
