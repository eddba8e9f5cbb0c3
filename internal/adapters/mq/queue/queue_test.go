package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/okian/garden/internal/domain/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func envelope(id string) Envelope {
	return Envelope{Event: model.ImplicitEvent{
		EventID:    id,
		UserID:     "u-1",
		Instrument: model.WHO5,
		ItemID:     "who5_1",
		Proxy:      model.ProxyDuration,
		Value:      1.5,
	}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, envelope("event1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Event.EventID != "event1" {
		t.Errorf("expected event1, got %v", got.Event.EventID)
	}
	if got.Attempt != 0 {
		t.Errorf("expected attempt 0, got %d", got.Attempt)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	_ = q.Close()
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	if !q.Enqueue(ctx, envelope("event1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, envelope("event2")) {
		t.Error("expected enqueue to succeed")
	}

	start := time.Now()
	if q.Enqueue(ctx, envelope("event3")) {
		t.Error("expected enqueue to fail when full")
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("enqueue on a full queue must not block")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	defer func() { _ = q.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, envelope("event1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	producers := 10
	perProducer := 100

	var consumed sync.Map
	var consumers sync.WaitGroup
	for i := 0; i < producers; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for e := range q.Dequeue(ctx) {
				consumed.Store(e.Event.EventID, true)
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, envelope(fmt.Sprintf("event%d_%d", id, j))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	wg.Wait()
	_ = q.Close()
	consumers.Wait()

	n := 0
	consumed.Range(func(_, _ any) bool { n++; return true })
	if n != producers*perProducer {
		t.Errorf("expected %d consumed envelopes, got %d", producers*perProducer, n)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, envelope("event1")) || !q.Enqueue(ctx, envelope("event2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, envelope("event3")) {
		t.Error("expected enqueue to fail after closing")
	}

	var ids []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for done := false; !done; {
		select {
		case e, ok := <-ch:
			if !ok {
				done = true
				continue
			}
			ids = append(ids, e.Event.EventID)
		case <-timeout:
			t.Fatal("expected dequeue channel to close after draining")
		}
	}
	if len(ids) != 2 || ids[0] != "event1" || ids[1] != "event2" {
		t.Errorf("expected buffered envelopes in order, got %v", ids)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

func TestInMemoryQueue_DequeueStopsOnCancel(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	defer func() { _ = q.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	ch := q.Dequeue(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected no envelope")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not stop after cancel")
	}
}
