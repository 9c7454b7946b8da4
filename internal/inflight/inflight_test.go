package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoSingleExecutionAcrossConcurrentCallers(t *testing.T) {
	r := NewRegistry()

	var calls atomic.Int32
	release := make(chan struct{})

	fn := func() (any, error) {
		calls.Add(1)
		<-release
		return "answer", nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]Result, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Do(context.Background(), "fp", fn)
		}(i)
	}

	// Let the callers pile up before releasing the leader.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one execution, got %d", got)
	}

	leaders := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error %v", i, errs[i])
		}
		if results[i].Value != "answer" {
			t.Fatalf("caller %d: unexpected value %v", i, results[i].Value)
		}
		if results[i].Leader {
			leaders++
		}
		if !results[i].Shared {
			t.Fatalf("caller %d: expected shared outcome", i)
		}
	}
	if leaders != 1 {
		t.Fatalf("expected exactly one leader, got %d", leaders)
	}
}

func TestDoBroadcastsError(t *testing.T) {
	r := NewRegistry()

	wantErr := errors.New("upstream exploded")
	release := make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Do(context.Background(), "fp", func() (any, error) {
				<-release
				return nil, wantErr
			})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Fatalf("caller %d: expected broadcast error, got %v", i, err)
		}
	}
}

func TestDoEntryRemovedAfterCompletion(t *testing.T) {
	r := NewRegistry()

	var calls atomic.Int32
	fn := func() (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	if _, err := r.Do(context.Background(), "fp", fn); err != nil {
		t.Fatalf("first Do: %v", err)
	}
	res, err := r.Do(context.Background(), "fp", fn)
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}

	if calls.Load() != 2 {
		t.Fatalf("sequential calls must each execute, got %d executions", calls.Load())
	}
	if res.Value != int32(2) {
		t.Fatalf("second call should see fresh execution, got %v", res.Value)
	}
}

func TestDoFollowerAbandonsOnContextCancel(t *testing.T) {
	r := NewRegistry()

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		_, _ = r.Do(context.Background(), "fp", func() (any, error) {
			close(started)
			<-release
			close(finished)
			return "late", nil
		})
	}()

	<-started

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Do(ctx, "fp", func() (any, error) {
		t.Error("follower fn must not run")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The leader is unaffected by the follower's cancellation.
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("leader did not run to completion")
	}
}
