package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInline_RunsSynchronously(t *testing.T) {
	ran := false
	Inline{}.Submit(func(ctx context.Context) {
		if ctx == nil {
			t.Error("ctx should not be nil")
		}
		ran = true
	})
	if !ran {
		t.Error("Inline should run the task before returning")
	}
	// Should not panic
	Inline{}.Submit(nil)
}

func TestPool_RunsAllTasks(t *testing.T) {
	p := NewPool(2, 4)
	var count atomic.Int32
	for i := 0; i < 50; i++ {
		p.Submit(func(ctx context.Context) { count.Add(1) })
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if count.Load() != 50 {
		t.Errorf("ran %d tasks, want 50", count.Load())
	}
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	p := NewPool(1, 1)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		p.Submit(func(ctx context.Context) {
			defer wg.Done()
			<-release
		})
	}
	// All three submits returned even though the single worker is blocked.
	close(release)
	wg.Wait()
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPool_TaskRunsToCompletion(t *testing.T) {
	p := NewPool(1, 1)
	type result struct {
		hasDeadline bool
		err         error
	}
	got := make(chan result, 1)
	p.Submit(func(ctx context.Context) {
		_, ok := ctx.Deadline()
		// A slow task must not see its context cancelled.
		time.Sleep(30 * time.Millisecond)
		got <- result{hasDeadline: ok, err: ctx.Err()}
	})
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r := <-got
	if r.hasDeadline {
		t.Error("task context should not carry a deadline")
	}
	if r.err != nil {
		t.Errorf("task context err = %v, want nil", r.err)
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	p := NewPool(1, 2)
	var after atomic.Bool
	p.Submit(func(ctx context.Context) { panic("boom") })
	p.Submit(func(ctx context.Context) { after.Store(true) })
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !after.Load() {
		t.Error("worker should survive a panicking task")
	}
}

func TestPool_SubmitAfterCloseIsDropped(t *testing.T) {
	p := NewPool(1, 1)
	_ = p.Close(context.Background())
	var ran atomic.Bool
	p.Submit(func(ctx context.Context) { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Error("task submitted after Close should not run")
	}
	// Second Close is a no-op.
	if err := p.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestPool_CloseHonorsContext(t *testing.T) {
	p := NewPool(1, 1)
	release := make(chan struct{})
	p.Submit(func(ctx context.Context) { <-release })
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Close(ctx); err == nil {
		t.Error("Close should return ctx error while a task is still running")
	}
	close(release)
}
