package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/middleware"
)

func newTestPool(workers, queueSize int) *Pool {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewPool(workers, queueSize, middleware.NewMetrics(), log)
}

func TestPoolPreservesPerChatOrder(t *testing.T) {
	pool := newTestPool(3, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var mu sync.Mutex
	seen := make(map[int64][]int)

	for i := 0; i < 10; i++ {
		for _, chatID := range []int64{-1, -2, -3} {
			chatID, i := chatID, i
			err := pool.Enqueue(ctx, Job{
				ChatID: chatID,
				Run: func(context.Context) error {
					mu.Lock()
					seen[chatID] = append(seen[chatID], i)
					mu.Unlock()
					return nil
				},
			})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
	}

	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	for chatID, got := range seen {
		if len(got) != 10 {
			t.Fatalf("chat %d ran %d jobs, want 10", chatID, len(got))
		}
		for i, v := range got {
			if v != i {
				t.Errorf("chat %d job order %v, want ascending", chatID, got)
				break
			}
		}
	}
}

func TestPoolDiscardsFailedJobs(t *testing.T) {
	pool := newTestPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var mu sync.Mutex
	var ran []string

	jobs := []Job{
		{ChatID: 1, Run: func(context.Context) error { return errors.New("boom") }},
		{ChatID: 1, Run: func(context.Context) error {
			mu.Lock()
			ran = append(ran, "after-error")
			mu.Unlock()
			return nil
		}},
		{ChatID: 1, Run: func(context.Context) error { panic("kaboom") }},
		{ChatID: 1, Run: func(context.Context) error {
			mu.Lock()
			ran = append(ran, "after-panic")
			mu.Unlock()
			return nil
		}},
	}
	for _, job := range jobs {
		if err := pool.Enqueue(ctx, job); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 2 || ran[0] != "after-error" || ran[1] != "after-panic" {
		t.Errorf("ran = %v, want jobs after failures to still run in order", ran)
	}
}

func TestEnqueueFailsAfterCancel(t *testing.T) {
	pool := newTestPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	// No Start: the queue fills and blocks, so a cancelled context is the
	// only way out.
	if err := pool.Enqueue(ctx, Job{ChatID: 1, Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("first enqueue should buffer: %v", err)
	}

	cancel()
	err := pool.Enqueue(ctx, Job{ChatID: 1, Run: func(context.Context) error { return nil }})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
