package funds

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/internal/events"
)

type fakeRefresher struct {
	mu       sync.Mutex
	inFlight int32
	maxSeen  int32
	calls    []string
	delay    time.Duration
	failFor  map[string]error
}

func (f *fakeRefresher) RefreshFund(_ context.Context, fundCode string) error {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	f.calls = append(f.calls, fundCode)
	f.mu.Unlock()

	if err, ok := f.failFor[fundCode]; ok {
		return err
	}
	return nil
}

func TestBatchRefresherBoundedConcurrency(t *testing.T) {
	fake := &fakeRefresher{delay: 20 * time.Millisecond}
	em := events.NewManager(zerolog.Nop())
	batch := NewBatchRefresher(fake, em, 3, zerolog.Nop())

	codes := []string{"000001", "000002", "000003", "000004", "000005", "000006", "000007", "000008"}
	result := batch.Run(context.Background(), codes)

	assert.Equal(t, 8, result.Total)
	assert.Len(t, result.Succeeded, 8)
	assert.Empty(t, result.Failed)
	assert.LessOrEqual(t, fake.maxSeen, int32(3), "more than 3 refreshes ran at once")
}

func TestBatchRefresherFailureIsolation(t *testing.T) {
	fake := &fakeRefresher{
		failFor: map[string]error{"000002": errors.New("source timeout")},
	}
	em := events.NewManager(zerolog.Nop())
	batch := NewBatchRefresher(fake, em, 3, zerolog.Nop())

	result := batch.Run(context.Background(), []string{"000001", "000002", "000003"})

	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Succeeded, 2)
	require.Contains(t, result.Failed, "000002")
	assert.Equal(t, "source timeout", result.Failed["000002"])
}

func TestBatchRefresherDeduplicatesCodes(t *testing.T) {
	fake := &fakeRefresher{}
	em := events.NewManager(zerolog.Nop())
	batch := NewBatchRefresher(fake, em, 3, zerolog.Nop())

	result := batch.Run(context.Background(), []string{"000001", "000001", "000002"})

	assert.Equal(t, 2, result.Total)
	assert.Len(t, fake.calls, 2)
}

func TestBatchRefresherCompletionHookRunsOnce(t *testing.T) {
	fake := &fakeRefresher{
		failFor: map[string]error{"000001": errors.New("boom"), "000002": errors.New("boom")},
	}
	em := events.NewManager(zerolog.Nop())
	batch := NewBatchRefresher(fake, em, 2, zerolog.Nop())

	var hookCalls int32
	batch.OnComplete(func() { atomic.AddInt32(&hookCalls, 1) })

	batch.Run(context.Background(), []string{"000001", "000002", "000003"})
	assert.Equal(t, int32(1), hookCalls, "completion hook must run exactly once per run")

	batch.Run(context.Background(), []string{"000003"})
	assert.Equal(t, int32(2), hookCalls)
}

func TestBatchRefresherFinalProgressAlwaysEmitted(t *testing.T) {
	fake := &fakeRefresher{}
	em := events.NewManager(zerolog.Nop())

	var mu sync.Mutex
	var progress []events.Event
	em.Subscribe(func(e events.Event) {
		if e.Type == events.JobProgress {
			mu.Lock()
			progress = append(progress, e)
			mu.Unlock()
		}
	})

	batch := NewBatchRefresher(fake, em, 3, zerolog.Nop())
	result := batch.Run(context.Background(), []string{"000001", "000002", "000003", "000004", "000005"})

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress, "throttling must not swallow the final report")

	last := progress[len(progress)-1]
	assert.Equal(t, result.Total, last.Data["current"])
	assert.Equal(t, result.Total, last.Data["total"])

	// Monotonic: the reported counter never moves backwards.
	prev := -1
	for _, e := range progress {
		cur := e.Data["current"].(int)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestBatchRefresherCancelledContext(t *testing.T) {
	fake := &fakeRefresher{delay: 50 * time.Millisecond}
	em := events.NewManager(zerolog.Nop())
	batch := NewBatchRefresher(fake, em, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := batch.Run(ctx, []string{"000001", "000002"})
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, len(result.Succeeded)+len(result.Failed), "every unit must settle")
}
