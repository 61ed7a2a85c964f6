package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	cmds []RegenerateRequested
}

func (r *recorder) dispatch(cmd RegenerateRequested) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recorder) snapshot() []RegenerateRequested {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RegenerateRequested(nil), r.cmds...)
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(30*time.Millisecond, rec.dispatch)

	for i := 0; i < 10; i++ {
		params := smallParameters()
		params.Count = 100 * (i + 1)
		d.Request(RegenerateRequested{Parameters: params, Seed: uint64(i)})
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	cmds := rec.snapshot()
	require.Len(t, cmds, 1)
	assert.Equal(t, 1000, cmds[0].Parameters.Count)
	assert.Equal(t, uint64(9), cmds[0].Seed)
	assert.False(t, d.Pending())
}

func TestDebouncerSeparateSettles(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(10*time.Millisecond, rec.dispatch)

	d.Request(RegenerateRequested{Seed: 1})
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 2*time.Millisecond)

	d.Request(RegenerateRequested{Seed: 2})
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 2*time.Millisecond)

	cmds := rec.snapshot()
	assert.Equal(t, uint64(1), cmds[0].Seed)
	assert.Equal(t, uint64(2), cmds[1].Seed)
}

func TestDebouncerFlush(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(time.Hour, rec.dispatch)

	d.Request(RegenerateRequested{Seed: 7})
	assert.True(t, d.Pending())

	d.Flush()
	cmds := rec.snapshot()
	require.Len(t, cmds, 1)
	assert.Equal(t, uint64(7), cmds[0].Seed)

	d.Flush()
	assert.Len(t, rec.snapshot(), 1)
}

func TestDebouncerStop(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(10*time.Millisecond, rec.dispatch)

	d.Request(RegenerateRequested{Seed: 1})
	d.Stop()
	d.Request(RegenerateRequested{Seed: 2})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.False(t, d.Pending())
}

func TestDebouncerDispatchesDoNotOverlap(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		maxSeen int
		order   []uint64
	)
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)

	d := NewDebouncer(time.Millisecond, func(cmd RegenerateRequested) {
		mu.Lock()
		running++
		maxSeen = max(maxSeen, running)
		mu.Unlock()

		if cmd.Seed == 1 {
			entered <- struct{}{}
			<-gate
		}

		mu.Lock()
		running--
		order = append(order, cmd.Seed)
		mu.Unlock()
	})

	d.Request(RegenerateRequested{Seed: 1})
	<-entered

	d.Request(RegenerateRequested{Seed: 2})
	flushed := make(chan struct{})
	go func() {
		d.Flush()
		close(flushed)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, order, "the second command waits for the first dispatch")
	mu.Unlock()

	close(gate)
	<-flushed
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2}, order)
	assert.Equal(t, 1, maxSeen)
}
