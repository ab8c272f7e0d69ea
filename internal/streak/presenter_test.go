package streak

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *frameRecorder) record(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func TestFrameAt(t *testing.T) {
	last := int64(1_700_000_000)
	now := time.Unix(last, 0).Add(18 * time.Hour)

	f := FrameAt(NextEligibleTarget(last), now)
	assert.Equal(t, 6, f.State.Hours)
	assert.Equal(t, 0, f.State.Minutes)
	assert.InDelta(t, 0.75, f.Progress, 1e-9)

	ready := FrameAt(NextEligibleTarget(0), now)
	assert.True(t, ready.State.Ready())
	assert.Equal(t, 1.0, ready.Progress)

	midnight := FrameAt(MidnightTarget(), time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, midnight.State.Hours)
	assert.Equal(t, "midnight", midnight.Target.Mode.String())
}

func TestTargetFor(t *testing.T) {
	last := int64(1_700_000_000)

	open := TargetFor(last, time.Unix(last, 0).Add(time.Hour))
	assert.Equal(t, ModeNextEligible, open.Mode)
	assert.Equal(t, last, open.LastActionTimestamp)

	// window already open locally: the only thing left to wait for is the day rollover
	elapsed := TargetFor(last, time.Unix(last, 0).Add(25*time.Hour))
	assert.Equal(t, ModeMidnight, elapsed.Mode)
	assert.Equal(t, ModeMidnight, TargetFor(0, time.Unix(last, 0)).Mode)

	f := FrameAt(elapsed, time.Date(2024, 1, 3, 22, 30, 0, 0, time.UTC))
	assert.False(t, f.State.Ready())
	assert.Equal(t, 1, f.State.Hours)
	assert.Equal(t, 30, f.State.Minutes)
}

func TestPresenterEmitsImmediatelyAndTicks(t *testing.T) {
	rec := &frameRecorder{}
	p := NewPresenter(rec.record, WithInterval(10*time.Millisecond))

	p.Start(context.Background(), NextEligibleTarget(time.Now().Unix()))
	assert.Equal(t, 1, rec.count(), "first frame is synchronous")
	assert.True(t, p.Running())

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
}

func TestPresenterStopIsDeterministic(t *testing.T) {
	var calls atomic.Int64
	p := NewPresenter(func(Frame) { calls.Add(1) }, WithInterval(time.Millisecond))

	p.Start(context.Background(), MidnightTarget())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no frames after Stop returns")

	// stopping twice is a no-op
	p.Stop()
}

func TestPresenterRestartReplacesTarget(t *testing.T) {
	rec := &frameRecorder{}
	fixed := time.Unix(1_700_000_000, 0)
	p := NewPresenter(rec.record, WithInterval(5*time.Millisecond), WithClock(func() time.Time { return fixed }))

	p.Start(context.Background(), NextEligibleTarget(fixed.Unix()))
	assert.Equal(t, ModeNextEligible, rec.last().Target.Mode)

	p.Start(context.Background(), MidnightTarget())
	assert.Equal(t, ModeMidnight, rec.last().Target.Mode)

	require.Eventually(t, func() bool { return rec.count() >= 4 }, time.Second, 5*time.Millisecond)
	p.Stop()
	assert.Equal(t, ModeMidnight, rec.last().Target.Mode)
}

func TestPresenterStopsWithParentContext(t *testing.T) {
	p := NewPresenter(func(Frame) {}, WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx, MidnightTarget())
	cancel()

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)
	p.Stop()
}
