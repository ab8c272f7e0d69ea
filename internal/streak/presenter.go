package streak

// Countdown presenter: a ticking driver that samples the eligibility calculator
// once per interval and hands decomposed frames to a callback.
// States: Stopped (no goroutine) and Ticking (one goroutine owned by a cancel func).

import (
	"context"
	"sync"
	"time"
)

// Mode selects what the countdown counts down to.
type Mode int

const (
	// ModeNextEligible counts down to lastActionTimestamp + 24h.
	ModeNextEligible Mode = iota
	// ModeMidnight counts down to the next local midnight.
	ModeMidnight
)

func (m Mode) String() string {
	if m == ModeMidnight {
		return "midnight"
	}
	return "next-eligible"
}

// Target is the presenter input.
type Target struct {
	Mode                Mode
	LastActionTimestamp int64
}

// NextEligibleTarget counts down to the next GM window of a user.
func NextEligibleTarget(lastActionTimestamp int64) Target {
	return Target{Mode: ModeNextEligible, LastActionTimestamp: lastActionTimestamp}
}

// MidnightTarget counts down to midnight.
func MidnightTarget() Target {
	return Target{Mode: ModeMidnight}
}

// TargetFor picks the countdown shown for a user at now: the 24h window while
// it is still closed, otherwise the next midnight, when the contract day rolls over.
func TargetFor(lastActionTimestamp int64, now time.Time) Target {
	if TimeUntilNextEligible(lastActionTimestamp, now) > 0 {
		return NextEligibleTarget(lastActionTimestamp)
	}
	return MidnightTarget()
}

// Frame is one rendered tick.
type Frame struct {
	Target   Target
	State    CountdownState
	Progress float64
	At       time.Time
}

// FrameAt computes the frame for target at the given instant.
func FrameAt(target Target, now time.Time) Frame {
	var remaining time.Duration
	switch target.Mode {
	case ModeMidnight:
		remaining = TimeUntilMidnight(now)
	default:
		remaining = TimeUntilNextEligible(target.LastActionTimestamp, now)
	}

	return Frame{
		Target:   target,
		State:    Decompose(remaining),
		Progress: Progress(remaining, Cooldown),
		At:       now,
	}
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithInterval overrides the 1s tick.
func WithInterval(d time.Duration) PresenterOption {
	return func(p *Presenter) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) PresenterOption {
	return func(p *Presenter) {
		if now != nil {
			p.now = now
		}
	}
}

// Presenter drives a countdown. onFrame must not call Start or Stop.
type Presenter struct {
	interval time.Duration
	now      func() time.Time
	onFrame  func(Frame)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPresenter creates a stopped presenter.
func NewPresenter(onFrame func(Frame), opts ...PresenterOption) *Presenter {
	p := &Presenter{
		interval: time.Second,
		now:      time.Now,
		onFrame:  onFrame,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start switches to Ticking for target. The first frame is delivered before Start returns.
// Calling Start while ticking replaces the previous target.
func (p *Presenter) Start(ctx context.Context, target Target) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.emit(target)
	go p.loop(tickCtx, target, done)
}

// Stop switches to Stopped. No frame is delivered after Stop returns.
func (p *Presenter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether the presenter is ticking.
func (p *Presenter) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Presenter) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Presenter) loop(ctx context.Context, target Target, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.emit(target)
		}
	}
}

func (p *Presenter) emit(target Target) {
	if p.onFrame == nil {
		return
	}
	p.onFrame(FrameAt(target, p.now()))
}
