package workout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/fitarch/internal/pose"
)

// ErrNoSession is returned when an operation needs a running session.
var ErrNoSession = errors.New("no active session")

// Ticker delivers ticks until stopped. *time.Ticker satisfies it through
// NewTimeTicker; tests substitute a channel they drive by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// ResultSink stores finished sessions.
type ResultSink interface {
	SaveResult(ctx context.Context, userID string, s Summary) (*Result, error)
}

// Observer is notified of session lifecycle events.
type Observer interface {
	SessionStarted(planName string)
	SetCompleted(exerciseName string)
	SessionEnded(sets int)
	ResultSaved(err error)
}

// WithTickInterval sets how often the runner ticks. Defaults to one second.
// Every tick counts down one second of rest, so other intervals only make
// sense in tests.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithTicker replaces the ticker factory.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(o *options) { o.newTicker = newTicker }
}

// WithObserver attaches lifecycle hooks.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithPoseSource sets where camera frames come from.
func WithPoseSource(src pose.Source) Option {
	return func(o *options) { o.poses = src }
}

// Snapshot is a point-in-time view of a runner.
type Snapshot struct {
	Phase           Phase       `json:"phase"`
	State           State       `json:"state"`
	CurrentExercise *Exercise   `json:"currentExercise"`
	IsComplete      bool        `json:"isComplete"`
	TotalVolume     float64     `json:"totalVolume"`
	CameraOn        bool        `json:"cameraOn"`
	Pose            *pose.Frame `json:"pose,omitempty"`
}

// Runner owns one Session and the ticker that drives it. Operations are
// serialized by a mutex and at most one ticker goroutine is alive at a time.
type Runner struct {
	log       *slog.Logger
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	observer  Observer
	poses     pose.Source

	mu       sync.Mutex
	session  *Session
	cameraOn bool
	frame    *pose.Frame

	// ticker generation; ticks from an older generation are dropped
	gen  uint64
	stop chan struct{}
	done chan struct{}

	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// NewRunner creates an idle runner.
func NewRunner(log *slog.Logger, opts ...Option) *Runner {
	o := buildOptions(opts)
	return &Runner{
		log:       log,
		interval:  o.interval,
		newTicker: o.newTicker,
		observer:  o.observer,
		poses:     o.poses,
		session:   &Session{now: o.now},
		subs:      make(map[int]chan Snapshot),
	}
}

// Start begins a session on plan, restarting any session in progress.
func (r *Runner) Start(plan *Plan) (Snapshot, error) {
	r.mu.Lock()
	wasActive := r.session.IsActive()
	prevSets := len(r.session.state.CompletedSets)
	if err := r.session.Start(plan); err != nil {
		r.mu.Unlock()
		return Snapshot{}, err
	}
	r.cameraOn = false
	r.frame = nil
	done := r.stopTickerLocked()
	r.startTickerLocked()
	snap := r.snapshotLocked()
	r.publishLocked(snap)
	r.mu.Unlock()

	wait(done)
	if r.observer != nil {
		if wasActive {
			r.observer.SessionEnded(prevSets)
		}
		r.observer.SessionStarted(plan.Name)
	}
	r.log.Info("workout started", "plan", plan.Name, "exercises", len(plan.Exercises))
	return snap, nil
}

// CompleteSet logs a set. The bool is false when the call was ignored.
func (r *Runner) CompleteSet(reps int, weight float64) (Snapshot, bool) {
	r.mu.Lock()
	ex, _ := r.session.CurrentExercise()
	ok := r.session.CompleteSet(reps, weight)
	snap := r.snapshotLocked()
	if ok {
		r.publishLocked(snap)
	}
	r.mu.Unlock()

	if ok && r.observer != nil {
		r.observer.SetCompleted(ex.Name)
	}
	return snap, ok
}

// SkipRest ends the current rest period.
func (r *Runner) SkipRest() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.SkipRest()
	snap := r.snapshotLocked()
	r.publishLocked(snap)
	return snap
}

// ToggleCamera flips pose tracking. It is a no-op without an active session.
func (r *Runner) ToggleCamera() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.IsActive() {
		r.cameraOn = !r.cameraOn
		if !r.cameraOn {
			r.frame = nil
		}
	}
	snap := r.snapshotLocked()
	r.publishLocked(snap)
	return snap
}

// Snapshot returns the current view.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// End discards the session without saving. The ticker is stopped before End
// returns.
func (r *Runner) End() {
	r.mu.Lock()
	wasActive := r.session.IsActive()
	sets := len(r.session.state.CompletedSets)
	done := r.endLocked()
	r.mu.Unlock()

	wait(done)
	if wasActive && r.observer != nil {
		r.observer.SessionEnded(sets)
	}
}

// Finish ends the session and hands its summary to sink when at least one
// set was logged. The session is ended even when the sink fails; the sink
// error is returned as is. A nil result with a nil error means nothing was
// saved.
func (r *Runner) Finish(ctx context.Context, sink ResultSink, userID string) (*Result, error) {
	r.mu.Lock()
	if !r.session.IsActive() {
		r.mu.Unlock()
		return nil, ErrNoSession
	}
	summary := r.session.Summary()
	done := r.endLocked()
	r.mu.Unlock()

	wait(done)
	if r.observer != nil {
		r.observer.SessionEnded(len(summary.CompletedSets))
	}

	if len(summary.CompletedSets) == 0 {
		r.log.Info("workout finished without sets, not saving", "user", userID)
		return nil, nil
	}

	res, err := sink.SaveResult(ctx, userID, summary)
	if r.observer != nil {
		r.observer.ResultSaved(err)
	}
	if err != nil {
		r.log.Error("saving workout failed", "user", userID, "error", err)
		return nil, err
	}
	r.log.Info("workout saved",
		"user", userID,
		"id", res.ID,
		"sets", len(summary.CompletedSets),
		"volume", summary.TotalVolume,
	)
	return res, nil
}

// Subscribe returns a channel of snapshots and a cancel func. The channel
// holds only the latest snapshot; a slow reader misses intermediate ones.
// The channel is closed by cancel or Close.
func (r *Runner) Subscribe() (<-chan Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	ch <- r.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

func (r *Runner) idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.session.IsActive() && len(r.subs) == 0
}

// Close ends the session and closes all subscriptions.
func (r *Runner) Close() {
	r.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

func (r *Runner) endLocked() <-chan struct{} {
	r.session.End()
	r.cameraOn = false
	r.frame = nil
	done := r.stopTickerLocked()
	r.publishLocked(r.snapshotLocked())
	return done
}

func (r *Runner) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || !r.session.IsActive() {
		return
	}
	r.session.Tick()
	if r.cameraOn && r.poses != nil {
		f := r.poses.Next()
		r.frame = &f
	}
	r.publishLocked(r.snapshotLocked())
}

func (r *Runner) startTickerLocked() {
	r.gen++
	gen := r.gen
	t := r.newTicker(r.interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	r.stop, r.done = stop, done

	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				r.tick(gen)
			}
		}
	}()
}

// stopTickerLocked signals the ticker goroutine to exit and returns a
// channel closed once it has. The caller must release r.mu before waiting.
func (r *Runner) stopTickerLocked() <-chan struct{} {
	if r.stop == nil {
		return nil
	}
	close(r.stop)
	done := r.done
	r.stop, r.done = nil, nil
	r.gen++
	return done
}

func wait(done <-chan struct{}) {
	if done != nil {
		<-done
	}
}

func (r *Runner) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:       r.session.Phase(),
		State:       r.session.State(),
		IsComplete:  r.session.IsComplete(),
		TotalVolume: r.session.TotalVolume(),
		CameraOn:    r.cameraOn,
	}
	if ex, ok := r.session.CurrentExercise(); ok {
		snap.CurrentExercise = &ex
	}
	if r.frame != nil {
		f := *r.frame
		snap.Pose = &f
	}
	return snap
}

func (r *Runner) publishLocked(snap Snapshot) {
	for _, ch := range r.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// drop the stale snapshot and retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
