package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/recognizer"
)

type fakeRecording struct {
	frame   audio.Frame
	stopErr error
	failed  chan error
	stops   atomic.Int32
}

func newFakeRecording(samples int) *fakeRecording {
	return &fakeRecording{
		frame:  audio.NewFrame(make([]int16, samples), audio.DefaultSampleRate, 1, time.Now()),
		failed: make(chan error, 1),
	}
}

func (r *fakeRecording) Stop() (audio.Frame, error) {
	if r.stops.Add(1) > 1 {
		return audio.Frame{}, audio.ErrCaptureStopped
	}
	if r.stopErr != nil {
		return audio.Frame{}, r.stopErr
	}
	return r.frame, nil
}

func (r *fakeRecording) Failed() <-chan error { return r.failed }

type fakeMic struct {
	mu         sync.Mutex
	openErr    error
	recordings []*fakeRecording
	samples    int
	opens      atomic.Int32
}

func (m *fakeMic) Open(context.Context) (audio.Recording, error) {
	m.opens.Add(1)
	if m.openErr != nil {
		return nil, m.openErr
	}
	rec := newFakeRecording(m.samples)
	m.mu.Lock()
	m.recordings = append(m.recordings, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *fakeMic) recording(i int) *fakeRecording {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordings[i]
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *manualTimer) Stop() bool { return !t.stopped.Swap(true) }

// manualClock records scheduled callbacks; fire runs one even if it was stopped,
// which is the race a real timer can lose.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &manualTimer{d: d, f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *manualClock) timer(i int) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

func (c *manualClock) fire(i int) {
	c.timer(i).f()
}

// gatedBackend blocks each call until release delivers a result.
type gatedBackend struct {
	calls     atomic.Int32
	languages chan string
	results   chan recognition
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		languages: make(chan string, 8),
		results:   make(chan recognition, 8),
	}
}

func (b *gatedBackend) Transcribe(ctx context.Context, _ audio.Frame, language string) (string, error) {
	b.calls.Add(1)
	b.languages <- language
	select {
	case res := <-b.results:
		return res.text, res.err
	case <-ctx.Done():
		return "", recognizer.Network(ctx.Err())
	}
}

func (b *gatedBackend) release(text string, err error) {
	b.results <- recognition{text: text, err: err}
}

type viewRecorder struct {
	mu    sync.Mutex
	views []View
}

func (r *viewRecorder) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *viewRecorder) states() []fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]fsm.State, 0, len(r.views))
	for _, v := range r.views {
		states = append(states, v.State)
	}
	return states
}

func (r *viewRecorder) last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

type commitRecorder struct {
	mu       sync.Mutex
	sessions []Session
}

func (r *commitRecorder) Commit(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

func (r *commitRecorder) all() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Session(nil), r.sessions...)
}

type harness struct {
	ctrl    *Controller
	mic     *fakeMic
	backend *gatedBackend
	clock   *manualClock
	views   *viewRecorder
	commits *commitRecorder
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		mic:     &fakeMic{samples: 4410},
		backend: newGatedBackend(),
		clock:   &manualClock{},
		views:   &viewRecorder{},
		commits: &commitRecorder{},
	}
	opts.AfterFunc = h.clock.AfterFunc
	opts.Commit = h.commits
	h.ctrl = NewController(nil, h.mic, h.backend, h.views, opts)
	t.Cleanup(func() { _ = h.ctrl.Close() })
	return h
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
