// Package session owns the tap-driven record, recognize, and show cycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/recognizer"
	"github.com/barakem/voicegame/internal/transcript"
)

const (
	DefaultMaxRecording       = 10 * time.Second
	DefaultRecognitionTimeout = 15 * time.Second
)

// Timer is the part of *time.Timer the controller uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options tunes one Controller.
type Options struct {
	MaxRecording       time.Duration
	RecognitionTimeout time.Duration
	Language           Language
	Normalize          transcript.Options
	AfterFunc          AfterFunc
	Commit             Committer
}

// Session is a snapshot of one capture-to-result cycle.
type Session struct {
	ID            string
	Generation    uint64
	State         fsm.State
	Language      string
	StartedAt     time.Time
	FinishedAt    time.Time
	RawTranscript string
	DisplayText   string
	ErrorKind     ErrorKind
	Samples       int
}

// Controller serializes every transition of the single live session.
//
// Timer, capture-failure, and recognition callbacks carry the generation they
// were started for; callbacks from a superseded generation are dropped.
type Controller struct {
	logger   *slog.Logger
	mic      audio.Microphone
	backend  recognizer.Backend
	renderer Renderer
	opts     Options

	base       context.Context
	baseCancel context.CancelFunc

	mu                sync.Mutex
	state             fsm.State
	generation        uint64
	current           Session
	language          Language
	lastText          string
	recording         audio.Recording
	captureDone       chan struct{}
	timer             Timer
	cancelRecognition context.CancelFunc
	pending           []Session
	closed            bool
}

// NewController constructs a controller in Ready with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	mic audio.Microphone,
	backend recognizer.Backend,
	renderer Renderer,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if mic == nil {
		mic = unavailableMicrophone{}
	}
	if backend == nil {
		backend = unavailableBackend{}
	}
	if renderer == nil {
		renderer = noopRenderer{}
	}
	if opts.MaxRecording <= 0 {
		opts.MaxRecording = DefaultMaxRecording
	}
	if opts.RecognitionTimeout <= 0 {
		opts.RecognitionTimeout = DefaultRecognitionTimeout
	}
	if opts.Language.Tag == "" {
		opts.Language = DefaultLanguage
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}

	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:     logger,
		mic:        mic,
		backend:    backend,
		renderer:   renderer,
		opts:       opts,
		base:       base,
		baseCancel: cancel,
		state:      fsm.StateReady,
		language:   opts.Language,
	}
	c.current = c.readySessionLocked()
	return c
}

// State returns the current FSM state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Language returns the active language.
func (c *Controller) Language() Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// LastText returns the most recent non-empty display text.
func (c *Controller) LastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastText
}

// Redraw renders the current view without changing state.
func (c *Controller) Redraw() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked()
}

// Tap applies the single user input according to the current state.
func (c *Controller) Tap(ctx context.Context) (fsm.State, error) {
	switch state := c.State(); state {
	case fsm.StateReady:
		err := c.Start(ctx)
		return c.State(), err
	case fsm.StateRecording:
		err := c.Stop(ctx)
		return c.State(), err
	case fsm.StateProcessing:
		c.logger.Debug("tap ignored while processing", "generation", c.Snapshot().Generation)
		return state, nil
	default:
		err := c.Dismiss()
		return c.State(), err
	}
}

// Start claims the microphone and enters Recording.
//
// When the microphone cannot be claimed the controller moves to Error and the
// capture error is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state != fsm.StateReady {
		c.logger.Warn("start rejected",
			"session_id", c.current.ID,
			"generation", c.generation,
			"state", string(c.state),
			"error_kind", string(ErrorAlreadyActive),
		)
		return fmt.Errorf("%w: state %s", ErrAlreadyActive, c.state)
	}

	c.generation++
	gen := c.generation
	c.current = Session{
		ID:         uuid.NewString(),
		Generation: gen,
		Language:   c.language.Tag,
		StartedAt:  time.Now(),
	}
	if err := c.transitionLocked(fsm.EventStart); err != nil {
		return err
	}

	rec, err := c.mic.Open(ctx)
	if err != nil {
		if !errors.Is(err, audio.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
		}
		c.failLocked(err)
		return err
	}

	done := make(chan struct{})
	c.recording = rec
	c.captureDone = done
	c.timer = c.opts.AfterFunc(c.opts.MaxRecording, func() { c.onTimeout(gen) })
	go c.watchCapture(gen, rec, done)
	return nil
}

// Stop ends Recording early. It is a no-op in any other state.
func (c *Controller) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	if c.state != fsm.StateRecording {
		return nil
	}
	c.stopLocked(fsm.EventStop)
	return nil
}

// Dismiss returns from Showing or Error to Ready. It is a no-op elsewhere.
func (c *Controller) Dismiss() error {
	c.mu.Lock()
	defer c.unlock()
	return c.dismissLocked()
}

// Cancel abandons the live cycle and returns to Ready.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.unlock()
	return c.cancelLocked()
}

// SetLanguage switches language, resetting to Ready and clearing shown text.
func (c *Controller) SetLanguage(tag string) error {
	lang, ok := LookupLanguage(tag)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, tag)
	}

	c.mu.Lock()
	defer c.unlock()

	if err := c.cancelLocked(); err != nil {
		return err
	}
	from := c.language
	c.language = lang
	c.lastText = ""
	c.current = c.readySessionLocked()
	c.logger.Info("language changed", "from", from.Tag, "to", lang.Tag, "generation", c.generation)
	c.renderLocked()
	return nil
}

// Close cancels any live cycle. Later Starts fail with ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return nil
	}
	err := c.cancelLocked()
	c.closed = true
	c.baseCancel()
	return err
}

// unlock releases the mutex and then delivers finished sessions to Commit.
func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if c.opts.Commit == nil {
		return
	}
	for _, s := range pending {
		if err := c.opts.Commit.Commit(c.base, s); err != nil {
			c.logger.Warn("commit session failed", "session_id", s.ID, "error", err.Error())
		}
	}
}

func (c *Controller) readySessionLocked() Session {
	return Session{
		Generation: c.generation,
		State:      fsm.StateReady,
		Language:   c.language.Tag,
	}
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	from := c.state
	next, err := fsm.Transition(from, event)
	if err != nil {
		c.logger.Error("session transition rejected",
			"session_id", c.current.ID,
			"generation", c.generation,
			"from", string(from),
			"event", string(event),
			"error", err.Error(),
		)
		return err
	}

	c.state = next
	c.current.State = next
	if fsm.Terminal(next) {
		c.current.FinishedAt = time.Now()
		c.pending = append(c.pending, c.current)
	}

	c.logger.Info("session transition",
		"session_id", c.current.ID,
		"generation", c.generation,
		"from", string(from),
		"to", string(next),
		"event", string(event),
	)
	c.renderLocked()
	return nil
}

func (c *Controller) renderLocked() {
	view := View{
		State:      c.state,
		Language:   c.language,
		Generation: c.generation,
		LastText:   c.lastText,
	}
	switch c.state {
	case fsm.StateShowing:
		view.DisplayText = c.current.DisplayText
	case fsm.StateError:
		view.ErrorKind = c.current.ErrorKind
	}
	c.renderer.Render(view)
}

// releaseLocked stops the timer and the capture watcher and returns the live
// recording, if any, for the caller to stop.
func (c *Controller) releaseLocked() audio.Recording {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.captureDone != nil {
		close(c.captureDone)
		c.captureDone = nil
	}
	rec := c.recording
	c.recording = nil
	return rec
}

func (c *Controller) stopLocked(event fsm.Event) {
	rec := c.releaseLocked()
	if rec == nil {
		c.failLocked(fmt.Errorf("%w: no live recording", audio.ErrDeviceUnavailable))
		return
	}

	frame, err := rec.Stop()
	if err != nil {
		c.failLocked(err)
		return
	}

	c.current.Samples = frame.Len()
	if err := c.transitionLocked(event); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.base, c.opts.RecognitionTimeout)
	c.cancelRecognition = cancel
	go c.recognize(ctx, cancel, c.generation, frame, c.language.Tag)
}

func (c *Controller) failLocked(err error) {
	kind := KindFromError(err)
	if c.cancelRecognition != nil {
		c.cancelRecognition()
		c.cancelRecognition = nil
	}
	if rec := c.releaseLocked(); rec != nil {
		_, _ = rec.Stop()
	}

	c.current.ErrorKind = kind
	c.logger.Warn("session failed",
		"session_id", c.current.ID,
		"generation", c.generation,
		"state", string(c.state),
		"error_kind", string(kind),
		"error", err.Error(),
	)
	_ = c.transitionLocked(fsm.EventFail)
}

func (c *Controller) dismissLocked() error {
	if !fsm.Terminal(c.state) {
		return nil
	}
	if err := c.transitionLocked(fsm.EventDismiss); err != nil {
		return err
	}
	c.current = c.readySessionLocked()
	return nil
}

func (c *Controller) cancelLocked() error {
	switch c.state {
	case fsm.StateReady:
		return nil
	case fsm.StateShowing, fsm.StateError:
		return c.dismissLocked()
	}

	if rec := c.releaseLocked(); rec != nil {
		_, _ = rec.Stop()
	}
	if c.cancelRecognition != nil {
		c.cancelRecognition()
		c.cancelRecognition = nil
	}
	c.generation++
	if err := c.transitionLocked(fsm.EventCancel); err != nil {
		return err
	}
	c.current = c.readySessionLocked()
	return nil
}

func (c *Controller) stale(gen uint64, want fsm.State) bool {
	return gen != c.generation || c.state != want || c.closed
}

func (c *Controller) onTimeout(gen uint64) {
	c.mu.Lock()
	defer c.unlock()

	if c.stale(gen, fsm.StateRecording) {
		c.logger.Debug("stale auto-stop ignored", "generation", gen, "current_generation", c.generation, "state", string(c.state))
		return
	}
	c.timer = nil
	c.stopLocked(fsm.EventTimeout)
}

func (c *Controller) watchCapture(gen uint64, rec audio.Recording, done <-chan struct{}) {
	select {
	case <-done:
	case err, ok := <-rec.Failed():
		if !ok || err == nil {
			return
		}
		c.onCaptureFailure(gen, err)
	}
}

func (c *Controller) onCaptureFailure(gen uint64, err error) {
	c.mu.Lock()
	defer c.unlock()

	if c.stale(gen, fsm.StateRecording) {
		c.logger.Debug("stale capture failure ignored", "generation", gen, "error", err.Error())
		return
	}
	c.failLocked(err)
}

type recognition struct {
	text string
	err  error
}

func (c *Controller) recognize(ctx context.Context, cancel context.CancelFunc, gen uint64, frame audio.Frame, language string) {
	defer cancel()

	started := time.Now()
	resultCh := make(chan recognition, 1)
	go func() {
		text, err := c.backend.Transcribe(ctx, frame, language)
		resultCh <- recognition{text: text, err: err}
	}()

	var res recognition
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		res = recognition{err: recognizer.Network(ctx.Err())}
	}
	c.finishRecognition(gen, res, time.Since(started))
}

func (c *Controller) finishRecognition(gen uint64, res recognition, latency time.Duration) {
	c.mu.Lock()
	defer c.unlock()

	if c.stale(gen, fsm.StateProcessing) {
		c.logger.Debug("stale recognition result ignored", "generation", gen, "current_generation", c.generation)
		return
	}
	c.cancelRecognition = nil

	if res.err != nil {
		c.failLocked(res.err)
		return
	}

	result := transcript.Normalize(res.text, c.opts.Normalize)
	c.current.RawTranscript = res.text
	c.current.DisplayText = result.DisplayText
	if !result.Empty() {
		c.lastText = result.DisplayText
	}
	c.logger.Info("recognition complete",
		"session_id", c.current.ID,
		"generation", gen,
		"latency_ms", latency.Milliseconds(),
		"samples", c.current.Samples,
		"empty", result.Empty(),
	)
	_ = c.transitionLocked(fsm.EventRecognized)
}
