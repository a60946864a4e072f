// Package indicator provides localized status messages and audio cues for
// session state changes.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/barakem/voicegame/internal/config"
	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/session"
)

const cueTimeout = 4 * time.Second

// Cues plays a short tone when the session changes state. It implements
// session.Renderer and never blocks the caller.
type Cues struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
	play   func(context.Context, cueKind) error
	player *pulsePlayer

	mu       sync.Mutex
	last     fsm.State
	seen     bool
	soundMu  sync.Mutex
	inflight sync.WaitGroup
}

// NewCues builds a cue renderer from indicator config.
func NewCues(cfg config.IndicatorConfig, logger *slog.Logger) *Cues {
	player := &pulsePlayer{}
	return &Cues{
		cfg:    cfg,
		logger: logger,
		play:   player.Play,
		player: player,
	}
}

// Render implements session.Renderer.
func (c *Cues) Render(v session.View) {
	c.mu.Lock()
	prev, seen := c.last, c.seen
	c.last, c.seen = v.State, true
	c.mu.Unlock()

	if !seen || prev == v.State {
		return
	}
	kind, ok := cueFor(prev, v)
	if !ok {
		return
	}
	c.playCue(kind)
}

// Wait blocks until queued cues finish. Used on shutdown and in tests.
func (c *Cues) Wait() {
	c.inflight.Wait()
}

// Close waits for queued cues and drops the Pulse connection.
func (c *Cues) Close() error {
	c.Wait()
	if c.player != nil {
		c.player.Close()
	}
	return nil
}

func cueFor(prev fsm.State, v session.View) (cueKind, bool) {
	switch v.State {
	case fsm.StateRecording:
		return cueStart, true
	case fsm.StateProcessing:
		return cueStop, true
	case fsm.StateShowing:
		if strings.TrimSpace(v.DisplayText) == "" {
			return cueError, true
		}
		return cueSuccess, true
	case fsm.StateError:
		return cueError, true
	case fsm.StateReady:
		if prev == fsm.StateRecording || prev == fsm.StateProcessing {
			return cueCancel, true
		}
	}
	return 0, false
}

// playCue serializes cue playback and emits audio asynchronously.
func (c *Cues) playCue(kind cueKind) {
	if !c.cfg.SoundEnable {
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.soundMu.Lock()
		defer c.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		if err := c.play(ctx, kind); err != nil {
			c.log("audio cue failed", err)
		}
	}()
}

// log emits debug-only cue failures to the runtime logger.
func (c *Cues) log(message string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Debug(message, "error", err.Error())
}
