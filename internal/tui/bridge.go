package tui

import (
	"context"
	"sync"

	"github.com/barakem/voicegame/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Bridge is a session.Renderer that forwards views to a running program.
// Render never blocks; views are delivered in order by Forward.
type Bridge struct {
	mu      sync.Mutex
	pending []session.View
	wake    chan struct{}
}

// NewBridge returns an idle bridge.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// Render implements session.Renderer.
func (b *Bridge) Render(v session.View) {
	b.mu.Lock()
	b.pending = append(b.pending, v)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Forward delivers queued views to send until ctx is done.
func (b *Bridge) Forward(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
		for _, v := range b.drain() {
			send(ViewMsg(v))
		}
	}
}

// Pending removes and returns views not yet forwarded.
func (b *Bridge) Pending() []session.View {
	return b.drain()
}

func (b *Bridge) drain() []session.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	views := b.pending
	b.pending = nil
	return views
}
