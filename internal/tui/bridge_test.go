package tui

import (
	"context"
	"testing"
	"time"

	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestBridgeRenderNeverBlocks(t *testing.T) {
	bridge := NewBridge()
	for i := 0; i < 100; i++ {
		bridge.Render(session.View{Generation: uint64(i)})
	}
	require.Len(t, bridge.drain(), 100)
}

func TestBridgeForwardsInOrder(t *testing.T) {
	bridge := NewBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan session.View, 16)
	go bridge.Forward(ctx, func(msg tea.Msg) {
		got <- session.View(msg.(ViewMsg))
	})

	states := []fsm.State{fsm.StateRecording, fsm.StateProcessing, fsm.StateShowing, fsm.StateReady}
	for _, state := range states {
		bridge.Render(session.View{State: state})
	}

	for _, want := range states {
		select {
		case v := <-got:
			require.Equal(t, want, v.State)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestBridgeForwardStopsOnCancel(t *testing.T) {
	bridge := NewBridge()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bridge.Forward(ctx, func(tea.Msg) {})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward did not stop")
	}
}

func TestBridgePendingDrainsInOrder(t *testing.T) {
	bridge := NewBridge()
	bridge.Render(session.View{State: fsm.StateRecording})
	bridge.Render(session.View{State: fsm.StateError, ErrorKind: session.ErrorDeviceUnavailable})

	views := bridge.Pending()
	require.Len(t, views, 2)
	require.Equal(t, fsm.StateRecording, views[0].State)
	require.Equal(t, session.ErrorDeviceUnavailable, views[1].ErrorKind)
	require.Empty(t, bridge.Pending())
}
