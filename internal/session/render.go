package session

import "github.com/barakem/voicegame/internal/fsm"

// View is what the display surface needs after each transition.
type View struct {
	State       fsm.State
	DisplayText string
	ErrorKind   ErrorKind
	Language    Language
	Generation  uint64
	// LastText is the most recent non-empty result, kept across dismissals.
	LastText string
}

// Renderer draws a View. Render runs with the controller locked and must not
// call back into the controller synchronously.
type Renderer interface {
	Render(View)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(View)

func (f RenderFunc) Render(v View) { f(v) }

type noopRenderer struct{}

func (noopRenderer) Render(View) {}

// Renderers fans one View out to several renderers in order.
type Renderers []Renderer

func (rs Renderers) Render(v View) {
	for _, r := range rs {
		if r != nil {
			r.Render(v)
		}
	}
}
