package session

import (
	"context"
	"fmt"

	"github.com/barakem/voicegame/internal/ipc"
)

// Handle serves IPC commands against the running controller.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		snapshot := c.Snapshot()
		return ipc.Response{
			OK:       true,
			State:    string(snapshot.State),
			Language: snapshot.Language,
			Text:     snapshot.DisplayText,
			Message:  string(snapshot.ErrorKind),
		}
	case ipc.CommandTap:
		state, err := c.Tap(ctx)
		if err != nil {
			return ipc.Response{OK: false, State: string(state), Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(state), Message: "tap"}
	case ipc.CommandCancel:
		if err := c.Cancel(); err != nil {
			return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(c.State()), Message: "cancelled"}
	case ipc.CommandLanguage:
		if err := c.SetLanguage(req.Arg); err != nil {
			return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(c.State()), Language: c.Language().Tag, Message: "language changed"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}
