// Package ipc carries one-line JSON commands over a unix socket to the running game.
package ipc

const (
	CommandStatus   = "status"
	CommandTap      = "tap"
	CommandCancel   = "cancel"
	CommandLanguage = "language"
)

type Request struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
