// Package version carries build metadata injected through ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line printed by `voicegame version`.
func String() string {
	return "voicegame " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies the client on outbound recognizer connections.
func UserAgent() string {
	return "voicegame/" + Version
}
