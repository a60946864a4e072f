package session

import "context"

// Committer records a session once it reaches Showing or Error.
type Committer interface {
	Commit(context.Context, Session) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, Session) error

func (f CommitFunc) Commit(ctx context.Context, s Session) error {
	return f(ctx, s)
}
