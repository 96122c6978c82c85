// Package session implements the interactive chat loop.
//
// A Shell owns no mutable state of its own: the active assistant and
// thread live in a State value passed to every command, so commands can
// be exercised without a terminal.
//
// Usage:
//
//	shell := session.NewShell(session.Config{...})
//	err := shell.Run(ctx, assistantID, threadID, lines)
package session
