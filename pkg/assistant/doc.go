// Package assistant models the remote Assistants backend the client talks to:
// assistants, threads, runs and their streamed events, plus the metadata the
// GraphDB Talk to Your Graph integration stores on them.
//
// The Backend interface keeps the run controller and the shell independent of
// the OpenAI SDK; OpenAIBackend is the production implementation.
package assistant
