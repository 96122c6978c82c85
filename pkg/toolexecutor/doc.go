// Package toolexecutor executes the tool calls a run asks for against the
// GraphDB Talk to Your Graph REST endpoint.
//
// Invariants:
//   - Every call yields an output string; failures become a fixed message
//     telling the model not to retry, never a Go error.
//   - Arguments are sent exactly as the model produced them.
//   - Authentication is chosen per call: Authorization header, then basic
//     auth, then none.
//
// Usage:
//
//	exec := toolexecutor.New(toolexecutor.Config{BaseURL: "http://localhost:7200", Username: "admin", Password: "root"})
//	out, _ := exec.Call(ctx, "asst_123", "sparql_query", `{"query":"ASK {}"}`)
//	_ = out
package toolexecutor
