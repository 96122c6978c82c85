// Package agent drives one conversational turn against an assistant run.
//
// Invariants:
//   - Text deltas reach the Printer in the order the backend streamed them.
//   - Every requires_action pause is answered with exactly one submission
//     holding the outputs of all requested calls, in request order.
//   - Tool failures are outputs, never turn failures.
//
// Usage:
//
//	ctrl, _ := agent.NewController(agent.Config{Backend: backend, Tools: executor, Printer: printer})
//	_ = ctrl.Ask(ctx, "asst_123", "thread_abc", "Which planets have moons?")
package agent
