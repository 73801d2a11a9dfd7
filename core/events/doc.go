// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - agent_response.*
//   - agent_speech.*
//   - tool_call.*
//   - turn_state.*
//   - session.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame payload.
//   - Segment: append-only text piece emitted in stream order.
//   - Interim: mutable point-in-time snapshot that later events supersede.
//   - Final: terminal immutable text/state for the current stream phase.
//
// user_input events carry speech activity boundaries and transcripts for the
// human side of the conversation. agent_response and agent_speech events carry
// the streamed LLM text and the synthesized audio respectively. tool_call
// events bracket dispatcher executions. turn_state events mark the lifecycle
// of individual turns, and session events mark the lifecycle of the session
// itself, including recoverable generation failures.
package events
