// Package assistant defines the external chat capability coven-chat talks to.
//
// # Overview
//
// An Assistant turns a prompt into a Reply. The capability belongs to the
// host environment, not to the widget, and may appear only after the widget
// has started, so the widget never holds an Assistant directly. It asks a
// Locator instead, and a Locator that can announce initialization also
// implements Notifier.
//
// # Replies
//
// A Reply is plain text or a structured value with a nested message.content
// field, mirroring what chat backends return. Reply.Content normalizes both:
//
//	Text("Hi").Content()              // "Hi"
//	StructuredContent("Hi").Content() // "Hi"
//	Structured(nil).Content()         // "No reply received"
//
// # Failures
//
// Backends report failures as *Error with a human-readable Description.
// Describe extracts it, falling back to "Something went wrong.".
//
// # Backends
//
//   - Gateway: POST /api/send on a coven gateway, folding the SSE stream
//   - OpenAI: a chat completion per prompt
//   - Echo: local double that repeats the prompt
//
// FromConfig wires a backend to its readiness check: HTTPProber
// (/health/ready), GRPCProber (grpc.health.v1) or a Host that is filled in
// after a startup delay.
package assistant
