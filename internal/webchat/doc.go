// Package webchat serves the conversation controller as a browser widget.
//
// Routes:
//
//	GET  /            chat page
//	GET  /api/state   JSON snapshot of the view
//	GET  /api/events  SSE stream of controller events
//	POST /api/send    submit text; optional Idempotency-Key header
//	POST /api/key     key press in the input ({key, shift, draft})
//	POST /api/draft   update the input buffer
//	GET  /health      liveness
package webchat
