// Package dedupe remembers recent idempotency keys and the outcome recorded
// for each, so a retried request is answered without being executed twice.
package dedupe
