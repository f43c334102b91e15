// Package delivery routes flushed reports through an ordered chain of
// delivery channels.
//
// The channel order is fixed and not configurable:
//
//	1. webview_bridge - host webview message-posting capability
//	2. parent_frame   - distinct parent execution context
//	3. host_bridge    - host-provided analytics bridge object
//	4. durable_queue  - SQLite fallback queue, always eligible
//
// Per flush, the router walks the chain and stops at the first channel that
// is eligible and attempts delivery without error: channels are mutually
// exclusive delivery attempts, never a broadcast. Eligibility is re-detected
// on every flush - a capability that appears or disappears between flushes
// takes effect immediately.
//
// A channel error (or panic, which is recovered) is warning-class: it is
// logged and the next channel is tried. Only a failure of the durable queue
// itself is surfaced as an error, because no further fallback exists. An
// enqueue counts as successful delivery-for-later.
package delivery
