package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumenplay/gametrics/internal/queue"
	"github.com/lumenplay/gametrics/internal/report"
)

// Host capability contracts. The embedding application implements whichever
// of these its environment actually has; a nil lookup result means the
// capability is absent right now. Implementations may return errors or panic -
// the router converts both into a skip to the next channel.

// PostMessenger is the embedded-webview message-posting capability.
// The payload arrives pre-serialized as JSON.
type PostMessenger interface {
	PostMessage(serialized string) error
}

// ParentMessenger is the parent-execution-context messaging capability,
// present only when the game runs embedded in a distinct parent context.
// The payload is passed structured, not pre-serialized.
type ParentMessenger interface {
	PostToParent(payload any, targetOrigin string) error
}

// AnalyticsBridge is the host-provided bridge object's "send analytics"
// capability. The payload is passed structured.
type AnalyticsBridge interface {
	SendAnalytics(payload any) error
}

// Delivery is one flush in flight: the report snapshot plus the identity
// the router assigned to it.
type Delivery struct {
	ReportID  string
	FlushedAt int64
	Report    *report.Report

	serialized []byte
}

// Serialized returns the report as a JSON string, computed once per flush
// and shared by channels that need the pre-serialized form.
func (d *Delivery) Serialized() (string, error) {
	if d.serialized == nil {
		data, err := json.Marshal(d.Report)
		if err != nil {
			return "", fmt.Errorf("serialize report: %w", err)
		}
		d.serialized = data
	}
	return string(d.serialized), nil
}

// Structured returns the payload form passed to structured channels: the
// report decoded into a generic value tree, so host bridges never hold a
// reference into collector-owned structs.
func (d *Delivery) Structured() (any, error) {
	data, err := d.Serialized()
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal([]byte(data), &tree); err != nil {
		return nil, fmt.Errorf("decode report tree: %w", err)
	}
	return tree, nil
}

// Channel names, in priority order.
const (
	ChannelWebviewBridge = "webview_bridge"
	ChannelParentFrame   = "parent_frame"
	ChannelHostBridge    = "host_bridge"
	ChannelDurableQueue  = "durable_queue"
)

// Channel is one delivery mechanism in the router's fixed chain.
type Channel interface {
	// Name identifies the channel in results and logs.
	Name() string

	// Eligible reports whether the channel can be attempted right now.
	// Called on every flush; implementations must not cache detection.
	Eligible() bool

	// Attempt delivers the payload. Any error is treated as a soft failure
	// by the router except on the final channel.
	Attempt(ctx context.Context, d *Delivery) error
}

// WebviewBridge delivers through an embedded-webview message-posting
// capability, passing the payload pre-serialized.
type WebviewBridge struct {
	// Lookup detects the capability. Evaluated at every flush.
	Lookup func() PostMessenger
}

func (c *WebviewBridge) Name() string { return ChannelWebviewBridge }

func (c *WebviewBridge) Eligible() bool {
	return c.Lookup != nil && c.Lookup() != nil
}

func (c *WebviewBridge) Attempt(ctx context.Context, d *Delivery) error {
	messenger := c.Lookup()
	if messenger == nil {
		return fmt.Errorf("webview bridge no longer present")
	}
	payload, err := d.Serialized()
	if err != nil {
		return err
	}
	return messenger.PostMessage(payload)
}

// ParentFrame delivers to a distinct parent execution context, passing the
// payload structured.
type ParentFrame struct {
	// Lookup detects the parent context. Evaluated at every flush.
	Lookup func() ParentMessenger

	// TargetOrigin restricts which parent origin may receive the payload.
	// "*" means any.
	TargetOrigin string
}

func (c *ParentFrame) Name() string { return ChannelParentFrame }

func (c *ParentFrame) Eligible() bool {
	return c.Lookup != nil && c.Lookup() != nil
}

func (c *ParentFrame) Attempt(ctx context.Context, d *Delivery) error {
	parent := c.Lookup()
	if parent == nil {
		return fmt.Errorf("parent context no longer present")
	}
	payload, err := d.Structured()
	if err != nil {
		return err
	}
	origin := c.TargetOrigin
	if origin == "" {
		origin = "*"
	}
	return parent.PostToParent(payload, origin)
}

// HostBridge delivers through the host bridge object's analytics capability.
type HostBridge struct {
	// Lookup detects the bridge object. Evaluated at every flush.
	Lookup func() AnalyticsBridge
}

func (c *HostBridge) Name() string { return ChannelHostBridge }

func (c *HostBridge) Eligible() bool {
	return c.Lookup != nil && c.Lookup() != nil
}

func (c *HostBridge) Attempt(ctx context.Context, d *Delivery) error {
	bridge := c.Lookup()
	if bridge == nil {
		return fmt.Errorf("host bridge no longer present")
	}
	payload, err := d.Structured()
	if err != nil {
		return err
	}
	return bridge.SendAnalytics(payload)
}

// DurableQueue is the always-eligible terminal channel. Its Attempt persists
// the report; an error here has no further fallback.
type DurableQueue struct {
	Queue *queue.Queue
}

func (c *DurableQueue) Name() string { return ChannelDurableQueue }

func (c *DurableQueue) Eligible() bool { return c.Queue != nil }

func (c *DurableQueue) Attempt(ctx context.Context, d *Delivery) error {
	return c.Queue.Append(ctx, d.ReportID, d.FlushedAt, d.Report)
}
