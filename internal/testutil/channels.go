package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/lumenplay/gametrics/internal/delivery"
)

// ErrScriptedFailure is the error a ScriptedChannel returns when configured
// to fail.
var ErrScriptedFailure = errors.New("scripted channel failure")

// ScriptedChannel is a delivery.Channel with scripted behavior for verifying
// router ordering and at-most-one-success semantics. It counts eligibility
// probes and delivery attempts and retains every payload it accepted.
//
// Thread-safety: safe for concurrent use via internal mutex, though router
// flushes are sequential in practice.
type ScriptedChannel struct {
	mu sync.Mutex

	// ChannelName is returned by Name.
	ChannelName string

	// Present controls Eligible.
	Present bool

	// Fail makes every attempt return ErrScriptedFailure.
	Fail bool

	// Panic makes every attempt panic, for exercising the router's
	// panic-to-error conversion.
	Panic bool

	// Probes counts Eligible calls.
	Probes int

	// Attempts counts Attempt calls.
	Attempts int

	// Accepted holds the deliveries that completed without error.
	Accepted []*delivery.Delivery
}

// NewScriptedChannel creates a present, succeeding channel with the name.
func NewScriptedChannel(name string) *ScriptedChannel {
	return &ScriptedChannel{ChannelName: name, Present: true}
}

// Name implements delivery.Channel.
func (c *ScriptedChannel) Name() string { return c.ChannelName }

// Eligible implements delivery.Channel.
func (c *ScriptedChannel) Eligible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Probes++
	return c.Present
}

// Attempt implements delivery.Channel.
func (c *ScriptedChannel) Attempt(ctx context.Context, d *delivery.Delivery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Attempts++
	if c.Panic {
		panic("scripted channel panic")
	}
	if c.Fail {
		return ErrScriptedFailure
	}
	c.Accepted = append(c.Accepted, d)
	return nil
}
