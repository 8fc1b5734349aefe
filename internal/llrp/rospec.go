//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"context"
	"sort"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
	"github.com/pkg/errors"
)

// AllROSpecs is the reserved wildcard id addressing every ROSpec at once.
const AllROSpecs = uint32(0)

// Transactor is the slice of Reader the controller needs;
// tests substitute a fake to observe (or suppress) traffic.
type Transactor interface {
	Transact(ctx context.Context, req Outgoing) (Incoming, error)
}

// ROSpecController drives the add/enable/start/stop/disable/delete
// lifecycle and mirrors the reader's per-spec state locally.
//
// Its table advances only after the reader confirms a transition,
// so the two sides can't diverge silently: a failed transaction
// leaves local state untouched. Transitions invalid by the local
// table are rejected before any traffic is sent, since the reader
// is guaranteed to refuse them anyway.
type ROSpecController struct {
	t  Transactor
	lc logger.LoggingClient

	// mu guards specs. It's separate from the transaction ordering
	// the Transactor provides, so message handlers on the read loop
	// can query spec state while a lifecycle call is in flight.
	mu    sync.RWMutex
	specs map[uint32]ROSpecState
}

// NewROSpecController returns a controller with an empty spec table.
func NewROSpecController(t Transactor, lc logger.LoggingClient) *ROSpecController {
	return &ROSpecController{
		t:     t,
		lc:    lc,
		specs: make(map[uint32]ROSpecState),
	}
}

// StateOf returns the tracked state of a spec id.
func (c *ROSpecController) StateOf(id uint32) (ROSpecState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specs[id]
	return s, ok
}

// IDs returns the tracked spec ids in ascending order.
func (c *ROSpecController) IDs() []uint32 {
	c.mu.RLock()
	ids := make([]uint32, 0, len(c.specs))
	for id := range c.specs {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Add registers a new ROSpec with the reader.
// On success the spec is tracked locally in the Disabled state.
func (c *ROSpecController) Add(ctx context.Context, spec *ROSpec) error {
	if spec.ROSpecID == AllROSpecs {
		return errors.Wrap(ErrInvalidStateTransition, "ROSpec id 0 is reserved")
	}

	c.mu.RLock()
	_, exists := c.specs[spec.ROSpecID]
	c.mu.RUnlock()
	if exists {
		return errors.Wrapf(ErrROSpecExists, "id %d", spec.ROSpecID)
	}

	if err := c.transact(ctx, &AddROSpec{ROSpec: *spec}); err != nil {
		return errors.WithMessagef(err, "adding ROSpec %d", spec.ROSpecID)
	}

	c.mu.Lock()
	c.specs[spec.ROSpecID] = ROSpecStateDisabled
	c.mu.Unlock()

	c.lc.Debug("ROSpec added", "id", spec.ROSpecID)
	return nil
}

// Enable moves a Disabled spec to Inactive.
func (c *ROSpecController) Enable(ctx context.Context, id uint32) error {
	return c.transition(ctx, id, ROSpecStateDisabled, ROSpecStateInactive,
		&EnableROSpec{ROSpecID: id})
}

// Start moves an Inactive spec to Active.
func (c *ROSpecController) Start(ctx context.Context, id uint32) error {
	return c.transition(ctx, id, ROSpecStateInactive, ROSpecStateActive,
		&StartROSpec{ROSpecID: id})
}

// Stop moves an Active spec back to Inactive.
func (c *ROSpecController) Stop(ctx context.Context, id uint32) error {
	return c.transition(ctx, id, ROSpecStateActive, ROSpecStateInactive,
		&StopROSpec{ROSpecID: id})
}

// Disable moves an Inactive spec back to Disabled.
func (c *ROSpecController) Disable(ctx context.Context, id uint32) error {
	return c.transition(ctx, id, ROSpecStateInactive, ROSpecStateDisabled,
		&DisableROSpec{ROSpecID: id})
}

// Delete removes a Disabled spec from the reader and local tracking.
// The AllROSpecs wildcard clears every tracked spec regardless of state.
func (c *ROSpecController) Delete(ctx context.Context, id uint32) error {
	if id != AllROSpecs {
		c.mu.RLock()
		state, ok := c.specs[id]
		c.mu.RUnlock()

		if !ok {
			return errors.Wrapf(ErrUnknownROSpec, "id %d", id)
		}
		if state != ROSpecStateDisabled {
			return errors.Wrapf(ErrInvalidStateTransition,
				"cannot delete ROSpec %d while %v", id, state)
		}
	}

	if err := c.transact(ctx, &DeleteROSpec{ROSpecID: id}); err != nil {
		return errors.WithMessagef(err, "deleting ROSpec %d", id)
	}

	c.mu.Lock()
	if id == AllROSpecs {
		c.specs = make(map[uint32]ROSpecState)
	} else {
		delete(c.specs, id)
	}
	c.mu.Unlock()

	c.lc.Debug("ROSpec deleted", "id", id)
	return nil
}

// transition performs one reader-confirmed state change.
// The precondition check is local and free: no message is sent
// unless the spec is tracked and in the expected predecessor state.
func (c *ROSpecController) transition(ctx context.Context, id uint32,
	from, to ROSpecState, req Outgoing) error {

	c.mu.RLock()
	state, ok := c.specs[id]
	c.mu.RUnlock()

	if !ok {
		return errors.Wrapf(ErrUnknownROSpec, "id %d", id)
	}
	if state != from {
		return errors.Wrapf(ErrInvalidStateTransition,
			"ROSpec %d is %v, not %v", id, state, from)
	}

	if err := c.transact(ctx, req); err != nil {
		return errors.WithMessagef(err, "%v for ROSpec %d", req.Type(), id)
	}

	c.mu.Lock()
	c.specs[id] = to
	c.mu.Unlock()

	c.lc.Debug("ROSpec transitioned", "id", id, "from", from.String(), "to", to.String())
	return nil
}

// transact sends the request and folds a non-success LLRPStatus
// into a *StatusError.
func (c *ROSpecController) transact(ctx context.Context, req Outgoing) error {
	resp, err := c.t.Transact(ctx, req)
	if err != nil {
		return err
	}

	rsp, ok := resp.(Responder)
	if !ok {
		return errors.Wrapf(ErrUnexpectedMessageType,
			"%T answering %v", resp, req.Type())
	}
	return rsp.Status().Err()
}
