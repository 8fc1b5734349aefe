//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"context"
	"testing"

	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransactor records requests and replies from a scripted queue.
// An empty queue answers with a success status of the matching type.
type fakeTransactor struct {
	calls   []Outgoing
	replies []Incoming
	errs    []error
}

func (f *fakeTransactor) Transact(_ context.Context, req Outgoing) (Incoming, error) {
	f.calls = append(f.calls, req)

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	if len(f.replies) > 0 {
		m := f.replies[0]
		f.replies = f.replies[1:]
		return m, nil
	}
	return successFor(req.Type()), nil
}

func successFor(t MessageType) Incoming {
	ok := LLRPStatus{Status: StatusSuccess}
	switch t {
	case MsgAddROSpec:
		return &AddROSpecResponse{LLRPStatus: ok}
	case MsgEnableROSpec:
		return &EnableROSpecResponse{LLRPStatus: ok}
	case MsgStartROSpec:
		return &StartROSpecResponse{LLRPStatus: ok}
	case MsgStopROSpec:
		return &StopROSpecResponse{LLRPStatus: ok}
	case MsgDisableROSpec:
		return &DisableROSpecResponse{LLRPStatus: ok}
	case MsgDeleteROSpec:
		return &DeleteROSpecResponse{LLRPStatus: ok}
	}
	return nil
}

func newTestController() (*ROSpecController, *fakeTransactor) {
	ft := &fakeTransactor{}
	lc := logger.NewClient("test", false, "", "DEBUG")
	return NewROSpecController(ft, lc), ft
}

func TestROSpecController_Lifecycle(t *testing.T) {
	c, ft := newTestController()
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 1}))
	assertState(t, c, 1, ROSpecStateDisabled)

	require.NoError(t, c.Enable(ctx, 1))
	assertState(t, c, 1, ROSpecStateInactive)

	require.NoError(t, c.Start(ctx, 1))
	assertState(t, c, 1, ROSpecStateActive)

	require.NoError(t, c.Stop(ctx, 1))
	assertState(t, c, 1, ROSpecStateInactive)

	require.NoError(t, c.Disable(ctx, 1))
	assertState(t, c, 1, ROSpecStateDisabled)

	require.NoError(t, c.Delete(ctx, 1))
	_, ok := c.StateOf(1)
	assert.False(t, ok, "deleted spec still tracked")

	wantTypes := []MessageType{
		MsgAddROSpec, MsgEnableROSpec, MsgStartROSpec,
		MsgStopROSpec, MsgDisableROSpec, MsgDeleteROSpec,
	}
	require.Len(t, ft.calls, len(wantTypes))
	for i, want := range wantTypes {
		assert.Equal(t, want, ft.calls[i].Type(), "call %d", i)
	}
}

func assertState(t *testing.T, c *ROSpecController, id uint32, want ROSpecState) {
	t.Helper()
	got, ok := c.StateOf(id)
	require.True(t, ok, "spec %d not tracked", id)
	assert.Equal(t, want, got)
}

func TestROSpecController_RejectsInvalidTransitionsLocally(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		setup    func(c *ROSpecController) error
		op       func(c *ROSpecController) error
		sentinel error
	}{
		{
			name:     "enable before add",
			op:       func(c *ROSpecController) error { return c.Enable(ctx, 9) },
			sentinel: ErrUnknownROSpec,
		},
		{
			name:     "delete before add",
			op:       func(c *ROSpecController) error { return c.Delete(ctx, 9) },
			sentinel: ErrUnknownROSpec,
		},
		{
			name:     "start before enable",
			setup:    func(c *ROSpecController) error { return c.Add(ctx, &ROSpec{ROSpecID: 9}) },
			op:       func(c *ROSpecController) error { return c.Start(ctx, 9) },
			sentinel: ErrInvalidStateTransition,
		},
		{
			name: "stop while inactive",
			setup: func(c *ROSpecController) error {
				if err := c.Add(ctx, &ROSpec{ROSpecID: 9}); err != nil {
					return err
				}
				return c.Enable(ctx, 9)
			},
			op:       func(c *ROSpecController) error { return c.Stop(ctx, 9) },
			sentinel: ErrInvalidStateTransition,
		},
		{
			name: "delete while active",
			setup: func(c *ROSpecController) error {
				if err := c.Add(ctx, &ROSpec{ROSpecID: 9}); err != nil {
					return err
				}
				if err := c.Enable(ctx, 9); err != nil {
					return err
				}
				return c.Start(ctx, 9)
			},
			op:       func(c *ROSpecController) error { return c.Delete(ctx, 9) },
			sentinel: ErrInvalidStateTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ft := newTestController()
			if tt.setup != nil {
				require.NoError(t, tt.setup(c))
			}

			sent := len(ft.calls)
			err := tt.op(c)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.Len(t, ft.calls, sent,
				"a locally rejected operation must not reach the reader")
		})
	}
}

func TestROSpecController_NoTrafficOnLocalRejection(t *testing.T) {
	c, ft := newTestController()
	ctx := context.Background()

	err := c.Enable(ctx, 4)
	assert.True(t, errors.Is(err, ErrUnknownROSpec), "got %v", err)
	assert.Empty(t, ft.calls, "local rejection must not send a message")

	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 4}))
	sent := len(ft.calls)

	err = c.Start(ctx, 4)
	assert.True(t, errors.Is(err, ErrInvalidStateTransition), "got %v", err)
	assert.Len(t, ft.calls, sent, "local rejection must not send a message")
}

func TestROSpecController_RejectsReservedAndDuplicateIDs(t *testing.T) {
	c, ft := newTestController()
	ctx := context.Background()

	err := c.Add(ctx, &ROSpec{ROSpecID: AllROSpecs})
	assert.True(t, errors.Is(err, ErrInvalidStateTransition), "got %v", err)
	assert.Empty(t, ft.calls)

	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 2}))
	err = c.Add(ctx, &ROSpec{ROSpecID: 2})
	assert.True(t, errors.Is(err, ErrROSpecExists), "got %v", err)
	assert.Len(t, ft.calls, 1, "duplicate add must not send a message")
}

func TestROSpecController_StateUnchangedOnReaderRefusal(t *testing.T) {
	c, ft := newTestController()
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 3}))

	ft.replies = []Incoming{&EnableROSpecResponse{
		LLRPStatus: LLRPStatus{Status: StatusNoSuchROSpec},
	}}

	err := c.Enable(ctx, 3)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StatusNoSuchROSpec, se.Status())

	// A refused transition leaves the local table where it was.
	assertState(t, c, 3, ROSpecStateDisabled)
}

func TestROSpecController_StateUnchangedOnTransportError(t *testing.T) {
	c, ft := newTestController()
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 5}))

	ft.errs = []error{errors.Wrap(ErrTimeout, "EnableROSpec id 2")}
	err := c.Enable(ctx, 5)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assertState(t, c, 5, ROSpecStateDisabled)

	// The retry is allowed and advances state on success.
	require.NoError(t, c.Enable(ctx, 5))
	assertState(t, c, 5, ROSpecStateInactive)
}

func TestROSpecController_DeleteAllClearsTracking(t *testing.T) {
	c, _ := newTestController()
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 1}))
	require.NoError(t, c.Add(ctx, &ROSpec{ROSpecID: 2}))
	require.NoError(t, c.Enable(ctx, 2))
	require.NoError(t, c.Start(ctx, 2))

	assert.Equal(t, []uint32{1, 2}, c.IDs())

	// The wildcard delete bypasses the Disabled-only rule.
	require.NoError(t, c.Delete(ctx, AllROSpecs))
	assert.Empty(t, c.IDs())
}
