//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDevice drives the far side of a net.Pipe, playing the reader's role.
// Pipe writes are synchronous, so everything it sends must be read
// by the Reader under test before the next step proceeds.
type testDevice struct {
	t    *testing.T
	conn net.Conn
}

func (td *testDevice) writeRaw(raw []byte) {
	for len(raw) > 0 {
		n, err := td.conn.Write(raw)
		if err != nil {
			return // the Reader hung up; let the test's asserts report it
		}
		raw = raw[n:]
	}
}

func (td *testDevice) readFrame() (Frame, error) {
	hdr := make([]byte, HeaderSz)
	if _, err := io.ReadFull(td.conn, hdr); err != nil {
		return Frame{}, err
	}
	h, err := DecodeHeader(hdr)
	if err != nil {
		return Frame{}, err
	}
	body := make([]byte, h.BodyLength())
	if _, err := io.ReadFull(td.conn, body); err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Body: body}, nil
}

func (td *testDevice) sendConnectEvent(status ConnAttemptStatus) {
	raw, err := EncodeMessage(&ReaderEventNotification{
		ReaderEventNotificationData: ReaderEventNotificationData{
			UTCTimestamp:      1600000000000000,
			ConnectionAttempt: &ConnectionAttemptEvent{Status: status},
		},
	}, 0, Dialect{})
	require.NoError(td.t, err)
	td.writeRaw(raw)
}

// respondStatus answers one request frame with a status-only response.
func (td *testDevice) respondStatus(typ MessageType, id uint32, status StatusCode) {
	body := LLRPStatus{Status: status}.encode()
	td.writeRaw(append(EncodeHeader(typ, len(body), id), body...))
}

// connected returns a Reader that has completed its handshake,
// plus the device driving the other end of the pipe.
func connected(t *testing.T, opts ...ReaderOpt) (*Reader, *testDevice) {
	t.Helper()

	client, server := net.Pipe()
	td := &testDevice{t: t, conn: server}
	r := NewReader(client, opts...)

	go td.sendConnectEvent(ConnSuccess)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Connect(ctx))

	t.Cleanup(func() {
		_ = r.Close()
		_ = server.Close()
	})
	return r, td
}

func TestConnect_RefusesNonEventFirstMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	td := &testDevice{t: t, conn: server}
	go td.writeRaw(EncodeHeader(MsgKeepAlive, 0, 1))

	r := NewReader(client)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := r.Connect(ctx)
	assert.True(t, errors.Is(err, ErrMissingReaderEvent), "got %v", err)
}

func TestConnect_RefusesFailedAttempt(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	td := &testDevice{t: t, conn: server}
	go td.sendConnectEvent(ConnExistsClientInitiated)

	r := NewReader(client)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := r.Connect(ctx)
	assert.True(t, errors.Is(err, ErrMissingReaderEvent), "got %v", err)
}

func TestTransact_RoundTrip(t *testing.T) {
	r, td := connected(t)

	go func() {
		f, err := td.readFrame()
		if err != nil {
			return
		}
		assert.Equal(t, MsgEnableROSpec, f.Header.Type())
		td.respondStatus(MsgEnableROSpecResponse, f.Header.ID(), StatusSuccess)
	}()

	resp, err := r.Transact(context.Background(), &EnableROSpec{ROSpecID: 1})
	require.NoError(t, err)

	reply, ok := resp.(*EnableROSpecResponse)
	require.True(t, ok, "got %T", resp)
	assert.True(t, reply.Status().Success())
}

func TestTransact_ErrorMessageResolvesRequest(t *testing.T) {
	r, td := connected(t)

	go func() {
		f, err := td.readFrame()
		if err != nil {
			return
		}
		// An unparseable request is answered by ERROR_MESSAGE
		// with the same id instead of the usual response type.
		td.respondStatus(MsgErrorMessage, f.Header.ID(), StatusUnsupportedMessage)
	}()

	resp, err := r.Transact(context.Background(), &StartROSpec{ROSpecID: 1})
	require.NoError(t, err)

	em, ok := resp.(*ErrorMessage)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, StatusUnsupportedMessage, em.Status().Status)
}

func TestTransact_Timeout(t *testing.T) {
	r, td := connected(t)

	// The device swallows the first request and answers only the second.
	go func() {
		if _, err := td.readFrame(); err != nil {
			return
		}
		f, err := td.readFrame()
		if err != nil {
			return
		}
		td.respondStatus(MsgDisableROSpecResponse, f.Header.ID(), StatusSuccess)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := r.Transact(ctx, &DisableROSpec{ROSpecID: 1})
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)

	// The abandoned transaction must not poison the next one.
	resp, err := r.Transact(context.Background(), &DisableROSpec{ROSpecID: 1})
	require.NoError(t, err)
	assert.True(t, resp.(*DisableROSpecResponse).Status().Success())
}

func TestKeepalive_AckedDuringTransact(t *testing.T) {
	r, td := connected(t)

	go func() {
		f, err := td.readFrame()
		if err != nil {
			return
		}

		// Interleave a keepalive before answering; the ack must come
		// back with the keepalive's id and must not resolve the request.
		td.writeRaw(EncodeHeader(MsgKeepAlive, 0, 999))
		ack, err := td.readFrame()
		if err != nil {
			return
		}
		assert.Equal(t, MsgKeepAliveAck, ack.Header.Type())
		assert.Equal(t, uint32(999), ack.Header.ID())
		assert.Zero(t, ack.Header.BodyLength())

		td.respondStatus(MsgStopROSpecResponse, f.Header.ID(), StatusSuccess)
	}()

	resp, err := r.Transact(context.Background(), &StopROSpec{ROSpecID: 1})
	require.NoError(t, err)
	assert.True(t, resp.(*StopROSpecResponse).Status().Success())
}

func TestKeepalive_IdleProbe(t *testing.T) {
	_, td := connected(t, WithKeepaliveInterval(20*time.Millisecond))

	f, err := td.readFrame()
	require.NoError(t, err)
	assert.Equal(t, MsgKeepAlive, f.Header.Type())
	assert.Zero(t, f.Header.BodyLength())
}

func TestClose_FailsInFlightTransact(t *testing.T) {
	r, td := connected(t)

	got := make(chan error, 1)
	go func() {
		_, err := r.Transact(context.Background(), &GetROSpecs{})
		got <- err
	}()

	// Take the request off the wire, then hang up instead of answering.
	_, err := td.readFrame()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	select {
	case err := <-got:
		assert.True(t, errors.Is(err, ErrConnectionClosed), "got %v", err)
	case <-time.After(time.Second):
		t.Fatal("transact did not resolve after close")
	}

	_, err = r.Transact(context.Background(), &GetROSpecs{})
	assert.True(t, errors.Is(err, ErrConnectionClosed), "got %v", err)
}

func TestHandler_ReceivesUnsolicitedReport(t *testing.T) {
	r, td := connected(t)

	reports := make(chan *ROAccessReport, 1)
	require.NoError(t, r.AddHandler(MsgROAccessReport, func(msg Incoming) {
		if rep, ok := msg.(*ROAccessReport); ok {
			reports <- rep
		}
	}))

	antenna := AntennaID(1)
	raw, err := EncodeMessage(&ROAccessReport{
		TagReportData: []TagReportData{{
			EPCData:   EPCData{EPC: []byte{0xBE, 0xEF}},
			AntennaID: &antenna,
		}},
	}, 100, Dialect{})
	require.NoError(t, err)
	go td.writeRaw(raw)

	select {
	case rep := <-reports:
		require.Len(t, rep.TagReportData, 1)
		assert.Equal(t, []byte{0xBE, 0xEF}, rep.TagReportData[0].EPC())
	case <-time.After(time.Second):
		t.Fatal("handler never received the report")
	}
}

func TestAddHandler_RejectsDuplicate(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	r := NewReader(client)
	require.NoError(t, r.AddHandler(MsgROAccessReport, func(Incoming) {}))

	err := r.AddHandler(MsgROAccessReport, func(Incoming) {})
	assert.True(t, errors.Is(err, ErrHandlerExists), "got %v", err)

	r.RemoveHandler(MsgROAccessReport)
	assert.NoError(t, r.AddHandler(MsgROAccessReport, func(Incoming) {}))
}

func TestShutdown_SendsCloseConnection(t *testing.T) {
	r, td := connected(t)

	go func() {
		f, err := td.readFrame()
		if err != nil {
			return
		}
		assert.Equal(t, MsgCloseConnection, f.Header.Type())
		td.respondStatus(MsgCloseConnectionResponse, f.Header.ID(), StatusSuccess)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	_, err := r.Transact(context.Background(), &GetROSpecs{})
	assert.True(t, errors.Is(err, ErrConnectionClosed), "got %v", err)
}
