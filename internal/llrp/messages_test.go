//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameOf builds the Frame a listener would produce from raw message bytes.
func frameOf(t *testing.T, raw []byte) Frame {
	t.Helper()
	h, err := DecodeHeader(raw[:HeaderSz])
	require.NoError(t, err)
	require.Len(t, raw, int(h.Length()))
	return Frame{Header: h, Body: raw[HeaderSz:]}
}

func TestEncodeMessage_Header(t *testing.T) {
	raw, err := EncodeMessage(&EnableROSpec{ROSpecID: 7}, 42, Dialect{})
	require.NoError(t, err)

	h, err := DecodeHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, Version1_0_1, h.Version())
	assert.Equal(t, MsgEnableROSpec, h.Type())
	assert.Equal(t, uint32(42), h.ID())
	assert.Equal(t, uint32(len(raw)), h.Length())
	assert.Equal(t, uint32(4), h.BodyLength())
}

func TestAddROSpecResponse_Decode(t *testing.T) {
	body := LLRPStatus{Status: StatusSuccess}.encode()
	raw := append(EncodeHeader(MsgAddROSpecResponse, len(body), 5), body...)

	f := frameOf(t, raw)
	assert.Equal(t, uint32(5), f.Header.ID())

	m, err := f.Decode(Dialect{})
	require.NoError(t, err)

	resp, ok := m.(*AddROSpecResponse)
	require.True(t, ok, "got %T", m)
	assert.True(t, resp.Status().Success())
}

func TestDecode_NonSuccessStatus(t *testing.T) {
	body := LLRPStatus{
		Status:           StatusROSpecNotConfigured,
		ErrorDescription: "enable before add",
	}.encode()
	raw := append(EncodeHeader(MsgEnableROSpecResponse, len(body), 6), body...)

	m, err := frameOf(t, raw).Decode(Dialect{})
	require.NoError(t, err, "a non-success status is a valid message, not a decode error")

	resp, ok := m.(Responder)
	require.True(t, ok)
	assert.False(t, resp.Status().Success())
	assert.Equal(t, StatusROSpecNotConfigured, resp.Status().Status)
	assert.Equal(t, "enable before add", resp.Status().ErrorDescription)
}

func TestDecode_TrailingData(t *testing.T) {
	body := LLRPStatus{Status: StatusSuccess}.encode()
	body = append(body, 0xAB) // stray byte past the last parameter
	raw := append(EncodeHeader(MsgDeleteROSpecResponse, len(body), 9), body...)

	_, err := frameOf(t, raw).Decode(Dialect{})
	assert.True(t, errors.Is(err, ErrTrailingData), "got %v", err)
}

func TestDecode_TruncatedMessage(t *testing.T) {
	// CustomMessage needs at least 5 body bytes for vendor + subtype.
	raw := append(EncodeHeader(MsgCustomMessage, 3, 11), 0x00, 0x00, 0x65)

	_, err := frameOf(t, raw).Decode(Dialect{})
	assert.True(t, errors.Is(err, ErrTruncatedMessage), "got %v", err)
}

func TestDecode_MissingStatus(t *testing.T) {
	raw := EncodeHeader(MsgStopROSpecResponse, 0, 12)
	_, err := frameOf(t, raw).Decode(Dialect{})
	assert.True(t, errors.Is(err, ErrMissingParameter), "got %v", err)
}

func TestCustomMessage_RoundTrip(t *testing.T) {
	orig := &CustomMessage{
		VendorID: uint32(PENImpinj),
		Subtype:  21,
		Data:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}

	raw, err := EncodeMessage(orig, 13, Dialect{})
	require.NoError(t, err)

	m, err := frameOf(t, raw).Decode(Dialect{})
	require.NoError(t, err)

	got, ok := m.(*CustomMessage)
	require.True(t, ok, "got %T", m)
	assert.Equal(t, orig, got)
}

func TestGetROSpecsResponse_Decode(t *testing.T) {
	spec := testROSpec()

	body := LLRPStatus{Status: StatusSuccess}.encode()
	body = append(body, spec.encode(Dialect{})...)
	raw := append(EncodeHeader(MsgGetROSpecsResponse, len(body), 14), body...)

	m, err := frameOf(t, raw).Decode(Dialect{})
	require.NoError(t, err)

	resp, ok := m.(*GetROSpecsResponse)
	require.True(t, ok, "got %T", m)
	assert.True(t, resp.Status().Success())
	require.Len(t, resp.ROSpecs, 1)
	assert.Equal(t, *spec, resp.ROSpecs[0])
}

func TestROAccessReport_RoundTrip(t *testing.T) {
	antenna := AntennaID(1)
	rssi := PeakRSSI(-52)
	last := LastSeenUTC(1600000000000000)
	epc, err := hex.DecodeString("e200001a2c0000000000beef")
	require.NoError(t, err)

	orig := &ROAccessReport{
		TagReportData: []TagReportData{{
			EPC96:       EPC96{EPC: epc},
			AntennaID:   &antenna,
			PeakRSSI:    &rssi,
			LastSeenUTC: &last,
		}},
	}

	raw, err := EncodeMessage(orig, 15, Dialect{})
	require.NoError(t, err)

	m, err := frameOf(t, raw).Decode(Dialect{})
	require.NoError(t, err)

	got, ok := m.(*ROAccessReport)
	require.True(t, ok, "got %T", m)
	assert.Equal(t, orig, got)
}

func TestReaderEventNotification_RoundTrip(t *testing.T) {
	orig := &ReaderEventNotification{
		ReaderEventNotificationData: ReaderEventNotificationData{
			UTCTimestamp:      1600000000000000,
			ConnectionAttempt: &ConnectionAttemptEvent{Status: ConnSuccess},
		},
	}

	raw, err := EncodeMessage(orig, 0, Dialect{})
	require.NoError(t, err)

	m, err := frameOf(t, raw).Decode(Dialect{})
	require.NoError(t, err)

	got, ok := m.(*ReaderEventNotification)
	require.True(t, ok, "got %T", m)
	assert.Equal(t, orig, got)
}

func TestKeepAlive_RejectsBody(t *testing.T) {
	raw := append(EncodeHeader(MsgKeepAlive, 2, 16), 0x00, 0x00)
	_, err := frameOf(t, raw).Decode(Dialect{})
	assert.True(t, errors.Is(err, ErrTrailingData), "got %v", err)
}

func TestDecode_UnknownType(t *testing.T) {
	raw := append(EncodeHeader(MessageType(700), 2, 17), 0xCA, 0xFE)

	m, err := frameOf(t, raw).Decode(Dialect{})
	require.NoError(t, err)

	got, ok := m.(*UnknownMessage)
	require.True(t, ok, "got %T", m)
	assert.Equal(t, MessageType(700), got.Type())
	assert.Equal(t, []byte{0xCA, 0xFE}, got.Data)
}

func TestResponseFor(t *testing.T) {
	tests := []struct {
		req, resp MessageType
	}{
		{MsgAddROSpec, MsgAddROSpecResponse},
		{MsgEnableROSpec, MsgEnableROSpecResponse},
		{MsgStartROSpec, MsgStartROSpecResponse},
		{MsgStopROSpec, MsgStopROSpecResponse},
		{MsgDisableROSpec, MsgDisableROSpecResponse},
		{MsgDeleteROSpec, MsgDeleteROSpecResponse},
		{MsgGetROSpecs, MsgGetROSpecsResponse},
		{MsgSetReaderConfig, MsgSetReaderConfigResponse},
		{MsgCloseConnection, MsgCloseConnectionResponse},
		{MsgDeleteAccessSpec, MsgDeleteAccessSpecResponse},
		{MsgCustomMessage, MsgCustomMessage},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.resp, responseFor[tt.req], "request %v", tt.req)
	}

	_, solicits := responseFor[MsgGetReport]
	assert.False(t, solicits, "GET_REPORT is answered by an unsolicited RO_ACCESS_REPORT")
}
