//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"strconv"

	"github.com/pkg/errors"
)

// Wire-level sentinels; structurally invalid data always fails decoding
// with one of these (possibly wrapped with context).
var (
	ErrMalformedHeader       = errors.New("malformed message header")
	ErrInvalidLength         = errors.New("invalid parameter length")
	ErrTruncatedParameter    = errors.New("parameter extends past available data")
	ErrTruncatedMessage      = errors.New("message body ends before its declared parameters")
	ErrTrailingData          = errors.New("unconsumed bytes after final parameter")
	ErrUnknownTVTag          = errors.New("unknown TV parameter tag")
	ErrParamLengthMismatch   = errors.New("parameter decoder consumed a different length than declared")
	ErrMissingParameter      = errors.New("message is missing a required parameter")
	ErrUnexpectedMessageType = errors.New("unexpected message type")
)

// Connection-level sentinels.
var (
	ErrConnectionClosed   = errors.New("connection closed")
	ErrMissingReaderEvent = errors.New("reader did not send its initial event notification")
	ErrHandlerExists      = errors.New("a handler is already registered for that message type")
)

// ROSpec lifecycle sentinels; these are raised by local precondition
// checks and never correspond to reader traffic.
var (
	ErrROSpecExists           = errors.New("an ROSpec with that id is already tracked")
	ErrUnknownROSpec          = errors.New("no tracked ROSpec with that id")
	ErrInvalidStateTransition = errors.New("ROSpec is not in a valid state for that transition")
)

// StatusCode is an LLRP status code, as carried in an LLRPStatus parameter
// (LLRP v1.0.1 §14.2.1).
type StatusCode uint16

const (
	StatusSuccess = StatusCode(0)

	// Message/parameter errors.
	StatusParameterError       = StatusCode(100)
	StatusFieldInvalid         = StatusCode(101)
	StatusUnexpectedParameter  = StatusCode(102)
	StatusMissingParameter     = StatusCode(103)
	StatusDuplicateParameter   = StatusCode(104)
	StatusOverflowParameter    = StatusCode(105)
	StatusOverflowField        = StatusCode(106)
	StatusUnknownParameter     = StatusCode(107)
	StatusUnknownField         = StatusCode(108)
	StatusUnsupportedMessage   = StatusCode(109)
	StatusUnsupportedVersion   = StatusCode(110)
	StatusUnsupportedParameter = StatusCode(111)

	// ROSpec/AccessSpec errors.
	StatusNoSuchROSpec            = StatusCode(200)
	StatusNoSuchAccessSpec        = StatusCode(201)
	StatusROSpecCurrentlyDisabled = StatusCode(202)
	StatusROSpecCurrentlyEnabled  = StatusCode(203)
	StatusNoMoreROSpecs           = StatusCode(204)
	StatusNoMoreAccessSpecs       = StatusCode(205)
	StatusROSpecNotConfigured     = StatusCode(208)
	StatusAccessSpecNotConfigured = StatusCode(209)

	// Device errors.
	StatusDeviceError           = StatusCode(300)
	StatusOutOfRange            = StatusCode(301)
	StatusNoAntennaConnected    = StatusCode(302)
	StatusTemperatureTooHigh    = StatusCode(303)
	StatusDeviceOverheated      = StatusCode(304)
	StatusInitializationFailure = StatusCode(305)

	// Air protocol errors.
	StatusInvalidFrequency  = StatusCode(400)
	StatusInvalidAntennaID  = StatusCode(401)
	StatusInvalidPowerLevel = StatusCode(402)
)

var statusNames = map[StatusCode]string{
	StatusSuccess:                 "Success",
	StatusParameterError:          "ParameterError",
	StatusFieldInvalid:            "FieldInvalid",
	StatusUnexpectedParameter:     "UnexpectedParameter",
	StatusMissingParameter:        "MissingParameter",
	StatusDuplicateParameter:      "DuplicateParameter",
	StatusOverflowParameter:       "OverflowParameter",
	StatusOverflowField:           "OverflowField",
	StatusUnknownParameter:        "UnknownParameter",
	StatusUnknownField:            "UnknownField",
	StatusUnsupportedMessage:      "UnsupportedMessage",
	StatusUnsupportedVersion:      "UnsupportedVersion",
	StatusUnsupportedParameter:    "UnsupportedParameter",
	StatusNoSuchROSpec:            "NoSuchROSpec",
	StatusNoSuchAccessSpec:        "NoSuchAccessSpec",
	StatusROSpecCurrentlyDisabled: "ROSpecCurrentlyDisabled",
	StatusROSpecCurrentlyEnabled:  "ROSpecCurrentlyEnabled",
	StatusNoMoreROSpecs:           "NoMoreROSpecs",
	StatusNoMoreAccessSpecs:       "NoMoreAccessSpecs",
	StatusROSpecNotConfigured:     "ROSpecNotConfigured",
	StatusAccessSpecNotConfigured: "AccessSpecNotConfigured",
	StatusDeviceError:             "DeviceError",
	StatusOutOfRange:              "OutOfRange",
	StatusNoAntennaConnected:      "NoAntennaConnected",
	StatusTemperatureTooHigh:      "TemperatureTooHigh",
	StatusDeviceOverheated:        "DeviceOverheated",
	StatusInitializationFailure:   "InitializationFailure",
	StatusInvalidFrequency:        "InvalidFrequency",
	StatusInvalidAntennaID:        "InvalidAntennaID",
	StatusInvalidPowerLevel:       "InvalidPowerLevel",
}

func (sc StatusCode) String() string {
	if s, ok := statusNames[sc]; ok {
		return s
	}
	return "UnknownStatus(" + strconv.Itoa(int(sc)) + ")"
}

// IsDeviceError reports whether the code is in the device error family.
func (sc StatusCode) IsDeviceError() bool { return sc >= 300 && sc < 400 }

// LLRPStatus is the status parameter attached to every *_Response.
type LLRPStatus struct {
	Status           StatusCode
	ErrorDescription string
}

// Err returns nil if the status indicates success,
// and a *StatusError otherwise.
func (s LLRPStatus) Err() error {
	if s.Status == StatusSuccess {
		return nil
	}
	return &StatusError{status: s}
}

// StatusError wraps a non-success LLRPStatus returned by a reader.
type StatusError struct {
	status LLRPStatus
}

func (se *StatusError) Error() string {
	msg := "reader returned " + se.status.Status.String()
	if se.status.ErrorDescription != "" {
		msg += ": " + se.status.ErrorDescription
	}
	return msg
}

// Status returns the underlying status code.
func (se *StatusError) Status() StatusCode { return se.status.Status }
