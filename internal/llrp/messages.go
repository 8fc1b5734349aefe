//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"github.com/pkg/errors"
)

// Message types from LLRP v1.0.1 §9.
const (
	MsgGetReaderCapabilities         = MessageType(1)
	MsgGetReaderConfig               = MessageType(2)
	MsgSetReaderConfig               = MessageType(3)
	MsgCloseConnectionResponse       = MessageType(4)
	MsgGetReaderCapabilitiesResponse = MessageType(11)
	MsgGetReaderConfigResponse       = MessageType(12)
	MsgSetReaderConfigResponse       = MessageType(13)
	MsgCloseConnection               = MessageType(14)
	MsgAddROSpec                     = MessageType(20)
	MsgDeleteROSpec                  = MessageType(21)
	MsgStartROSpec                   = MessageType(22)
	MsgStopROSpec                    = MessageType(23)
	MsgEnableROSpec                  = MessageType(24)
	MsgDisableROSpec                 = MessageType(25)
	MsgGetROSpecs                    = MessageType(26)
	MsgAddROSpecResponse             = MessageType(30)
	MsgDeleteROSpecResponse          = MessageType(31)
	MsgStartROSpecResponse           = MessageType(32)
	MsgStopROSpecResponse            = MessageType(33)
	MsgEnableROSpecResponse          = MessageType(34)
	MsgDisableROSpecResponse         = MessageType(35)
	MsgGetROSpecsResponse            = MessageType(36)
	MsgDeleteAccessSpec              = MessageType(41)
	MsgDeleteAccessSpecResponse      = MessageType(51)
	MsgGetReport                     = MessageType(60)
	MsgROAccessReport                = MessageType(61)
	MsgKeepAlive                     = MessageType(62)
	MsgReaderEventNotification       = MessageType(63)
	MsgEnableEventsAndReports        = MessageType(64)
	MsgKeepAliveAck                  = MessageType(72)
	MsgErrorMessage                  = MessageType(100)
	MsgCustomMessage                 = MessageType(1023)
)

// responseFor maps a request type to the response type that answers it.
// Requests without an entry don't solicit a response.
var responseFor = map[MessageType]MessageType{
	MsgGetReaderCapabilities: MsgGetReaderCapabilitiesResponse,
	MsgGetReaderConfig:       MsgGetReaderConfigResponse,
	MsgSetReaderConfig:       MsgSetReaderConfigResponse,
	MsgCloseConnection:       MsgCloseConnectionResponse,
	MsgAddROSpec:             MsgAddROSpecResponse,
	MsgDeleteROSpec:          MsgDeleteROSpecResponse,
	MsgStartROSpec:           MsgStartROSpecResponse,
	MsgStopROSpec:            MsgStopROSpecResponse,
	MsgEnableROSpec:          MsgEnableROSpecResponse,
	MsgDisableROSpec:         MsgDisableROSpecResponse,
	MsgGetROSpecs:            MsgGetROSpecsResponse,
	MsgDeleteAccessSpec:      MsgDeleteAccessSpecResponse,
	MsgCustomMessage:         MsgCustomMessage,
}

// Outgoing is any message this package can put on the wire.
type Outgoing interface {
	Type() MessageType
	encodeBody(d Dialect) ([]byte, error)
}

// Incoming is any message this package can take off the wire.
type Incoming interface {
	Type() MessageType
	decodeBody(d Dialect, body []byte) error
}

// Responder is an Incoming that carries an LLRPStatus.
type Responder interface {
	Incoming
	Status() LLRPStatus
}

// Success reports whether the status indicates the request was accepted.
func (s LLRPStatus) Success() bool { return s.Status == StatusSuccess }

// EncodeMessage serializes a message for the wire:
// the body first, then a header patched with the true total length.
func EncodeMessage(m Outgoing, id uint32, d Dialect) ([]byte, error) {
	body, err := m.encodeBody(d)
	if err != nil {
		return nil, errors.WithMessagef(err, "encoding %v", m.Type())
	}
	return append(EncodeHeader(m.Type(), len(body), id), body...), nil
}

// Frame is one complete message as framed off the wire,
// not yet decoded into parameters.
type Frame struct {
	Header Header
	Body   []byte
}

// Decode dispatches on the frame's type code and decodes the body.
//
// A type this package doesn't model decodes to *UnknownMessage
// rather than failing, so vendor messages pass through to handlers.
func (f Frame) Decode(d Dialect) (Incoming, error) {
	var m Incoming
	if ctor, ok := incomingCtors[f.Header.Type()]; ok {
		m = ctor()
	} else {
		m = &UnknownMessage{MessageType: f.Header.Type()}
	}

	if err := m.decodeBody(d, f.Body); err != nil {
		return nil, errors.WithMessagef(err, "decoding %v message id %d",
			f.Header.Type(), f.Header.ID())
	}
	return m, nil
}

var incomingCtors = map[MessageType]func() Incoming{
	MsgGetReaderCapabilitiesResponse: func() Incoming { return &GetReaderCapabilitiesResponse{} },
	MsgSetReaderConfigResponse:       func() Incoming { return &SetReaderConfigResponse{} },
	MsgCloseConnectionResponse:       func() Incoming { return &CloseConnectionResponse{} },
	MsgAddROSpecResponse:             func() Incoming { return &AddROSpecResponse{} },
	MsgDeleteROSpecResponse:          func() Incoming { return &DeleteROSpecResponse{} },
	MsgStartROSpecResponse:           func() Incoming { return &StartROSpecResponse{} },
	MsgStopROSpecResponse:            func() Incoming { return &StopROSpecResponse{} },
	MsgEnableROSpecResponse:          func() Incoming { return &EnableROSpecResponse{} },
	MsgDisableROSpecResponse:         func() Incoming { return &DisableROSpecResponse{} },
	MsgGetROSpecsResponse:            func() Incoming { return &GetROSpecsResponse{} },
	MsgDeleteAccessSpecResponse:      func() Incoming { return &DeleteAccessSpecResponse{} },
	MsgROAccessReport:                func() Incoming { return &ROAccessReport{} },
	MsgKeepAlive:                     func() Incoming { return &KeepAlive{} },
	MsgKeepAliveAck:                  func() Incoming { return &KeepAliveAck{} },
	MsgReaderEventNotification:       func() Incoming { return &ReaderEventNotification{} },
	MsgErrorMessage:                  func() Incoming { return &ErrorMessage{} },
	MsgCustomMessage:                 func() Incoming { return &CustomMessage{} },
}

// newMsgReader returns a cursor whose truncation failures
// report ErrTruncatedMessage instead of ErrTruncatedParameter.
func newMsgReader(body []byte) *pReader {
	return &pReader{buf: body, truncErr: ErrTruncatedMessage}
}

// finishMessage is finish for a message scope:
// unconsumed bytes after the last parameter are ErrTrailingData.
func (r *pReader) finishMessage(what string) error {
	if r.err != nil {
		return errors.WithMessage(r.err, "decoding "+what)
	}
	if r.pos != len(r.buf) {
		return errors.Wrapf(ErrTrailingData,
			"%s has %d unconsumed bytes", what, len(r.buf)-r.pos)
	}
	return nil
}

// decodeStatus consumes the leading LLRPStatus every response starts with.
func (r *pReader) decodeStatus(what string) (LLRPStatus, error) {
	typ, payload, ok := r.tlv()
	if !ok {
		if r.err != nil {
			return LLRPStatus{}, errors.WithMessage(r.err, "decoding "+what)
		}
		return LLRPStatus{}, errors.Wrapf(ErrMissingParameter,
			"%s has no LLRPStatus", what)
	}
	if typ != ParamLLRPStatus {
		return LLRPStatus{}, errors.Wrapf(ErrMissingParameter,
			"%s opens with parameter type %d, not LLRPStatus", what, typ)
	}
	return decodeLLRPStatus(payload)
}

//
// Capabilities
//

// ReaderCapability selects which capability set GET_READER_CAPABILITIES asks for.
type ReaderCapability uint8

const (
	ReaderCapAll             = ReaderCapability(0)
	ReaderCapGeneralDevice   = ReaderCapability(1)
	ReaderCapLLRP            = ReaderCapability(2)
	ReaderCapRegulatory      = ReaderCapability(3)
	ReaderCapAirProtocolLLRP = ReaderCapability(4)
)

// GetReaderCapabilities asks the reader to describe itself.
type GetReaderCapabilities struct {
	RequestedData ReaderCapability
}

func (*GetReaderCapabilities) Type() MessageType { return MsgGetReaderCapabilities }

func (m *GetReaderCapabilities) encodeBody(Dialect) ([]byte, error) {
	return []byte{uint8(m.RequestedData)}, nil
}

// GetReaderCapabilitiesResponse carries the requested capability
// parameters; they vary enormously between readers, so beyond the
// status they're kept as raw parameters for the caller to pick over.
type GetReaderCapabilitiesResponse struct {
	LLRPStatus   LLRPStatus
	Capabilities []RawParameter
}

func (*GetReaderCapabilitiesResponse) Type() MessageType { return MsgGetReaderCapabilitiesResponse }
func (m *GetReaderCapabilitiesResponse) Status() LLRPStatus {
	return m.LLRPStatus
}

func (m *GetReaderCapabilitiesResponse) decodeBody(_ Dialect, body []byte) error {
	r := newMsgReader(body)

	var err error
	if m.LLRPStatus, err = r.decodeStatus("GetReaderCapabilitiesResponse"); err != nil {
		return err
	}

	for r.err == nil && r.remaining() > 0 {
		typ, payload, ok := r.tlv()
		if !ok {
			break
		}
		m.Capabilities = append(m.Capabilities, RawParameter{
			Type: typ, Data: append([]byte(nil), payload...),
		})
	}
	return r.finishMessage("GetReaderCapabilitiesResponse")
}

//
// Reader configuration
//

// SetReaderConfig applies configuration; this package models the
// keepalive portion and passes vendor extensions through.
type SetReaderConfig struct {
	ResetToFactoryDefaults bool
	KeepaliveSpec          *KeepaliveSpec
	Custom                 []Custom
}

func (*SetReaderConfig) Type() MessageType { return MsgSetReaderConfig }

func (m *SetReaderConfig) encodeBody(Dialect) ([]byte, error) {
	var flags uint8
	if m.ResetToFactoryDefaults {
		flags = 0x80
	}
	body := []byte{flags}
	if m.KeepaliveSpec != nil {
		body = append(body, m.KeepaliveSpec.encode()...)
	}
	for i := range m.Custom {
		body = append(body, m.Custom[i].encode()...)
	}
	return body, nil
}

// SetReaderConfigResponse reports whether the configuration was accepted.
type SetReaderConfigResponse struct {
	LLRPStatus LLRPStatus
}

func (*SetReaderConfigResponse) Type() MessageType    { return MsgSetReaderConfigResponse }
func (m *SetReaderConfigResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *SetReaderConfigResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "SetReaderConfigResponse", body)
}

// decodeStatusOnlyBody handles the many responses whose body
// is exactly one LLRPStatus parameter.
func decodeStatusOnlyBody(s *LLRPStatus, what string, body []byte) error {
	r := newMsgReader(body)
	var err error
	if *s, err = r.decodeStatus(what); err != nil {
		return err
	}
	return r.finishMessage(what)
}

//
// ROSpec lifecycle messages
//

// AddROSpec sends a new ROSpec to the reader; it arrives Disabled.
type AddROSpec struct {
	ROSpec ROSpec
}

func (*AddROSpec) Type() MessageType { return MsgAddROSpec }

func (m *AddROSpec) encodeBody(d Dialect) ([]byte, error) {
	return m.ROSpec.encode(d), nil
}

type AddROSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*AddROSpecResponse) Type() MessageType    { return MsgAddROSpecResponse }
func (m *AddROSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *AddROSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "AddROSpecResponse", body)
}

// encodeROSpecIDBody is the shared body of the five lifecycle commands
// that name an ROSpec by id (0 meaning all).
func encodeROSpecIDBody(id uint32) ([]byte, error) {
	return appendU32(nil, id), nil
}

type EnableROSpec struct {
	ROSpecID uint32
}

func (*EnableROSpec) Type() MessageType { return MsgEnableROSpec }
func (m *EnableROSpec) encodeBody(Dialect) ([]byte, error) {
	return encodeROSpecIDBody(m.ROSpecID)
}

type EnableROSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*EnableROSpecResponse) Type() MessageType    { return MsgEnableROSpecResponse }
func (m *EnableROSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *EnableROSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "EnableROSpecResponse", body)
}

type StartROSpec struct {
	ROSpecID uint32
}

func (*StartROSpec) Type() MessageType { return MsgStartROSpec }
func (m *StartROSpec) encodeBody(Dialect) ([]byte, error) {
	return encodeROSpecIDBody(m.ROSpecID)
}

type StartROSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*StartROSpecResponse) Type() MessageType    { return MsgStartROSpecResponse }
func (m *StartROSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *StartROSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "StartROSpecResponse", body)
}

type StopROSpec struct {
	ROSpecID uint32
}

func (*StopROSpec) Type() MessageType { return MsgStopROSpec }
func (m *StopROSpec) encodeBody(Dialect) ([]byte, error) {
	return encodeROSpecIDBody(m.ROSpecID)
}

type StopROSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*StopROSpecResponse) Type() MessageType    { return MsgStopROSpecResponse }
func (m *StopROSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *StopROSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "StopROSpecResponse", body)
}

type DisableROSpec struct {
	ROSpecID uint32
}

func (*DisableROSpec) Type() MessageType { return MsgDisableROSpec }
func (m *DisableROSpec) encodeBody(Dialect) ([]byte, error) {
	return encodeROSpecIDBody(m.ROSpecID)
}

type DisableROSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*DisableROSpecResponse) Type() MessageType    { return MsgDisableROSpecResponse }
func (m *DisableROSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *DisableROSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "DisableROSpecResponse", body)
}

type DeleteROSpec struct {
	ROSpecID uint32
}

func (*DeleteROSpec) Type() MessageType { return MsgDeleteROSpec }
func (m *DeleteROSpec) encodeBody(Dialect) ([]byte, error) {
	return encodeROSpecIDBody(m.ROSpecID)
}

type DeleteROSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*DeleteROSpecResponse) Type() MessageType    { return MsgDeleteROSpecResponse }
func (m *DeleteROSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *DeleteROSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "DeleteROSpecResponse", body)
}

// GetROSpecs asks the reader for every ROSpec it currently holds.
type GetROSpecs struct{}

func (*GetROSpecs) Type() MessageType                  { return MsgGetROSpecs }
func (*GetROSpecs) encodeBody(Dialect) ([]byte, error) { return nil, nil }

type GetROSpecsResponse struct {
	LLRPStatus LLRPStatus
	ROSpecs    []ROSpec
}

func (*GetROSpecsResponse) Type() MessageType    { return MsgGetROSpecsResponse }
func (m *GetROSpecsResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *GetROSpecsResponse) decodeBody(d Dialect, body []byte) error {
	r := newMsgReader(body)

	var err error
	if m.LLRPStatus, err = r.decodeStatus("GetROSpecsResponse"); err != nil {
		return err
	}

	for r.err == nil && r.remaining() > 0 {
		typ, payload, ok := r.tlv()
		if !ok {
			break
		}
		if typ != ParamROSpec {
			return errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside GetROSpecsResponse", typ)
		}
		spec, err := decodeROSpec(payload, d)
		if err != nil {
			return err
		}
		m.ROSpecs = append(m.ROSpecs, spec)
	}
	return r.finishMessage("GetROSpecsResponse")
}

//
// AccessSpec (delete only; this package doesn't drive access operations,
// but clearing stale AccessSpecs is part of putting a reader in a known state)
//

type DeleteAccessSpec struct {
	AccessSpecID uint32
}

func (*DeleteAccessSpec) Type() MessageType { return MsgDeleteAccessSpec }
func (m *DeleteAccessSpec) encodeBody(Dialect) ([]byte, error) {
	return appendU32(nil, m.AccessSpecID), nil
}

type DeleteAccessSpecResponse struct {
	LLRPStatus LLRPStatus
}

func (*DeleteAccessSpecResponse) Type() MessageType    { return MsgDeleteAccessSpecResponse }
func (m *DeleteAccessSpecResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *DeleteAccessSpecResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "DeleteAccessSpecResponse", body)
}

//
// Reports, events, keepalives
//

// GetReport asks the reader to flush accumulated tag reports.
type GetReport struct{}

func (*GetReport) Type() MessageType                  { return MsgGetReport }
func (*GetReport) encodeBody(Dialect) ([]byte, error) { return nil, nil }

// EnableEventsAndReports releases a reader held in its
// EventsAndReports-suppressed startup state.
type EnableEventsAndReports struct{}

func (*EnableEventsAndReports) Type() MessageType                  { return MsgEnableEventsAndReports }
func (*EnableEventsAndReports) encodeBody(Dialect) ([]byte, error) { return nil, nil }

// ROAccessReport delivers tag observations. It is unsolicited:
// the reader sends it whenever a report trigger fires.
type ROAccessReport struct {
	TagReportData []TagReportData
	Custom        []Custom
	Other         []RawParameter
}

func (*ROAccessReport) Type() MessageType { return MsgROAccessReport }

func (m *ROAccessReport) encodeBody(Dialect) ([]byte, error) {
	var body []byte
	for i := range m.TagReportData {
		body = append(body, m.TagReportData[i].encode()...)
	}
	for i := range m.Custom {
		body = append(body, m.Custom[i].encode()...)
	}
	for i := range m.Other {
		body = append(body, m.Other[i].encode()...)
	}
	return body, nil
}

func (m *ROAccessReport) decodeBody(_ Dialect, body []byte) error {
	r := newMsgReader(body)

	for r.err == nil && r.remaining() > 0 {
		typ, payload, ok := r.tlv()
		if !ok {
			break
		}

		switch typ {
		case ParamTagReportData:
			rt, err := decodeTagReportData(payload)
			if err != nil {
				return err
			}
			m.TagReportData = append(m.TagReportData, rt)
		case ParamCustom:
			c, err := decodeCustom(payload)
			if err != nil {
				return err
			}
			m.Custom = append(m.Custom, c)
		default:
			m.Other = append(m.Other, RawParameter{
				Type: typ, Data: append([]byte(nil), payload...),
			})
		}
	}
	return r.finishMessage("ROAccessReport")
}

// KeepAlive is the reader's liveness probe; it must be answered
// promptly with a KeepAliveAck echoing its message id.
type KeepAlive struct{}

func (*KeepAlive) Type() MessageType                       { return MsgKeepAlive }
func (*KeepAlive) encodeBody(Dialect) ([]byte, error)      { return nil, nil }
func (*KeepAlive) decodeBody(_ Dialect, body []byte) error { return requireEmpty("KeepAlive", body) }

type KeepAliveAck struct{}

func (*KeepAliveAck) Type() MessageType                  { return MsgKeepAliveAck }
func (*KeepAliveAck) encodeBody(Dialect) ([]byte, error) { return nil, nil }
func (*KeepAliveAck) decodeBody(_ Dialect, body []byte) error {
	return requireEmpty("KeepAliveAck", body)
}

func requireEmpty(what string, body []byte) error {
	if len(body) != 0 {
		return errors.Wrapf(ErrTrailingData, "%s has a %d byte body", what, len(body))
	}
	return nil
}

// ReaderEventNotification is the reader's unsolicited event channel;
// one arrives immediately upon connection with a ConnectionAttemptEvent.
type ReaderEventNotification struct {
	ReaderEventNotificationData ReaderEventNotificationData
}

func (*ReaderEventNotification) Type() MessageType { return MsgReaderEventNotification }

func (m *ReaderEventNotification) encodeBody(Dialect) ([]byte, error) {
	return m.ReaderEventNotificationData.encode(), nil
}

func (m *ReaderEventNotification) decodeBody(_ Dialect, body []byte) error {
	r := newMsgReader(body)

	typ, payload, ok := r.tlv()
	if !ok {
		if r.err != nil {
			return errors.WithMessage(r.err, "decoding ReaderEventNotification")
		}
		return errors.Wrap(ErrMissingParameter,
			"ReaderEventNotification has no ReaderEventNotificationData")
	}
	if typ != ParamReaderEventNotificationData {
		return errors.Wrapf(ErrMissingParameter,
			"ReaderEventNotification opens with parameter type %d", typ)
	}

	var err error
	if m.ReaderEventNotificationData, err = decodeReaderEventNotificationData(payload); err != nil {
		return err
	}
	return r.finishMessage("ReaderEventNotification")
}

// CloseConnection asks the reader to end the session cleanly.
type CloseConnection struct{}

func (*CloseConnection) Type() MessageType                  { return MsgCloseConnection }
func (*CloseConnection) encodeBody(Dialect) ([]byte, error) { return nil, nil }

type CloseConnectionResponse struct {
	LLRPStatus LLRPStatus
}

func (*CloseConnectionResponse) Type() MessageType    { return MsgCloseConnectionResponse }
func (m *CloseConnectionResponse) Status() LLRPStatus { return m.LLRPStatus }

func (m *CloseConnectionResponse) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "CloseConnectionResponse", body)
}

// ErrorMessage is the reader's reply to a request it couldn't even parse.
type ErrorMessage struct {
	LLRPStatus LLRPStatus
}

func (*ErrorMessage) Type() MessageType    { return MsgErrorMessage }
func (m *ErrorMessage) Status() LLRPStatus { return m.LLRPStatus }

func (m *ErrorMessage) decodeBody(_ Dialect, body []byte) error {
	return decodeStatusOnlyBody(&m.LLRPStatus, "ErrorMessage", body)
}

// CustomMessage is the vendor extension message (type 1023):
// a 4-byte vendor PEN, a 1-byte subtype, then vendor-defined data.
type CustomMessage struct {
	VendorID uint32
	Subtype  uint8
	Data     []byte
}

func (*CustomMessage) Type() MessageType { return MsgCustomMessage }

func (m *CustomMessage) encodeBody(Dialect) ([]byte, error) {
	body := appendU32(nil, m.VendorID)
	body = append(body, m.Subtype)
	return append(body, m.Data...), nil
}

func (m *CustomMessage) decodeBody(_ Dialect, body []byte) error {
	r := newMsgReader(body)
	m.VendorID = r.u32()
	m.Subtype = r.u8()
	m.Data = r.bytes(r.remaining())
	return r.finishMessage("CustomMessage")
}

// UnknownMessage preserves a message type this package doesn't model.
type UnknownMessage struct {
	MessageType MessageType
	Data        []byte
}

func (m *UnknownMessage) Type() MessageType { return m.MessageType }

func (m *UnknownMessage) decodeBody(_ Dialect, body []byte) error {
	m.Data = append([]byte(nil), body...)
	return nil
}
