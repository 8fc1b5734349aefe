//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// TLV parameter types from LLRP v1.0.1.
const (
	ParamUTCTimestamp                ParamType = 128
	ParamUptime                      ParamType = 129
	ParamGeneralDeviceCapabilities   ParamType = 137
	ParamLLRPCapabilities            ParamType = 142
	ParamRegulatoryCapabilities      ParamType = 143
	ParamROSpec                      ParamType = 177
	ParamROBoundarySpec              ParamType = 178
	ParamROSpecStartTrigger          ParamType = 179
	ParamPeriodicTriggerValue        ParamType = 180
	ParamGPITriggerValue             ParamType = 181
	ParamROSpecStopTrigger           ParamType = 182
	ParamAISpec                      ParamType = 183
	ParamAISpecStopTrigger           ParamType = 184
	ParamInventoryParameterSpec      ParamType = 186
	ParamKeepaliveSpec               ParamType = 220
	ParamAntennaConfiguration        ParamType = 222
	ParamROReportSpec                ParamType = 237
	ParamTagReportContentSelector    ParamType = 238
	ParamTagReportData               ParamType = 240
	ParamEPCData                     ParamType = 241
	ParamReaderEventNotificationData ParamType = 246
	ParamConnectionAttemptEvent      ParamType = 256
	ParamConnectionCloseEvent        ParamType = 257
	ParamAntennaEvent                ParamType = 258
	ParamReaderExceptionEvent        ParamType = 262
	ParamROSpecEvent                 ParamType = 263
	ParamLLRPStatus                  ParamType = 287
	ParamCustom                      ParamType = 1023
)

// Dialect captures per-reader variations in parameter numbering.
//
// At least two type codes have been observed in the wild for ROReportSpec
// (0xED on most readers, 0xDE on some), so the registry is table-driven
// per connection rather than hardcoded to one reader's numbering.
type Dialect struct {
	// ROReportSpecType overrides the TLV type used for ROReportSpec.
	// Zero means the standard value, 237.
	ROReportSpecType ParamType
}

func (d Dialect) roReportSpecType() ParamType {
	if d.ROReportSpecType == 0 {
		return ParamROReportSpec
	}
	return d.ROReportSpecType
}

// Millisecs32 is a duration in milliseconds.
type Millisecs32 uint32

// Micros64 is a UTC timestamp in microseconds since the Unix epoch.
type Micros64 uint64

// Values carried by TV parameters in tag reports.
type (
	AntennaID                uint16
	PeakRSSI                 int8
	ChannelIndex             uint16
	TagSeenCount             uint16
	ROSpecID                 uint32
	SpecIndex                uint16
	InventoryParameterSpecID uint16
	FirstSeenUTC             Micros64
	LastSeenUTC              Micros64
	C1G2CRC                  uint16
	C1G2PC                   uint16
	AccessSpecID             uint32
)

// RawParameter preserves a TLV parameter this package doesn't model.
//
// Unknown TLV types are carried through opaquely rather than rejected,
// so extensions and newer readers don't break decoding.
type RawParameter struct {
	Type ParamType
	Data []byte
}

func (p RawParameter) encode() []byte { return EncodeTLV(p.Type, p.Data) }

// Custom is the vendor extension parameter (type 1023):
// a 4-byte vendor PEN, a 4-byte subtype, then vendor-defined data.
type Custom struct {
	VendorID uint32
	Subtype  CustomParamSubtype
	Data     []byte
}

// CustomParamSubtype is a vendor-scoped parameter subtype.
type CustomParamSubtype = uint32

func (c Custom) encode() []byte {
	payload := make([]byte, 8+len(c.Data))
	binary.BigEndian.PutUint32(payload[0:4], c.VendorID)
	binary.BigEndian.PutUint32(payload[4:8], c.Subtype)
	copy(payload[8:], c.Data)
	return EncodeTLV(ParamCustom, payload)
}

func decodeCustom(payload []byte) (Custom, error) {
	if len(payload) < 8 {
		return Custom{}, errors.Wrapf(ErrInvalidLength,
			"Custom parameter payload is %d bytes; needs at least 8", len(payload))
	}
	return Custom{
		VendorID: binary.BigEndian.Uint32(payload[0:4]),
		Subtype:  binary.BigEndian.Uint32(payload[4:8]),
		Data:     append([]byte(nil), payload[8:]...),
	}, nil
}

//
// Sticky-error cursor over a single parameter scope.
//
// Composite decoders slice each sub-parameter to exactly its declared
// length before dispatching; a sub-decoder is never trusted to stop
// on its own, and `finish` rejects a scope that wasn't consumed exactly.
//

type pReader struct {
	buf []byte
	pos int
	err error

	// truncErr is the sentinel wrapped when the scope runs short of bytes;
	// parameter scopes use ErrTruncatedParameter, message bodies
	// substitute ErrTruncatedMessage.
	truncErr error
}

func newPReader(buf []byte) *pReader { return &pReader{buf: buf} }

func (r *pReader) remaining() int { return len(r.buf) - r.pos }

func (r *pReader) fail(err error, msg string) {
	if r.err == nil {
		r.err = errors.Wrap(err, msg)
	}
}

func (r *pReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.remaining() < n {
		sentinel := r.truncErr
		if sentinel == nil {
			sentinel = ErrTruncatedParameter
		}
		r.err = errors.Wrapf(sentinel,
			"need %d more bytes, have %d", n, r.remaining())
		return false
	}
	return true
}

func (r *pReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *pReader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

func (r *pReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *pReader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}

func (r *pReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := append([]byte(nil), r.buf[r.pos:r.pos+n]...)
	r.pos += n
	return v
}

// peekTV reports whether the next parameter is TV-encoded.
func (r *pReader) peekTV() bool {
	return r.err == nil && r.remaining() > 0 && isTV(r.buf[r.pos])
}

// tv consumes one TV parameter, returning its tag and value.
func (r *pReader) tv() (tag uint8, value []byte, ok bool) {
	if r.err != nil {
		return
	}
	tag, value, n, err := DecodeTV(r.buf[r.pos:])
	if err != nil {
		r.err = err
		return
	}
	r.pos += n
	return tag, value, true
}

// tlv consumes one TLV parameter, returning its type and payload slice.
// The cursor advances by exactly the declared length.
func (r *pReader) tlv() (typ ParamType, payload []byte, ok bool) {
	if r.err != nil || r.remaining() == 0 {
		return
	}
	typ, length, err := DecodeTLVHeader(r.buf[r.pos:])
	if err != nil {
		r.err = err
		return
	}
	payload = r.buf[r.pos+tlvHeaderSz : r.pos+length]
	r.pos += length
	return typ, payload, true
}

// finish returns the cursor's error, or ErrParamLengthMismatch
// if the scope wasn't consumed exactly.
func (r *pReader) finish(what string) error {
	if r.err != nil {
		return errors.WithMessage(r.err, "decoding "+what)
	}
	if r.pos != len(r.buf) {
		return errors.Wrapf(ErrParamLengthMismatch,
			"%s consumed %d of %d declared bytes", what, r.pos, len(r.buf))
	}
	return nil
}

// Append-style big-endian writers used by the encoders.

func appendU16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendU64(b []byte, v uint64) []byte {
	return appendU32(appendU32(b, uint32(v>>32)), uint32(v))
}

//
// LLRPStatus
//

func (s LLRPStatus) encode() []byte {
	payload := appendU16(nil, uint16(s.Status))
	payload = appendU16(payload, uint16(len(s.ErrorDescription)))
	payload = append(payload, s.ErrorDescription...)
	return EncodeTLV(ParamLLRPStatus, payload)
}

func decodeLLRPStatus(payload []byte) (LLRPStatus, error) {
	r := newPReader(payload)
	s := LLRPStatus{Status: StatusCode(r.u16())}
	descLen := int(r.u16())
	s.ErrorDescription = string(r.bytes(descLen))

	// Some dialects pad the description to a word boundary;
	// anything but zeros after the declared description is an error.
	for r.err == nil && r.remaining() > 0 {
		if r.u8() != 0 {
			return s, errors.Wrap(ErrParamLengthMismatch,
				"LLRPStatus has non-padding bytes after its description")
		}
	}
	return s, r.finish("LLRPStatus")
}

//
// EPCData and EPC96
//

// EPCData is the variable-length EPC parameter (TLV 241).
// Its payload opens with a 2-byte bit count before the EPC proper.
type EPCData struct {
	EPC []byte
}

func (e EPCData) encode() []byte {
	payload := appendU16(nil, uint16(len(e.EPC)*8))
	payload = append(payload, e.EPC...)
	return EncodeTLV(ParamEPCData, payload)
}

// decodeEPCData extracts the EPC from an EPCData payload.
//
// The EPC's byte length comes from the leading bit count;
// trailing zero padding up to the declared length is tolerated
// because some readers pad the parameter to a word boundary.
func decodeEPCData(payload []byte) (EPCData, error) {
	r := newPReader(payload)
	bits := int(r.u16())
	e := EPCData{EPC: r.bytes((bits + 7) / 8)}

	for r.err == nil && r.remaining() > 0 {
		if r.u8() != 0 {
			return e, errors.Wrap(ErrParamLengthMismatch,
				"EPCData has non-padding bytes after the EPC")
		}
	}
	return e, r.finish("EPCData")
}

// EPC96 is the fixed 96-bit EPC parameter (TV 13).
type EPC96 struct {
	EPC []byte // exactly 12 bytes when set
}

//
// ROSpec and sub-parameters
//

// ROSpecState is the reader-side state of an ROSpec.
type ROSpecState uint8

const (
	ROSpecStateDisabled = ROSpecState(0)
	ROSpecStateInactive = ROSpecState(1)
	ROSpecStateActive   = ROSpecState(2)
)

func (s ROSpecState) String() string {
	switch s {
	case ROSpecStateDisabled:
		return "Disabled"
	case ROSpecStateInactive:
		return "Inactive"
	case ROSpecStateActive:
		return "Active"
	}
	return "Unknown"
}

// ROSpec describes a reader operation: when to run (boundary),
// which antennas to inventory (AISpecs), and how to report.
type ROSpec struct {
	ROSpecID           uint32 // 0 is reserved as the "all specs" wildcard
	Priority           uint8
	ROSpecCurrentState ROSpecState
	ROBoundarySpec     ROBoundarySpec
	AISpecs            []AISpec
	ROReportSpec       *ROReportSpec
	Custom             []Custom
}

func (s *ROSpec) encode(d Dialect) []byte {
	payload := appendU32(nil, s.ROSpecID)
	payload = append(payload, s.Priority, uint8(s.ROSpecCurrentState))
	payload = append(payload, s.ROBoundarySpec.encode()...)
	for i := range s.AISpecs {
		payload = append(payload, s.AISpecs[i].encode()...)
	}
	if s.ROReportSpec != nil {
		payload = append(payload, s.ROReportSpec.encode(d)...)
	}
	for i := range s.Custom {
		payload = append(payload, s.Custom[i].encode()...)
	}
	return EncodeTLV(ParamROSpec, payload)
}

func decodeROSpec(payload []byte, d Dialect) (ROSpec, error) {
	r := newPReader(payload)
	s := ROSpec{
		ROSpecID:           r.u32(),
		Priority:           r.u8(),
		ROSpecCurrentState: ROSpecState(r.u8()),
	}

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}

		var err error
		switch typ {
		case ParamROBoundarySpec:
			s.ROBoundarySpec, err = decodeROBoundarySpec(sub)
		case ParamAISpec:
			var ai AISpec
			ai, err = decodeAISpec(sub)
			s.AISpecs = append(s.AISpecs, ai)
		case d.roReportSpecType():
			var rs ROReportSpec
			rs, err = decodeROReportSpec(sub)
			s.ROReportSpec = &rs
		case ParamCustom:
			var c Custom
			c, err = decodeCustom(sub)
			s.Custom = append(s.Custom, c)
		default:
			return s, errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside ROSpec", typ)
		}
		if err != nil {
			return s, err
		}
	}
	return s, r.finish("ROSpec")
}

// ROBoundarySpec pairs an ROSpec's start and stop triggers.
type ROBoundarySpec struct {
	StartTrigger ROSpecStartTrigger
	StopTrigger  ROSpecStopTrigger
}

func (b ROBoundarySpec) encode() []byte {
	payload := b.StartTrigger.encode()
	payload = append(payload, b.StopTrigger.encode()...)
	return EncodeTLV(ParamROBoundarySpec, payload)
}

func decodeROBoundarySpec(payload []byte) (ROBoundarySpec, error) {
	r := newPReader(payload)
	var b ROBoundarySpec

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}

		var err error
		switch typ {
		case ParamROSpecStartTrigger:
			b.StartTrigger, err = decodeROSpecStartTrigger(sub)
		case ParamROSpecStopTrigger:
			b.StopTrigger, err = decodeROSpecStopTrigger(sub)
		default:
			err = errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside ROBoundarySpec", typ)
		}
		if err != nil {
			return b, err
		}
	}
	return b, r.finish("ROBoundarySpec")
}

// ROSpecStartTriggerType selects when an enabled ROSpec becomes active.
type ROSpecStartTriggerType uint8

const (
	ROStartTriggerNone      = ROSpecStartTriggerType(0)
	ROStartTriggerImmediate = ROSpecStartTriggerType(1)
	ROStartTriggerPeriodic  = ROSpecStartTriggerType(2)
	ROStartTriggerGPI       = ROSpecStartTriggerType(3)
)

type ROSpecStartTrigger struct {
	Trigger         ROSpecStartTriggerType
	PeriodicTrigger *PeriodicTriggerValue
	GPITrigger      *GPITriggerValue
}

func (t ROSpecStartTrigger) encode() []byte {
	payload := []byte{uint8(t.Trigger)}
	if t.Trigger == ROStartTriggerPeriodic && t.PeriodicTrigger != nil {
		payload = append(payload, t.PeriodicTrigger.encode()...)
	}
	if t.Trigger == ROStartTriggerGPI && t.GPITrigger != nil {
		payload = append(payload, t.GPITrigger.encode()...)
	}
	return EncodeTLV(ParamROSpecStartTrigger, payload)
}

func decodeROSpecStartTrigger(payload []byte) (ROSpecStartTrigger, error) {
	r := newPReader(payload)
	t := ROSpecStartTrigger{Trigger: ROSpecStartTriggerType(r.u8())}

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}

		var err error
		switch typ {
		case ParamPeriodicTriggerValue:
			var p PeriodicTriggerValue
			p, err = decodePeriodicTriggerValue(sub)
			t.PeriodicTrigger = &p
		case ParamGPITriggerValue:
			var g GPITriggerValue
			g, err = decodeGPITriggerValue(sub)
			t.GPITrigger = &g
		default:
			err = errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside ROSpecStartTrigger", typ)
		}
		if err != nil {
			return t, err
		}
	}
	return t, r.finish("ROSpecStartTrigger")
}

// PeriodicTriggerValue starts an ROSpec every Period ms,
// Offset ms after it is enabled.
type PeriodicTriggerValue struct {
	Offset Millisecs32
	Period Millisecs32
}

func (p PeriodicTriggerValue) encode() []byte {
	payload := appendU32(nil, uint32(p.Offset))
	payload = appendU32(payload, uint32(p.Period))
	return EncodeTLV(ParamPeriodicTriggerValue, payload)
}

func decodePeriodicTriggerValue(payload []byte) (PeriodicTriggerValue, error) {
	r := newPReader(payload)
	p := PeriodicTriggerValue{
		Offset: Millisecs32(r.u32()),
		Period: Millisecs32(r.u32()),
	}
	return p, r.finish("PeriodicTriggerValue")
}

// GPITriggerValue fires when a GPI port sees the given event state.
type GPITriggerValue struct {
	Port    uint16
	Event   bool
	Timeout Millisecs32
}

func (g GPITriggerValue) encode() []byte {
	payload := appendU16(nil, g.Port)
	var ev uint8
	if g.Event {
		ev = 0x80
	}
	payload = append(payload, ev)
	payload = appendU32(payload, uint32(g.Timeout))
	return EncodeTLV(ParamGPITriggerValue, payload)
}

func decodeGPITriggerValue(payload []byte) (GPITriggerValue, error) {
	r := newPReader(payload)
	g := GPITriggerValue{Port: r.u16()}
	g.Event = r.u8()&0x80 != 0
	g.Timeout = Millisecs32(r.u32())
	return g, r.finish("GPITriggerValue")
}

// ROSpecStopTriggerType selects when an active ROSpec deactivates on its own.
type ROSpecStopTriggerType uint8

const (
	ROStopTriggerNone           = ROSpecStopTriggerType(0)
	ROStopTriggerDuration       = ROSpecStopTriggerType(1)
	ROStopTriggerGPIWithTimeout = ROSpecStopTriggerType(2)
)

type ROSpecStopTrigger struct {
	Trigger              ROSpecStopTriggerType
	DurationTriggerValue Millisecs32
	GPITrigger           *GPITriggerValue
}

func (t ROSpecStopTrigger) encode() []byte {
	payload := []byte{uint8(t.Trigger)}
	if t.Trigger == ROStopTriggerDuration {
		payload = appendU32(payload, uint32(t.DurationTriggerValue))
	}
	if t.Trigger == ROStopTriggerGPIWithTimeout && t.GPITrigger != nil {
		payload = append(payload, t.GPITrigger.encode()...)
	}
	return EncodeTLV(ParamROSpecStopTrigger, payload)
}

func decodeROSpecStopTrigger(payload []byte) (ROSpecStopTrigger, error) {
	r := newPReader(payload)
	t := ROSpecStopTrigger{Trigger: ROSpecStopTriggerType(r.u8())}

	if t.Trigger == ROStopTriggerDuration {
		t.DurationTriggerValue = Millisecs32(r.u32())
	}

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}
		if typ != ParamGPITriggerValue {
			return t, errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside ROSpecStopTrigger", typ)
		}
		g, err := decodeGPITriggerValue(sub)
		if err != nil {
			return t, err
		}
		t.GPITrigger = &g
	}
	return t, r.finish("ROSpecStopTrigger")
}

//
// AISpec and sub-parameters
//

// AISpec names the antennas taking part in an inventory round
// and the condition that ends the round.
type AISpec struct {
	AntennaIDs              []AntennaID // a single 0 means "all antennas"
	StopTrigger             AISpecStopTrigger
	InventoryParameterSpecs []InventoryParameterSpec
	Custom                  []Custom
}

func (a *AISpec) encode() []byte {
	payload := appendU16(nil, uint16(len(a.AntennaIDs)))
	for _, id := range a.AntennaIDs {
		payload = appendU16(payload, uint16(id))
	}
	payload = append(payload, a.StopTrigger.encode()...)
	for i := range a.InventoryParameterSpecs {
		payload = append(payload, a.InventoryParameterSpecs[i].encode()...)
	}
	for i := range a.Custom {
		payload = append(payload, a.Custom[i].encode()...)
	}
	return EncodeTLV(ParamAISpec, payload)
}

func decodeAISpec(payload []byte) (AISpec, error) {
	r := newPReader(payload)
	var a AISpec

	n := int(r.u16())
	for i := 0; i < n && r.err == nil; i++ {
		a.AntennaIDs = append(a.AntennaIDs, AntennaID(r.u16()))
	}

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}

		var err error
		switch typ {
		case ParamAISpecStopTrigger:
			a.StopTrigger, err = decodeAISpecStopTrigger(sub)
		case ParamInventoryParameterSpec:
			var ips InventoryParameterSpec
			ips, err = decodeInventoryParameterSpec(sub)
			a.InventoryParameterSpecs = append(a.InventoryParameterSpecs, ips)
		case ParamCustom:
			var c Custom
			c, err = decodeCustom(sub)
			a.Custom = append(a.Custom, c)
		default:
			err = errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside AISpec", typ)
		}
		if err != nil {
			return a, err
		}
	}
	return a, r.finish("AISpec")
}

// AISpecStopTriggerType selects when an AISpec's inventory round ends.
type AISpecStopTriggerType uint8

const (
	AIStopTriggerNone           = AISpecStopTriggerType(0)
	AIStopTriggerDuration       = AISpecStopTriggerType(1)
	AIStopTriggerGPI            = AISpecStopTriggerType(2)
	AIStopTriggerTagObservation = AISpecStopTriggerType(3)
)

type AISpecStopTrigger struct {
	Trigger              AISpecStopTriggerType
	DurationTriggerValue Millisecs32
	TagObservationCount  uint32
}

func (t AISpecStopTrigger) encode() []byte {
	payload := []byte{uint8(t.Trigger)}
	switch t.Trigger {
	case AIStopTriggerDuration:
		payload = appendU32(payload, uint32(t.DurationTriggerValue))
	case AIStopTriggerTagObservation:
		payload = appendU32(payload, t.TagObservationCount)
	}
	return EncodeTLV(ParamAISpecStopTrigger, payload)
}

func decodeAISpecStopTrigger(payload []byte) (AISpecStopTrigger, error) {
	r := newPReader(payload)
	t := AISpecStopTrigger{Trigger: AISpecStopTriggerType(r.u8())}

	switch t.Trigger {
	case AIStopTriggerDuration:
		t.DurationTriggerValue = Millisecs32(r.u32())
	case AIStopTriggerTagObservation:
		t.TagObservationCount = r.u32()
	}
	return t, r.finish("AISpecStopTrigger")
}

// AirProtocol identifies the air protocol of an inventory.
type AirProtocol uint8

const (
	AirProtoUnspecified         = AirProtocol(0)
	AirProtoEPCGlobalClass1Gen2 = AirProtocol(1)
)

// InventoryParameterSpec configures a single air protocol inventory.
// Antenna configurations this package doesn't model are carried raw.
type InventoryParameterSpec struct {
	InventoryParameterSpecID uint16
	AirProtocolID            AirProtocol
	Custom                   []Custom
	Other                    []RawParameter
}

func (s *InventoryParameterSpec) encode() []byte {
	payload := appendU16(nil, s.InventoryParameterSpecID)
	payload = append(payload, uint8(s.AirProtocolID))
	for i := range s.Other {
		payload = append(payload, s.Other[i].encode()...)
	}
	for i := range s.Custom {
		payload = append(payload, s.Custom[i].encode()...)
	}
	return EncodeTLV(ParamInventoryParameterSpec, payload)
}

func decodeInventoryParameterSpec(payload []byte) (InventoryParameterSpec, error) {
	r := newPReader(payload)
	s := InventoryParameterSpec{
		InventoryParameterSpecID: r.u16(),
		AirProtocolID:            AirProtocol(r.u8()),
	}

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}
		if typ == ParamCustom {
			c, err := decodeCustom(sub)
			if err != nil {
				return s, err
			}
			s.Custom = append(s.Custom, c)
			continue
		}
		s.Other = append(s.Other, RawParameter{
			Type: typ, Data: append([]byte(nil), sub...),
		})
	}
	return s, r.finish("InventoryParameterSpec")
}

//
// ROReportSpec and TagReportContentSelector
//

// ROReportTrigger selects when the reader sends accumulated tag reports.
type ROReportTrigger uint8

const (
	ROReportTriggerNone             = ROReportTrigger(0)
	ROReportTriggerEndOfROSpec      = ROReportTrigger(1)
	ROReportTriggerEndOfAISpec      = ROReportTrigger(2)
	ROReportTriggerNTagsOrEndOfSpec = ROReportTrigger(3)
)

// ROReportSpec configures report batching and content.
//
// Its TLV type code varies by reader dialect; encoding and decoding
// go through the connection's Dialect rather than a fixed constant.
type ROReportSpec struct {
	Trigger         ROReportTrigger
	N               uint16 // tag count for the NTags trigger
	ContentSelector *TagReportContentSelector
}

func (s *ROReportSpec) encode(d Dialect) []byte {
	payload := []byte{uint8(s.Trigger)}
	if s.Trigger == ROReportTriggerNTagsOrEndOfSpec {
		payload = appendU16(payload, s.N)
	}
	if s.ContentSelector != nil {
		payload = append(payload, s.ContentSelector.encode()...)
	}
	return EncodeTLV(d.roReportSpecType(), payload)
}

func decodeROReportSpec(payload []byte) (ROReportSpec, error) {
	r := newPReader(payload)
	s := ROReportSpec{Trigger: ROReportTrigger(r.u8())}

	if s.Trigger == ROReportTriggerNTagsOrEndOfSpec {
		s.N = r.u16()
	}

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}
		if typ != ParamTagReportContentSelector {
			return s, errors.Wrapf(ErrUnexpectedMessageType,
				"parameter type %d inside ROReportSpec", typ)
		}
		cs, err := decodeTagReportContentSelector(sub)
		if err != nil {
			return s, err
		}
		s.ContentSelector = &cs
	}
	return s, r.finish("ROReportSpec")
}

// TagReportContentSelector picks which optional fields
// the reader includes in each TagReportData.
type TagReportContentSelector struct {
	EnableROSpecID             bool
	EnableSpecIndex            bool
	EnableInventoryParamSpecID bool
	EnableAntennaID            bool
	EnableChannelIndex         bool
	EnablePeakRSSI             bool
	EnableFirstSeenTimestamp   bool
	EnableLastSeenTimestamp    bool
	EnableTagSeenCount         bool
	EnableAccessSpecID         bool
}

func (s TagReportContentSelector) encode() []byte {
	var flags uint16
	set := func(on bool, bit uint16) {
		if on {
			flags |= bit
		}
	}
	set(s.EnableROSpecID, 0x8000)
	set(s.EnableSpecIndex, 0x4000)
	set(s.EnableInventoryParamSpecID, 0x2000)
	set(s.EnableAntennaID, 0x1000)
	set(s.EnableChannelIndex, 0x0800)
	set(s.EnablePeakRSSI, 0x0400)
	set(s.EnableFirstSeenTimestamp, 0x0200)
	set(s.EnableLastSeenTimestamp, 0x0100)
	set(s.EnableTagSeenCount, 0x0080)
	set(s.EnableAccessSpecID, 0x0040)
	return EncodeTLV(ParamTagReportContentSelector, appendU16(nil, flags))
}

func decodeTagReportContentSelector(payload []byte) (TagReportContentSelector, error) {
	r := newPReader(payload)
	flags := r.u16()
	s := TagReportContentSelector{
		EnableROSpecID:             flags&0x8000 != 0,
		EnableSpecIndex:            flags&0x4000 != 0,
		EnableInventoryParamSpecID: flags&0x2000 != 0,
		EnableAntennaID:            flags&0x1000 != 0,
		EnableChannelIndex:         flags&0x0800 != 0,
		EnablePeakRSSI:             flags&0x0400 != 0,
		EnableFirstSeenTimestamp:   flags&0x0200 != 0,
		EnableLastSeenTimestamp:    flags&0x0100 != 0,
		EnableTagSeenCount:         flags&0x0080 != 0,
		EnableAccessSpecID:         flags&0x0040 != 0,
	}
	return s, r.finish("TagReportContentSelector")
}

//
// KeepaliveSpec
//

// KeepaliveTriggerType enables or disables reader-initiated keepalives.
type KeepaliveTriggerType uint8

const (
	KeepaliveTriggerNone     = KeepaliveTriggerType(0)
	KeepaliveTriggerPeriodic = KeepaliveTriggerType(1)
)

// KeepaliveSpec asks the reader to send KEEPALIVE every Interval ms.
type KeepaliveSpec struct {
	Trigger  KeepaliveTriggerType
	Interval Millisecs32
}

func (k KeepaliveSpec) encode() []byte {
	payload := []byte{uint8(k.Trigger)}
	payload = appendU32(payload, uint32(k.Interval))
	return EncodeTLV(ParamKeepaliveSpec, payload)
}

func decodeKeepaliveSpec(payload []byte) (KeepaliveSpec, error) {
	r := newPReader(payload)
	k := KeepaliveSpec{
		Trigger:  KeepaliveTriggerType(r.u8()),
		Interval: Millisecs32(r.u32()),
	}
	return k, r.finish("KeepaliveSpec")
}

//
// TagReportData
//

// TagReportData is one tag observation within an RO_ACCESS_REPORT.
//
// Exactly one of EPCData and EPC96 carries the EPC,
// depending on how the reader chose to encode it.
// The remaining fields are present only if enabled
// by the ROSpec's TagReportContentSelector.
type TagReportData struct {
	EPCData EPCData
	EPC96   EPC96

	ROSpecID                 *ROSpecID
	SpecIndex                *SpecIndex
	InventoryParameterSpecID *InventoryParameterSpecID
	AntennaID                *AntennaID
	PeakRSSI                 *PeakRSSI
	ChannelIndex             *ChannelIndex
	FirstSeenUTC             *FirstSeenUTC
	LastSeenUTC              *LastSeenUTC
	TagSeenCount             *TagSeenCount
	AccessSpecID             *AccessSpecID
	C1G2CRC                  *C1G2CRC
	C1G2PC                   *C1G2PC

	Custom []Custom
	Other  []RawParameter
}

// EPC returns whichever EPC representation the report carried.
func (rt *TagReportData) EPC() []byte {
	if len(rt.EPC96.EPC) > 0 {
		return rt.EPC96.EPC
	}
	return rt.EPCData.EPC
}

func (rt *TagReportData) encode() []byte {
	var payload []byte
	if len(rt.EPC96.EPC) == 12 {
		tv, _ := EncodeTV(tvEPC96, rt.EPC96.EPC)
		payload = append(payload, tv...)
	} else {
		payload = append(payload, rt.EPCData.encode()...)
	}

	appendTV := func(tag uint8, value []byte) {
		tv, _ := EncodeTV(tag, value)
		payload = append(payload, tv...)
	}

	if rt.ROSpecID != nil {
		appendTV(tvROSpecID, appendU32(nil, uint32(*rt.ROSpecID)))
	}
	if rt.SpecIndex != nil {
		appendTV(tvSpecIndex, appendU16(nil, uint16(*rt.SpecIndex)))
	}
	if rt.InventoryParameterSpecID != nil {
		appendTV(tvInventoryParameterSpecID, appendU16(nil, uint16(*rt.InventoryParameterSpecID)))
	}
	if rt.AntennaID != nil {
		appendTV(tvAntennaID, appendU16(nil, uint16(*rt.AntennaID)))
	}
	if rt.PeakRSSI != nil {
		appendTV(tvPeakRSSI, []byte{uint8(*rt.PeakRSSI)})
	}
	if rt.ChannelIndex != nil {
		appendTV(tvChannelIndex, appendU16(nil, uint16(*rt.ChannelIndex)))
	}
	if rt.FirstSeenUTC != nil {
		appendTV(tvFirstSeenUTC, appendU64(nil, uint64(*rt.FirstSeenUTC)))
	}
	if rt.LastSeenUTC != nil {
		appendTV(tvLastSeenUTC, appendU64(nil, uint64(*rt.LastSeenUTC)))
	}
	if rt.TagSeenCount != nil {
		appendTV(tvTagSeenCount, appendU16(nil, uint16(*rt.TagSeenCount)))
	}
	if rt.AccessSpecID != nil {
		appendTV(tvAccessSpecID, appendU32(nil, uint32(*rt.AccessSpecID)))
	}
	if rt.C1G2CRC != nil {
		appendTV(tvC1G2CRC, appendU16(nil, uint16(*rt.C1G2CRC)))
	}
	if rt.C1G2PC != nil {
		appendTV(tvC1G2PC, appendU16(nil, uint16(*rt.C1G2PC)))
	}

	for i := range rt.Custom {
		payload = append(payload, rt.Custom[i].encode()...)
	}
	for i := range rt.Other {
		payload = append(payload, rt.Other[i].encode()...)
	}
	return EncodeTLV(ParamTagReportData, payload)
}

func decodeTagReportData(payload []byte) (TagReportData, error) {
	r := newPReader(payload)
	var rt TagReportData

	for r.err == nil && r.remaining() > 0 {
		if r.peekTV() {
			tag, value, ok := r.tv()
			if !ok {
				break
			}
			rt.setTV(tag, value)
			continue
		}

		typ, sub, ok := r.tlv()
		if !ok {
			break
		}

		switch typ {
		case ParamEPCData:
			e, err := decodeEPCData(sub)
			if err != nil {
				return rt, err
			}
			rt.EPCData = e
		case ParamCustom:
			c, err := decodeCustom(sub)
			if err != nil {
				return rt, err
			}
			rt.Custom = append(rt.Custom, c)
		default:
			rt.Other = append(rt.Other, RawParameter{
				Type: typ, Data: append([]byte(nil), sub...),
			})
		}
	}
	return rt, r.finish("TagReportData")
}

// setTV assigns the value of a TV parameter to its field.
// The value slice is already validated to the tag's fixed size.
func (rt *TagReportData) setTV(tag uint8, value []byte) {
	switch tag {
	case tvEPC96:
		rt.EPC96.EPC = value
	case tvROSpecID:
		v := ROSpecID(binary.BigEndian.Uint32(value))
		rt.ROSpecID = &v
	case tvSpecIndex:
		v := SpecIndex(binary.BigEndian.Uint16(value))
		rt.SpecIndex = &v
	case tvInventoryParameterSpecID:
		v := InventoryParameterSpecID(binary.BigEndian.Uint16(value))
		rt.InventoryParameterSpecID = &v
	case tvAntennaID:
		v := AntennaID(binary.BigEndian.Uint16(value))
		rt.AntennaID = &v
	case tvPeakRSSI:
		v := PeakRSSI(int8(value[0]))
		rt.PeakRSSI = &v
	case tvChannelIndex:
		v := ChannelIndex(binary.BigEndian.Uint16(value))
		rt.ChannelIndex = &v
	case tvFirstSeenUTC:
		v := FirstSeenUTC(binary.BigEndian.Uint64(value))
		rt.FirstSeenUTC = &v
	case tvLastSeenUTC:
		v := LastSeenUTC(binary.BigEndian.Uint64(value))
		rt.LastSeenUTC = &v
	case tvTagSeenCount:
		v := TagSeenCount(binary.BigEndian.Uint16(value))
		rt.TagSeenCount = &v
	case tvAccessSpecID:
		v := AccessSpecID(binary.BigEndian.Uint32(value))
		rt.AccessSpecID = &v
	case tvC1G2CRC:
		v := C1G2CRC(binary.BigEndian.Uint16(value))
		rt.C1G2CRC = &v
	case tvC1G2PC:
		v := C1G2PC(binary.BigEndian.Uint16(value))
		rt.C1G2PC = &v
	}
}

//
// Reader event parameters
//

// ConnAttemptStatus is the status field of a ConnectionAttemptEvent.
type ConnAttemptStatus uint16

const (
	ConnSuccess               = ConnAttemptStatus(0)
	ConnExistsReaderInitiated = ConnAttemptStatus(1)
	ConnExistsClientInitiated = ConnAttemptStatus(2)
	ConnFailedReasonUnknown   = ConnAttemptStatus(3)
	ConnAttemptedAgain        = ConnAttemptStatus(4)
)

// ConnectionAttemptEvent reports the outcome of a connection attempt;
// the reader sends one inside its first event notification.
type ConnectionAttemptEvent struct {
	Status ConnAttemptStatus
}

func (e ConnectionAttemptEvent) encode() []byte {
	return EncodeTLV(ParamConnectionAttemptEvent, appendU16(nil, uint16(e.Status)))
}

// ConnectionCloseEvent announces the reader is closing the connection.
type ConnectionCloseEvent struct{}

func (ConnectionCloseEvent) encode() []byte {
	return EncodeTLV(ParamConnectionCloseEvent, nil)
}

// AntennaEvent reports an antenna connecting or disconnecting.
type AntennaEvent struct {
	Connected bool
	AntennaID AntennaID
}

func (e AntennaEvent) encode() []byte {
	var ev uint8
	if e.Connected {
		ev = 1
	}
	payload := []byte{ev}
	payload = appendU16(payload, uint16(e.AntennaID))
	return EncodeTLV(ParamAntennaEvent, payload)
}

// ROSpecEventType distinguishes ROSpec start/end/preemption events.
type ROSpecEventType uint8

const (
	ROSpecStarted   = ROSpecEventType(0)
	ROSpecEnded     = ROSpecEventType(1)
	ROSpecPreempted = ROSpecEventType(2)
)

// ROSpecEvent reports an ROSpec starting, ending, or being preempted.
type ROSpecEvent struct {
	EventType          ROSpecEventType
	ROSpecID           uint32
	PreemptingROSpecID uint32
}

func (e ROSpecEvent) encode() []byte {
	payload := []byte{uint8(e.EventType)}
	payload = appendU32(payload, e.ROSpecID)
	payload = appendU32(payload, e.PreemptingROSpecID)
	return EncodeTLV(ParamROSpecEvent, payload)
}

// ReaderExceptionEvent carries the reader's free-text exception message.
type ReaderExceptionEvent struct {
	Message string
}

func (e ReaderExceptionEvent) encode() []byte {
	payload := appendU16(nil, uint16(len(e.Message)))
	payload = append(payload, e.Message...)
	return EncodeTLV(ParamReaderExceptionEvent, payload)
}

// ReaderEventNotificationData is the body of a READER_EVENT_NOTIFICATION.
type ReaderEventNotificationData struct {
	UTCTimestamp      Micros64
	ConnectionAttempt *ConnectionAttemptEvent
	ConnectionClose   *ConnectionCloseEvent
	Antenna           *AntennaEvent
	ROSpec            *ROSpecEvent
	ReaderException   *ReaderExceptionEvent
	Other             []RawParameter
}

func (d *ReaderEventNotificationData) encode() []byte {
	payload := EncodeTLV(ParamUTCTimestamp, appendU64(nil, uint64(d.UTCTimestamp)))
	if d.ConnectionAttempt != nil {
		payload = append(payload, d.ConnectionAttempt.encode()...)
	}
	if d.ConnectionClose != nil {
		payload = append(payload, d.ConnectionClose.encode()...)
	}
	if d.Antenna != nil {
		payload = append(payload, d.Antenna.encode()...)
	}
	if d.ROSpec != nil {
		payload = append(payload, d.ROSpec.encode()...)
	}
	if d.ReaderException != nil {
		payload = append(payload, d.ReaderException.encode()...)
	}
	for i := range d.Other {
		payload = append(payload, d.Other[i].encode()...)
	}
	return EncodeTLV(ParamReaderEventNotificationData, payload)
}

func decodeReaderEventNotificationData(payload []byte) (ReaderEventNotificationData, error) {
	r := newPReader(payload)
	var d ReaderEventNotificationData

	for r.err == nil && r.remaining() > 0 {
		typ, sub, ok := r.tlv()
		if !ok {
			break
		}

		sr := newPReader(sub)
		switch typ {
		case ParamUTCTimestamp:
			d.UTCTimestamp = Micros64(sr.u64())
		case ParamConnectionAttemptEvent:
			d.ConnectionAttempt = &ConnectionAttemptEvent{
				Status: ConnAttemptStatus(sr.u16()),
			}
		case ParamConnectionCloseEvent:
			d.ConnectionClose = &ConnectionCloseEvent{}
		case ParamAntennaEvent:
			ev := AntennaEvent{Connected: sr.u8() == 1}
			ev.AntennaID = AntennaID(sr.u16())
			d.Antenna = &ev
		case ParamROSpecEvent:
			ev := ROSpecEvent{EventType: ROSpecEventType(sr.u8())}
			ev.ROSpecID = sr.u32()
			ev.PreemptingROSpecID = sr.u32()
			d.ROSpec = &ev
		case ParamReaderExceptionEvent:
			n := int(sr.u16())
			d.ReaderException = &ReaderExceptionEvent{Message: string(sr.bytes(n))}
		default:
			d.Other = append(d.Other, RawParameter{
				Type: typ, Data: append([]byte(nil), sub...),
			})
			continue
		}
		if err := sr.finish("event parameter"); err != nil {
			return d, err
		}
	}
	return d, r.finish("ReaderEventNotificationData")
}
