//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package llrp implements the Low Level Reader Protocol (LLRP)
// binary message engine: wire codec, parameter and message registries,
// a connection that multiplexes synchronous transactions with
// asynchronous reader traffic, and the ROSpec lifecycle.
package llrp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// VersionNum corresponds to an LLRP version number.
type VersionNum uint8

const (
	versionUnknown = VersionNum(0)

	// Version1_0_1 is the LLRP version implemented by this package
	// and by every reader we've come across.
	Version1_0_1 = VersionNum(1)
	Version1_1   = VersionNum(2)
)

// MessageType is the 10-bit message type carried in an LLRP header.
type MessageType uint16

// ParamType is the type number of an LLRP parameter.
//
// TLV parameters use the full 10-bit space;
// TV parameters are restricted to 7 bits (1-127)
// and are encoded with the high bit of their single header byte set.
type ParamType uint16

const (
	// HeaderSz is the exact size of an LLRP message header:
	// 2 bytes of version+type, 4 bytes of length, 4 bytes of message id.
	HeaderSz = 10

	// maxBodySz bounds a message body so a corrupt length field
	// can't convince us to allocate gigabytes.
	maxBodySz = 1 << 22

	tlvHeaderSz = 4

	msgTypeMask   = 0x03FF // 10 bits
	paramTypeMask = 0x03FF
	versionShift  = 10
	versionMask   = 0x7
)

// Header is the decoded form of the 10-byte prefix of every LLRP message.
type Header struct {
	version VersionNum
	typ     MessageType
	length  uint32 // total message length, including these 10 bytes
	id      uint32 // correlation id; echoed by responses
}

func (h Header) Version() VersionNum { return h.version }
func (h Header) Type() MessageType   { return h.typ }
func (h Header) Length() uint32      { return h.length }
func (h Header) ID() uint32          { return h.id }

// BodyLength is the number of payload bytes following the header.
func (h Header) BodyLength() uint32 { return h.length - HeaderSz }

// EncodeHeader packs a message header for a body of bodyLen bytes.
func EncodeHeader(typ MessageType, bodyLen int, id uint32) []byte {
	buf := make([]byte, HeaderSz)
	binary.BigEndian.PutUint16(buf[0:2],
		uint16(Version1_0_1)<<versionShift|uint16(typ)&msgTypeMask)
	binary.BigEndian.PutUint32(buf[2:6], uint32(HeaderSz+bodyLen))
	binary.BigEndian.PutUint32(buf[6:10], id)
	return buf
}

// DecodeHeader unpacks the first 10 bytes of buf.
//
// It returns ErrMalformedHeader if buf is shorter than 10 bytes
// or the length field claims a total smaller than the header itself.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSz {
		return Header{}, errors.Wrapf(ErrMalformedHeader,
			"need %d bytes, have %d", HeaderSz, len(buf))
	}

	vt := binary.BigEndian.Uint16(buf[0:2])
	h := Header{
		version: VersionNum((vt >> versionShift) & versionMask),
		typ:     MessageType(vt & msgTypeMask),
		length:  binary.BigEndian.Uint32(buf[2:6]),
		id:      binary.BigEndian.Uint32(buf[6:10]),
	}

	if h.length < HeaderSz {
		return Header{}, errors.Wrapf(ErrMalformedHeader,
			"message length %d < %d", h.length, HeaderSz)
	}
	if h.length-HeaderSz > maxBodySz {
		return Header{}, errors.Wrapf(ErrMalformedHeader,
			"message length %d exceeds limit", h.length)
	}

	return h, nil
}

// tvLengths gives the total encoded size (1 header byte + value)
// of every TV parameter defined by LLRP v1.0.1, indexed by tag.
// A zero entry means the tag is not defined.
var tvLengths = [128]uint8{
	tvAntennaID:                1 + 2,
	tvFirstSeenUTC:             1 + 8,
	tvFirstSeenUptime:          1 + 8,
	tvLastSeenUTC:              1 + 8,
	tvLastSeenUptime:           1 + 8,
	tvPeakRSSI:                 1 + 1,
	tvChannelIndex:             1 + 2,
	tvTagSeenCount:             1 + 2,
	tvROSpecID:                 1 + 4,
	tvInventoryParameterSpecID: 1 + 2,
	tvC1G2CRC:                  1 + 2,
	tvC1G2PC:                   1 + 2,
	tvEPC96:                    1 + 12,
	tvSpecIndex:                1 + 2,
	tvAccessSpecID:             1 + 4,
}

// TV parameter tags from LLRP v1.0.1 §16.3.
const (
	tvAntennaID                = 1
	tvFirstSeenUTC             = 2
	tvFirstSeenUptime          = 3
	tvLastSeenUTC              = 4
	tvLastSeenUptime           = 5
	tvPeakRSSI                 = 6
	tvChannelIndex             = 7
	tvTagSeenCount             = 8
	tvROSpecID                 = 9
	tvInventoryParameterSpecID = 10
	tvC1G2CRC                  = 11
	tvC1G2PC                   = 12
	tvEPC96                    = 13
	tvSpecIndex                = 14
	tvAccessSpecID             = 16
)

// isTV reports whether the byte at the start of a parameter
// introduces a TV-encoded parameter (high bit set).
func isTV(b byte) bool { return b&0x80 != 0 }

// tvLen returns the total encoded length of the TV parameter with
// the given tag, or ErrUnknownTVTag if the tag isn't in the table.
//
// Because TV parameters carry no length field, an unknown tag makes the
// rest of the enclosing buffer unparseable; callers for whom that
// buffer is a single parameter scope must treat this as fatal.
func tvLen(tag uint8) (int, error) {
	if tag < 128 && tvLengths[tag] != 0 {
		return int(tvLengths[tag]), nil
	}
	return 0, errors.Wrapf(ErrUnknownTVTag, "tag %d", tag)
}

// EncodeTV packs a TV parameter; value must be exactly the
// fixed value size for the tag.
func EncodeTV(tag uint8, value []byte) ([]byte, error) {
	total, err := tvLen(tag)
	if err != nil {
		return nil, err
	}
	if len(value) != total-1 {
		return nil, errors.Wrapf(ErrInvalidLength,
			"TV tag %d takes %d value bytes, not %d", tag, total-1, len(value))
	}

	buf := make([]byte, total)
	buf[0] = 0x80 | tag
	copy(buf[1:], value)
	return buf, nil
}

// DecodeTV unpacks one TV parameter from the front of buf,
// returning its tag, value, and the number of bytes consumed.
func DecodeTV(buf []byte) (tag uint8, value []byte, n int, err error) {
	if len(buf) < 1 {
		err = errors.Wrap(ErrTruncatedParameter, "empty buffer")
		return
	}

	tag = buf[0] & 0x7F
	n, err = tvLen(tag)
	if err != nil {
		return
	}
	if len(buf) < n {
		err = errors.Wrapf(ErrTruncatedParameter,
			"TV tag %d needs %d bytes, have %d", tag, n, len(buf))
		return
	}

	value = buf[1:n]
	return
}

// EncodeTLV packs a TLV parameter header followed by payload.
func EncodeTLV(typ ParamType, payload []byte) []byte {
	buf := make([]byte, tlvHeaderSz+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(typ)&paramTypeMask)
	binary.BigEndian.PutUint16(buf[2:4], uint16(tlvHeaderSz+len(payload)))
	copy(buf[tlvHeaderSz:], payload)
	return buf
}

// DecodeTLVHeader unpacks a TLV parameter header from the front of buf.
//
// The returned length is the parameter's total length,
// including the 4 header bytes; the payload is buf[4:length].
// It fails with ErrInvalidLength if the declared length is under 4,
// and ErrTruncatedParameter if it extends beyond buf.
func DecodeTLVHeader(buf []byte) (typ ParamType, length int, err error) {
	if len(buf) < tlvHeaderSz {
		err = errors.Wrapf(ErrTruncatedParameter,
			"TLV header needs %d bytes, have %d", tlvHeaderSz, len(buf))
		return
	}

	typ = ParamType(binary.BigEndian.Uint16(buf[0:2]) & paramTypeMask)
	length = int(binary.BigEndian.Uint16(buf[2:4]))

	if length < tlvHeaderSz {
		err = errors.Wrapf(ErrInvalidLength,
			"TLV type %d declares length %d < %d", typ, length, tlvHeaderSz)
		return
	}
	if length > len(buf) {
		err = errors.Wrapf(ErrTruncatedParameter,
			"TLV type %d declares length %d, but only %d bytes remain",
			typ, length, len(buf))
	}
	return
}
