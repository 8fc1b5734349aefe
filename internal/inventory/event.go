//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

// EventType is an enum of the different types of inventory events.
type EventType string

const (
	// ArrivedType marks a tag seen for the first time,
	// or seen again after it was marked Departed.
	ArrivedType EventType = "Arrived"
	// MovedType marks a tag read by a different antenna
	// than the one that last saw it.
	MovedType EventType = "Moved"
	// DepartedType marks a tag that hasn't been read
	// for longer than the departed threshold.
	DepartedType EventType = "Departed"
)

// BaseEvent holds the values common to every inventory event.
type BaseEvent struct {
	// EPC is the tag's Electronic Product Code, hex-encoded.
	EPC string `json:"epc"`
	// Timestamp is when the event occurred, in Unix epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// ArrivedEvent is generated when a tag is seen for the first time,
// or seen while in the Departed state.
type ArrivedEvent struct {
	BaseEvent
	AntennaID uint16 `json:"antenna_id"`
}

// MovedEvent is generated when a tag's reads shift to a new antenna.
type MovedEvent struct {
	BaseEvent
	OldAntennaID uint16 `json:"old_antenna_id"`
	NewAntennaID uint16 `json:"new_antenna_id"`
}

// DepartedEvent is generated when a tag goes unread past the threshold.
type DepartedEvent struct {
	BaseEvent
	// LastSeen is the last time this tag was read (Unix epoch milliseconds).
	LastSeen int64 `json:"last_seen"`
}

// Event maps event structs to their EventType strings.
type Event interface {
	OfType() EventType
}

func (a ArrivedEvent) OfType() EventType  { return ArrivedType }
func (m MovedEvent) OfType() EventType    { return MovedType }
func (d DepartedEvent) OfType() EventType { return DepartedType }
