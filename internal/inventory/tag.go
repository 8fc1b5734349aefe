//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

// rssiWindowSize is how many readings feed each tag's moving RSSI average.
const rssiWindowSize = 20

type TagState string

const (
	Unknown  TagState = "Unknown"
	Present  TagState = "Present"
	Departed TagState = "Departed"
)

// Tag is the live record of one EPC as reads accumulate.
// The processor's lock guards all fields; tags never escape it as pointers.
type Tag struct {
	EPC          string
	AntennaID    uint16
	LastSeen     int64 // Unix epoch milliseconds
	LastArrived  int64
	LastDeparted int64
	state        TagState

	rssiDbm *rollingMean
}

func newTag(epc string) *Tag {
	return &Tag{
		EPC:     epc,
		state:   Unknown,
		rssiDbm: newRollingMean(rssiWindowSize),
	}
}

func (tag *Tag) setState(newState TagState, timestamp int64) {
	switch newState {
	case Present:
		tag.LastArrived = timestamp
	case Departed:
		tag.LastDeparted = timestamp
	}
	tag.state = newState
}

// StaticTag is a Tag frozen at snapshot time for use with APIs.
type StaticTag struct {
	EPC          string   `json:"epc"`
	AntennaID    uint16   `json:"antenna_id"`
	LastSeen     int64    `json:"last_seen"`
	LastArrived  int64    `json:"last_arrived"`
	LastDeparted int64    `json:"last_departed"`
	State        TagState `json:"state"`
	MeanRSSI     float64  `json:"mean_rssi,omitempty"`
}

func (tag *Tag) asStaticTag() StaticTag {
	s := StaticTag{
		EPC:          tag.EPC,
		AntennaID:    tag.AntennaID,
		LastSeen:     tag.LastSeen,
		LastArrived:  tag.LastArrived,
		LastDeparted: tag.LastDeparted,
		State:        tag.state,
	}
	if tag.rssiDbm.count() > 0 {
		s.MeanRSSI = tag.rssiDbm.mean()
	}
	return s
}
