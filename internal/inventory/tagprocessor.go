//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"edgexfoundry-holding/rfid-llrp-engine/internal/llrp"

	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
)

// DefaultDepartedThreshold is how long a tag may go unread
// before PruneDeparted marks it Departed.
const DefaultDepartedThreshold = 30 * time.Second

// TagProcessor folds incoming tag reports into an in-memory inventory
// and emits events as tags arrive, move between antennas, and depart.
//
// It's safe for concurrent use, but ProcessReport is expected to be
// called from a connection's message handler, so it does no I/O and
// never blocks on anything but its own lock.
type TagProcessor struct {
	lc                logger.LoggingClient
	departedThreshold time.Duration

	mu        sync.RWMutex
	inventory map[string]*Tag

	now func() time.Time
}

// NewTagProcessor returns a processor with an empty inventory.
// A non-positive threshold gets the default.
func NewTagProcessor(lc logger.LoggingClient, departedThreshold time.Duration) *TagProcessor {
	if departedThreshold <= 0 {
		departedThreshold = DefaultDepartedThreshold
	}
	return &TagProcessor{
		lc:                lc,
		departedThreshold: departedThreshold,
		inventory:         make(map[string]*Tag),
		now:               time.Now,
	}
}

// ProcessReport folds every TagReportData in the report into the
// inventory and returns the events the new reads produced.
func (tp *TagProcessor) ProcessReport(r *llrp.ROAccessReport) []Event {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	var events []Event
	for i := range r.TagReportData {
		if event := tp.processData(&r.TagReportData[i]); event != nil {
			events = append(events, event)
		}
	}
	return events
}

func (tp *TagProcessor) processData(rt *llrp.TagReportData) Event {
	epcBytes := rt.EPC()
	if len(epcBytes) == 0 {
		tp.lc.Warn("dropping tag report with no EPC")
		return nil
	}
	epc := hex.EncodeToString(epcBytes)

	tag, exists := tp.inventory[epc]
	if !exists {
		tag = newTag(epc)
		tp.inventory[epc] = tag
	}

	// Reader timestamps are microseconds since the Unix epoch;
	// reports without one get the time of receipt.
	var lastSeen int64
	if rt.LastSeenUTC != nil {
		lastSeen = int64(*rt.LastSeenUTC) / 1000
	} else {
		lastSeen = tp.now().UnixNano() / int64(time.Millisecond)
	}
	if lastSeen > tag.LastSeen {
		tag.LastSeen = lastSeen
	}

	if rssi, ok := rt.ExtractRSSI(); ok {
		tag.rssiDbm.add(rssi)
	}

	prevState, prevAntenna := tag.state, tag.AntennaID
	if rt.AntennaID != nil {
		tag.AntennaID = uint16(*rt.AntennaID)
	}

	switch prevState {
	case Unknown, Departed:
		tag.setState(Present, tag.LastSeen)
		tp.lc.Debug("tag arrived", "epc", tag.EPC, "antenna", tag.AntennaID)
		return ArrivedEvent{
			BaseEvent: BaseEvent{EPC: tag.EPC, Timestamp: tag.LastSeen},
			AntennaID: tag.AntennaID,
		}

	case Present:
		if prevAntenna == 0 || prevAntenna == tag.AntennaID {
			return nil
		}
		tp.lc.Debug("tag moved", "epc", tag.EPC,
			"from", prevAntenna, "to", tag.AntennaID)
		return MovedEvent{
			BaseEvent:    BaseEvent{EPC: tag.EPC, Timestamp: tag.LastSeen},
			OldAntennaID: prevAntenna,
			NewAntennaID: tag.AntennaID,
		}
	}
	return nil
}

// PruneDeparted marks Present tags unread past the threshold as
// Departed and returns one DepartedEvent per transition.
// Departed tags stay in the inventory so a later read can re-arrive them.
func (tp *TagProcessor) PruneDeparted() []Event {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	nowMs := tp.now().UnixNano() / int64(time.Millisecond)
	cutoff := nowMs - tp.departedThreshold.Milliseconds()

	var events []Event
	for _, tag := range tp.inventory {
		if tag.state != Present || tag.LastSeen > cutoff {
			continue
		}
		tag.setState(Departed, nowMs)
		tp.lc.Debug("tag departed", "epc", tag.EPC, "lastSeen", tag.LastSeen)
		events = append(events, DepartedEvent{
			BaseEvent: BaseEvent{EPC: tag.EPC, Timestamp: nowMs},
			LastSeen:  tag.LastSeen,
		})
	}
	return events
}

// Snapshot freezes the inventory into StaticTags, ordered by EPC.
func (tp *TagProcessor) Snapshot() []StaticTag {
	tp.mu.RLock()
	defer tp.mu.RUnlock()

	tags := make([]StaticTag, 0, len(tp.inventory))
	for _, tag := range tp.inventory {
		tags = append(tags, tag.asStaticTag())
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].EPC < tags[j].EPC })
	return tags
}
