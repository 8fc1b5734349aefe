//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"encoding/hex"
	"math"
	"testing"
	"time"

	"edgexfoundry-holding/rfid-llrp-engine/internal/llrp"

	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEPC = "e200001a2c0000000000beef"

func newTestProcessor(threshold time.Duration) *TagProcessor {
	lc := logger.NewClient("test", false, "", "DEBUG")
	return NewTagProcessor(lc, threshold)
}

// reportFor builds a single-tag report seen by the given antenna
// at the given epoch-microsecond timestamp.
func reportFor(t *testing.T, epc string, antenna uint16, seenMicros int64, rssi int8) *llrp.ROAccessReport {
	t.Helper()
	raw, err := hex.DecodeString(epc)
	require.NoError(t, err)

	a := llrp.AntennaID(antenna)
	last := llrp.LastSeenUTC(seenMicros)
	peak := llrp.PeakRSSI(rssi)
	return &llrp.ROAccessReport{
		TagReportData: []llrp.TagReportData{{
			EPC96:       llrp.EPC96{EPC: raw},
			AntennaID:   &a,
			LastSeenUTC: &last,
			PeakRSSI:    &peak,
		}},
	}
}

func TestProcessReport_Arrival(t *testing.T) {
	tp := newTestProcessor(0)

	events := tp.ProcessReport(reportFor(t, testEPC, 1, 1600000000000000, -45))
	require.Len(t, events, 1)

	arrived, ok := events[0].(ArrivedEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, testEPC, arrived.EPC)
	assert.Equal(t, uint16(1), arrived.AntennaID)
	assert.Equal(t, int64(1600000000000), arrived.Timestamp, "micros must convert to millis")

	// A repeat read at the same antenna is not an event.
	events = tp.ProcessReport(reportFor(t, testEPC, 1, 1600000001000000, -47))
	assert.Empty(t, events)

	snap := tp.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, Present, snap[0].State)
	assert.Equal(t, int64(1600000001000), snap[0].LastSeen)
	assert.InDelta(t, -46, snap[0].MeanRSSI, 0.001)
}

func TestProcessReport_Move(t *testing.T) {
	tp := newTestProcessor(0)

	tp.ProcessReport(reportFor(t, testEPC, 1, 1600000000000000, -45))
	events := tp.ProcessReport(reportFor(t, testEPC, 2, 1600000001000000, -50))
	require.Len(t, events, 1)

	moved, ok := events[0].(MovedEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, uint16(1), moved.OldAntennaID)
	assert.Equal(t, uint16(2), moved.NewAntennaID)
}

func TestProcessReport_StaleTimestampKept(t *testing.T) {
	tp := newTestProcessor(0)

	tp.ProcessReport(reportFor(t, testEPC, 1, 1600000005000000, -45))
	// An out-of-order report must not move LastSeen backwards.
	tp.ProcessReport(reportFor(t, testEPC, 1, 1600000001000000, -45))

	snap := tp.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(1600000005000), snap[0].LastSeen)
}

func TestProcessReport_NoEPCDropped(t *testing.T) {
	tp := newTestProcessor(0)
	events := tp.ProcessReport(&llrp.ROAccessReport{
		TagReportData: []llrp.TagReportData{{}},
	})
	assert.Empty(t, events)
	assert.Empty(t, tp.Snapshot())
}

func TestProcessReport_ImpinjRSSIPrecedence(t *testing.T) {
	tp := newTestProcessor(0)
	raw, err := hex.DecodeString(testEPC)
	require.NoError(t, err)

	peak := llrp.PeakRSSI(-45)
	last := llrp.LastSeenUTC(1600000000000000)
	tp.ProcessReport(&llrp.ROAccessReport{
		TagReportData: []llrp.TagReportData{{
			EPC96:       llrp.EPC96{EPC: raw},
			PeakRSSI:    &peak,
			LastSeenUTC: &last,
			Custom: []llrp.Custom{{
				VendorID: uint32(llrp.PENImpinj),
				Subtype:  llrp.ImpinjPeakRSSI,
				Data:     []byte{0xEE, 0x54}, // -45.24 dBm x100
			}},
		}},
	})

	snap := tp.Snapshot()
	require.Len(t, snap, 1)
	assert.InDelta(t, -45.24, snap[0].MeanRSSI, 0.001)
}

func TestPruneDeparted(t *testing.T) {
	tp := newTestProcessor(30 * time.Second)

	base := time.Unix(1600000000, 0)
	tp.now = func() time.Time { return base }

	tp.ProcessReport(reportFor(t, testEPC, 1, base.UnixNano()/1000, -45))
	assert.Empty(t, tp.PruneDeparted(), "fresh tag must not depart")

	tp.now = func() time.Time { return base.Add(31 * time.Second) }
	events := tp.PruneDeparted()
	require.Len(t, events, 1)

	departed, ok := events[0].(DepartedEvent)
	require.True(t, ok, "got %T", events[0])
	assert.Equal(t, testEPC, departed.EPC)

	snap := tp.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, Departed, snap[0].State)

	// Departing twice produces no second event.
	assert.Empty(t, tp.PruneDeparted())

	// A new read re-arrives the tag.
	later := base.Add(40 * time.Second)
	events = tp.ProcessReport(reportFor(t, testEPC, 1, later.UnixNano()/1000, -45))
	require.Len(t, events, 1)
	assert.Equal(t, ArrivedType, events[0].OfType())
}

func TestSnapshot_SortedByEPC(t *testing.T) {
	tp := newTestProcessor(0)
	tp.ProcessReport(reportFor(t, "beef00000000000000000002", 1, 1600000000000000, -45))
	tp.ProcessReport(reportFor(t, "beef00000000000000000001", 1, 1600000000000000, -45))

	snap := tp.Snapshot()
	require.Len(t, snap, 2)
	assert.True(t, snap[0].EPC < snap[1].EPC)
}

func TestRollingMean(t *testing.T) {
	rm := newRollingMean(3)
	assert.Zero(t, rm.count())
	assert.True(t, math.IsNaN(rm.mean()))

	rm.add(-40)
	rm.add(-50)
	assert.Equal(t, 2, rm.count())
	assert.InDelta(t, -45, rm.mean(), 0.001)

	rm.add(-60)
	rm.add(-30) // displaces -40
	assert.Equal(t, 3, rm.count())
	assert.InDelta(t, (-50-60-30)/3.0, rm.mean(), 0.001)
}
