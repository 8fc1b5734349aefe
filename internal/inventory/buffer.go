//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

// rollingMean is a fixed-window moving average.
// Once the window fills, each new value displaces the oldest,
// so Mean tracks only the most recent windowSize readings.
type rollingMean struct {
	values []float64
	total  float64
	next   int
}

func newRollingMean(windowSize int) *rollingMean {
	if windowSize <= 0 {
		panic("illegal window size")
	}
	return &rollingMean{values: make([]float64, 0, windowSize)}
}

func (rm *rollingMean) count() int { return len(rm.values) }

// mean returns the average of the windowed values, or NaN when empty.
func (rm *rollingMean) mean() float64 {
	return rm.total / float64(len(rm.values))
}

func (rm *rollingMean) add(v float64) {
	if len(rm.values) < cap(rm.values) {
		rm.values = append(rm.values, v)
		rm.total += v
		return
	}

	rm.total += v - rm.values[rm.next]
	rm.values[rm.next] = v

	rm.next++
	if rm.next >= cap(rm.values) {
		rm.next = 0
	}
}
