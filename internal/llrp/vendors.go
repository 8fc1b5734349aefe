//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import "encoding/binary"

// VendorPEN is an IANA Private Enterprise Number,
// used to scope Custom parameters and messages.
type VendorPEN uint32

const (
	PENImpinj = VendorPEN(25882)
	PENAlien  = VendorPEN(17996)
	PENZebra  = VendorPEN(10642)
)

// Impinj custom parameter subtypes this package understands.
// Everything else rides through as an opaque Custom.
const (
	ImpinjSearchMode               = CustomParamSubtype(23)
	ImpinjTagReportContentSelector = CustomParamSubtype(50)
	ImpinjEnablePeakRSSI           = CustomParamSubtype(53)
	ImpinjPeakRSSI                 = CustomParamSubtype(57)
)

// Is reports whether the Custom parameter has the given vendor and subtype.
func (c *Custom) Is(vendor VendorPEN, subtype CustomParamSubtype) bool {
	return VendorPEN(c.VendorID) == vendor && c.Subtype == subtype
}

// ExtractRSSI returns the report's RSSI in dBm, if it has one.
//
// Impinj readers can report a higher-resolution RSSI in a Custom
// parameter as dBm x100; when present it takes precedence over the
// standard one-byte PeakRSSI.
func (rt *TagReportData) ExtractRSSI() (float64, bool) {
	for i := range rt.Custom {
		c := &rt.Custom[i]
		if c.Is(PENImpinj, ImpinjPeakRSSI) && len(c.Data) == 2 {
			return float64(int16(binary.BigEndian.Uint16(c.Data))) / 100.0, true
		}
	}

	if rt.PeakRSSI != nil {
		return float64(*rt.PeakRSSI), true
	}
	return 0, false
}
