// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"fmt"
	"math"
	"strconv"

	"periph.io/x/conn/v3/physic"
)

// CO2 is a CO2 equivalent concentration in parts per million.
type CO2 uint16

func (c CO2) String() string {
	return strconv.Itoa(int(c)) + "ppm"
}

// TVOC is a total volatile organic compounds concentration in parts per
// billion.
type TVOC uint16

func (t TVOC) String() string {
	return strconv.Itoa(int(t)) + "ppb"
}

// Measurement is one air quality sample.
type Measurement struct {
	CO2eq CO2
	TVOC  TVOC
}

func (m Measurement) String() string {
	return fmt.Sprintf("CO2eq: %s TVOC: %s", m.CO2eq, m.TVOC)
}

// RawSignals are the raw H2 and ethanol sensor signals, scaled by 1/512
// per the datasheet. They feed the air quality algorithm on the chip and
// are exposed for lab verification.
type RawSignals struct {
	H2      uint16
	Ethanol uint16
}

func (r RawSignals) String() string {
	return fmt.Sprintf("H2: %d Ethanol: %d", r.H2, r.Ethanol)
}

// Baseline holds the state of the baseline compensation algorithm for both
// measurement channels. The words are opaque to the host: read them with
// Dev.Baseline, persist them, and restore them with Dev.SetBaseline.
type Baseline struct {
	CO2eq uint16
	TVOC  uint16
}

// Humidity is an absolute humidity in g/m³, encoded as the 8.8 fixed point
// value of the set_humidity command. The zero value disables the on-chip
// humidity compensation.
type Humidity uint16

// HumidityFromFloat converts an absolute humidity in g/m³ to the fixed
// point wire format. Values are clamped to the representable range of
// 0 through 255.996 g/m³; NaN converts to 0.
func HumidityFromFloat(gPerCubicMetre float64) Humidity {
	if math.IsNaN(gPerCubicMetre) || gPerCubicMetre <= 0 {
		return 0
	}
	if gPerCubicMetre >= 256 {
		return math.MaxUint16
	}
	return Humidity(gPerCubicMetre * 256)
}

// AbsoluteHumidity converts a temperature and relative humidity reading,
// for example from a sibling SHT sensor, to the format of the set_humidity
// command. It uses the Magnus formula from the datasheet's driver
// integration guide.
func AbsoluteHumidity(t physic.Temperature, h physic.RelativeHumidity) Humidity {
	tc := t.Celsius()
	rh := float64(h) / float64(physic.PercentRH)
	svp := 6.112 * math.Exp(17.62*tc/(243.12+tc)) // saturation vapor pressure in hPa
	return HumidityFromFloat(216.7 * (rh / 100 * svp) / (273.15 + tc))
}

// Float64 returns the humidity in g/m³.
func (h Humidity) Float64() float64 {
	return float64(h) / 256
}

func (h Humidity) String() string {
	return fmt.Sprintf("%.2fg/m³", h.Float64())
}

// ProductType identifies the sensor family reported by get_feature_set.
type ProductType uint8

// ProductTypeSGP30 is the only product type this driver knows.
const ProductTypeSGP30 ProductType = 0

func (p ProductType) String() string {
	if p == ProductTypeSGP30 {
		return "SGP30"
	}
	return fmt.Sprintf("unknown(0x%x)", uint8(p))
}

// FeatureSet is the product type and version of the device. The datasheet
// ties command availability to the version; the TVOC inceptive baseline
// commands for example need 0x21 or later.
type FeatureSet struct {
	ProductType ProductType
	Version     uint8
}

func parseFeatureSet(word uint16) FeatureSet {
	return FeatureSet{
		ProductType: ProductType(word >> 12),
		Version:     uint8(word),
	}
}

func (f FeatureSet) String() string {
	return fmt.Sprintf("%s feature set 0x%02x", f.ProductType, f.Version)
}

// SerialNumber is the 48 bit factory programmed id of the device.
type SerialNumber uint64

func (s SerialNumber) String() string {
	return fmt.Sprintf("%012x", uint64(s))
}
