// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sgp30 controls a Sensirion SGP30 indoor air quality sensor over
// I²C.
//
// The sensor reports a CO₂ equivalent concentration in ppm and a total
// volatile organic compounds (TVOC) concentration in ppb. The measurement
// engine is started with InitAirQuality and then expects MeasureAirQuality
// once per second so its dynamic baseline compensation works; for the first
// 15 measurements after starting it returns the fixed values 400ppm and
// 0ppb while it warms up. SenseContinuous runs that cadence in the
// background.
//
// The compensation state can be read with Baseline, persisted, and restored
// with SetBaseline after a power cycle to skip the relearning phase.
// SetHumidity feeds the on-chip humidity compensation from an external
// humidity sensor; AbsoluteHumidity converts a temperature and relative
// humidity reading to the wire format.
//
// # Datasheet
//
// https://sensirion.com/media/documents/984E0DD5/61644B8B/Sensirion_Gas_Sensors_Datasheet_SGP30.pdf
package sgp30
