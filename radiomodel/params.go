// Copyright (c) 2025, The LR-NS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package radiomodel computes the observable physical behavior of a LoRa
// link: RSSI, SNR, time-on-air, delivery delay, and the drop decision for a
// frame between two positioned nodes.
package radiomodel

// DbValue is a dB or dBm value within the radio model.
type DbValue = float64

// Fixed radio parameters of the simulated medium.
const (
	BandwidthHz     = 125000
	NoiseFigureDb   = 6.0
	MinSpreadFactor = 7
	MaxSpreadFactor = 12
)

// Defaults for recognized tx meta options that are absent from a frame.
const (
	DefaultTxPowerDbm   = 23
	DefaultSpreadFactor = 7
	DefaultFrequencyMhz = 915.0
	DefaultAqi          = 50
	DefaultWeather      = "clear"
	DefaultObstacle     = "open"
	DefaultCodingRate   = 1
	DefaultPreambleSyms = 8
)

// SnrRange bounds the viable SNR window of a spreading factor.
type SnrRange struct {
	Min DbValue
	Max DbValue
}

// sfSensitivityDbm is the minimum viable RSSI per spreading factor.
var sfSensitivityDbm = map[int]DbValue{
	7: -123, 8: -126, 9: -129, 10: -132, 11: -134.5, 12: -137,
}

// sfSnrRanges is the viable SNR window per spreading factor.
var sfSnrRanges = map[int]SnrRange{
	7:  {-7.5, 10},
	8:  {-10, 9},
	9:  {-12.5, 8},
	10: {-15, 7},
	11: {-17.5, 6},
	12: {-20, 5},
}

// sfMaxRangeKm is the hard range limit per spreading factor.
var sfMaxRangeKm = map[int]float64{
	7: 5, 8: 8, 9: 12, 10: 16, 11: 20, 12: 25,
}

// weatherAttenDbPerKm is the attenuation per km of the recognized weather
// conditions. Unknown conditions attenuate like clear air.
var weatherAttenDbPerKm = map[string]DbValue{
	"clear":         0.0,
	"fog":           0.02,
	"light-rain":    0.05,
	"moderate-rain": 0.10,
	"heavy-rain":    0.20,
}

// obstacleLossDb is the empirical penetration loss table. Unknown obstacle
// keys contribute 0 dB.
var obstacleLossDb = map[string]DbValue{
	"glass_6mm":                0.8,
	"glass_13mm":               2,
	"wood_76mm":                2.8,
	"brick_89mm":               3.5,
	"brick_102mm":              5,
	"brick_178mm":              7,
	"brick_267mm":              12,
	"stone_wall_203mm":         12,
	"brick_concrete_192mm":     14,
	"stone_wall_406mm":         17,
	"concrete_203mm":           23,
	"reinforced_concrete_89mm": 27,
	"stone_wall_610mm":         28,
	"concrete_305mm":           35,
	"open":                     0,
}

// SfSensitivity returns the minimum viable RSSI (dBm) for sf.
func SfSensitivity(sf int) DbValue {
	return sfSensitivityDbm[clampSf(sf)]
}

// SfSnrRange returns the viable SNR window for sf.
func SfSnrRange(sf int) SnrRange {
	return sfSnrRanges[clampSf(sf)]
}

// SfMaxRangeKm returns the hard range limit (km) for sf.
func SfMaxRangeKm(sf int) float64 {
	return sfMaxRangeKm[clampSf(sf)]
}

// WeatherAtten returns the dB/km attenuation of a weather condition.
func WeatherAtten(weather string) DbValue {
	return weatherAttenDbPerKm[weather]
}

// ObstacleLoss returns the penetration loss (dB) of an obstacle key.
func ObstacleLoss(obstacle string) DbValue {
	return obstacleLossDb[obstacle]
}

func clampSf(sf int) int {
	if sf < MinSpreadFactor {
		return MinSpreadFactor
	}
	if sf > MaxSpreadFactor {
		return MaxSpreadFactor
	}
	return sf
}

// TxParams are the transmission options of a single frame, with defaults
// applied for options the sender omitted.
type TxParams struct {
	TxPowerDbm   int
	SpreadFactor int
	FrequencyMhz float64
	Aqi          int
	Weather      string
	Obstacle     string
	CodingRate   int
	PreambleSyms int
	PayloadBytes int
}

// DefaultTxParams returns the option set of a frame carrying no meta keys,
// with the given payload size.
func DefaultTxParams(payloadBytes int) TxParams {
	return TxParams{
		TxPowerDbm:   DefaultTxPowerDbm,
		SpreadFactor: DefaultSpreadFactor,
		FrequencyMhz: DefaultFrequencyMhz,
		Aqi:          DefaultAqi,
		Weather:      DefaultWeather,
		Obstacle:     DefaultObstacle,
		CodingRate:   DefaultCodingRate,
		PreambleSyms: DefaultPreambleSyms,
		PayloadBytes: payloadBytes,
	}
}
