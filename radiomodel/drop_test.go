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

package radiomodel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// cleanState is a drop oracle snapshot with nothing working against the
// frame: no congestion, no streak, no same-SF traffic, no recent delivery.
func cleanState() DropState {
	return DropState{
		ActiveTransmissions: 1,
		LossStreak:          0,
		ConcurrentSameSf:    1,
		SinceLastDeliveryMs: math.Inf(1),
	}
}

// goodOutcome is a link with comfortable RSSI and SNR margins on SF7.
func goodOutcome() Outcome {
	return Outcome{DistanceKm: 1, Rssi: -50, Snr: 9}
}

func TestHardDropLowRssi(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	o := goodOutcome()
	o.Rssi = -130 // below the -123 dBm SF7 sensitivity

	d := DecideDrop(o, DefaultTxParams(24), cleanState(), rnd)
	assert.True(t, d.Dropped)
	assert.Equal(t, DropLowRssi, d.Reason)
	assert.Equal(t, 1.0, d.Probability)
}

func TestHardDropLowSnr(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	o := goodOutcome()
	o.Snr = -10 // below the -7.5 dB SF7 minimum

	d := DecideDrop(o, DefaultTxParams(24), cleanState(), rnd)
	assert.True(t, d.Dropped)
	assert.Equal(t, DropLowSnr, d.Reason)
}

func TestHardDropOutOfRange(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	o := goodOutcome()
	o.DistanceKm = 5.1 // beyond the 5 km SF7 limit

	d := DecideDrop(o, DefaultTxParams(24), cleanState(), rnd)
	assert.True(t, d.Dropped)
	assert.Equal(t, DropOutOfRange, d.Reason)
}

func TestHardDropCollisionGuard(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	st := cleanState()
	st.SinceLastDeliveryMs = CollisionGuardMs - 1

	d := DecideDrop(goodOutcome(), DefaultTxParams(24), st, rnd)
	assert.True(t, d.Dropped)
	assert.Equal(t, DropCollision, d.Reason)
}

func TestLowRssiCheckedBeforeRange(t *testing.T) {
	// a frame failing several hard conditions reports the first one.
	rnd := rand.New(rand.NewSource(1))
	o := Outcome{DistanceKm: 100, Rssi: -150, Snr: -30}

	d := DecideDrop(o, DefaultTxParams(24), cleanState(), rnd)
	assert.Equal(t, DropLowRssi, d.Reason)
}

func TestCleanLinkMostlyDelivers(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	drops := 0
	for i := 0; i < 1000; i++ {
		d := DecideDrop(goodOutcome(), DefaultTxParams(24), cleanState(), rnd)
		if d.Dropped {
			drops++
		}
	}
	assert.Less(t, drops, 10)
}

func TestLossStreakRaisesDropProbability(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	st := cleanState()
	st.LossStreak = 10 // contributes the 0.5 streak maximum

	drops := 0
	for i := 0; i < 2000; i++ {
		d := DecideDrop(goodOutcome(), DefaultTxParams(24), st, rnd)
		if d.Dropped {
			drops++
			assert.Equal(t, DropStreak, d.Reason)
		}
	}
	assert.Greater(t, drops, 800)
	assert.Less(t, drops, 1200)
}

func TestProbabilityCappedWithReasonAttribution(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	st := cleanState()
	st.LossStreak = 10      // 0.5
	st.ConcurrentSameSf = 8 // 0.7, the largest contributor

	dropped := 0
	for i := 0; i < 100; i++ {
		d := DecideDrop(goodOutcome(), DefaultTxParams(24), st, rnd)
		assert.InDelta(t, 0.98, d.Probability, 1e-9)
		if d.Dropped {
			dropped++
			assert.Equal(t, DropInterference, d.Reason)
		}
	}
	assert.Greater(t, dropped, 0)
}

func TestCongestionAboveInflightLimit(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	st := cleanState()
	st.ActiveTransmissions = 30 // quadratic ramp far above the limit

	d := DecideDrop(goodOutcome(), DefaultTxParams(24), st, rnd)
	assert.InDelta(t, 0.98, d.Probability, 1e-9)
	if d.Dropped {
		assert.Equal(t, DropCongestion, d.Reason)
	}
}

func TestAtInflightLimitNoCongestion(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	st := cleanState()
	st.ActiveTransmissions = MaxInflight

	drops := 0
	for i := 0; i < 1000; i++ {
		if DecideDrop(goodOutcome(), DefaultTxParams(24), st, rnd).Dropped {
			drops++
		}
	}
	assert.Less(t, drops, 10)
}

func TestOutOfRangeAlwaysDropped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		par := DefaultTxParams(24)
		par.SpreadFactor = rapid.IntRange(MinSpreadFactor, MaxSpreadFactor).Draw(t, "sf")

		o := Outcome{
			DistanceKm: SfMaxRangeKm(par.SpreadFactor) * rapid.Float64Range(1.001, 10).Draw(t, "over"),
			Rssi:       rapid.Float64Range(-140, 0).Draw(t, "rssi"),
			Snr:        rapid.Float64Range(-25, 10).Draw(t, "snr"),
		}
		rnd := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		assert.True(t, DecideDrop(o, par, cleanState(), rnd).Dropped)
	})
}
