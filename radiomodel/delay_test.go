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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelayNeverBelowAirtime(t *testing.T) {
	par := DefaultTxParams(24)
	delay := DelayMs(5, 0, par, 0.5)
	assert.Greater(t, delay, AirtimeMs(par))
}

func TestDelayGrowsWithBadWeather(t *testing.T) {
	clear := DefaultTxParams(24)
	rain := DefaultTxParams(24)
	rain.Weather = "heavy-rain"

	assert.Greater(t, DelayMs(5, 0, rain, 1), DelayMs(5, 0, clear, 1))
}

func TestDelayGrowsWithObstacle(t *testing.T) {
	open := DefaultTxParams(24)
	wall := DefaultTxParams(24)
	wall.Obstacle = "concrete_203mm"

	assert.Greater(t, DelayMs(1, 0, wall, 1), DelayMs(1, 0, open, 1))
}

func TestSnrPenaltySigmoid(t *testing.T) {
	r := SfSnrRange(7)

	// a frame at the bottom of the window decodes much slower than one at
	// the top.
	assert.Greater(t, snrPenaltyMs(r.Min, 7), snrPenaltyMs(r.Max, 7))
	assert.Greater(t, snrPenaltyMs(r.Min, 7), 25.0)
	assert.Less(t, snrPenaltyMs(r.Max, 7), 1.0)
}

func TestHwDelayGrowsWithSpreadFactor(t *testing.T) {
	lo := DefaultTxParams(24)
	hi := DefaultTxParams(24)
	hi.SpreadFactor = 12
	assert.Greater(t, hwDelayMs(hi), hwDelayMs(lo))
}

func TestJitterRangeScalesWithSpreadFactor(t *testing.T) {
	lo7, hi7 := jitterRangeMs(7)
	assert.Equal(t, 0.5, lo7)
	assert.Equal(t, 3.0, hi7)

	lo12, hi12 := jitterRangeMs(12)
	assert.InDelta(t, 0.5*12.0/7.0, lo12, 1e-9)
	assert.InDelta(t, 3.0*12.0/7.0, hi12, 1e-9)
}
