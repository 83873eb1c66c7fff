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

package broker

import (
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lorasim/lr-ns/prng"
	"github.com/lorasim/lr-ns/wire"
)

func testConnPair(t *testing.T) (net.Conn, net.Conn) {
	c1, c2 := net.Pipe()
	t.Cleanup(func() {
		_ = c1.Close()
		_ = c2.Close()
	})
	return c1, c2
}

func TestRegistryRegisterLookup(t *testing.T) {
	prng.Init(1)
	r := newRegistry()
	conn, _ := testConnPair(t)

	node := newNode(1, 0, 0, conn)
	assert.Nil(t, r.register(node))
	assert.Equal(t, 1, r.count())

	got, ok := r.lookup(1)
	assert.True(t, ok)
	assert.Equal(t, node, got)

	_, ok = r.lookup(2)
	assert.False(t, ok)
}

func TestRegistryReplaceReturnsStaleConn(t *testing.T) {
	prng.Init(1)
	r := newRegistry()
	oldConn, _ := testConnPair(t)
	newConn, _ := testConnPair(t)

	assert.Nil(t, r.register(newNode(1, 0, 0, oldConn)))
	stale := r.register(newNode(1, 1, 1, newConn))
	assert.Equal(t, oldConn, stale)
	assert.Equal(t, 1, r.count())
}

func TestRegistryRemoveGuardedByConn(t *testing.T) {
	prng.Init(1)
	r := newRegistry()
	oldConn, _ := testConnPair(t)
	newConn, _ := testConnPair(t)

	_ = r.register(newNode(1, 0, 0, oldConn))
	_ = r.register(newNode(1, 0, 0, newConn))

	// the stale reader's cleanup must not remove the replacement record.
	assert.False(t, r.remove(1, oldConn))
	assert.Equal(t, 1, r.count())

	assert.True(t, r.remove(1, newConn))
	assert.Equal(t, 0, r.count())
	assert.False(t, r.remove(1, newConn))
}

func TestRegistryListExcept(t *testing.T) {
	prng.Init(1)
	r := newRegistry()
	for id := wire.NodeId(1); id <= 3; id++ {
		conn, _ := testConnPair(t)
		_ = r.register(newNode(id, 0, 0, conn))
	}

	peers := r.listExcept(2)
	assert.Len(t, peers, 2)
	for _, p := range peers {
		assert.NotEqual(t, wire.NodeId(2), p.Id)
	}
	assert.Len(t, r.list(), 3)
}

func TestNodeReceptionBookkeeping(t *testing.T) {
	prng.Init(1)
	conn, _ := testConnPair(t)
	node := newNode(1, 0, 0, conn)

	assert.True(t, math.IsInf(node.sinceLastDeliveryMs(time.Now()), 1))
	assert.Equal(t, 0, node.streak(2))

	node.bumpStreak(2)
	node.bumpStreak(2)
	node.bumpStreak(3)
	assert.Equal(t, 2, node.streak(2))
	assert.Equal(t, 1, node.streak(3))

	now := time.Now()
	node.markDelivered(2, now)
	assert.Equal(t, 0, node.streak(2))
	assert.Equal(t, 1, node.streak(3)) // other senders keep their streaks

	since := node.sinceLastDeliveryMs(now.Add(10 * time.Millisecond))
	assert.InDelta(t, 10, since, 0.001)
}
