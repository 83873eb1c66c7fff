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
	"fmt"
	"math"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/prng"
	"github.com/lorasim/lr-ns/radiomodel"
	"github.com/lorasim/lr-ns/wire"
)

// Node is one registered radio node: its position, its connection, and the
// per-receiver reception state the drop oracle and scheduler read.
type Node struct {
	Id wire.NodeId

	conn net.Conn
	rnd  *rand.Rand // radio draw stream; used only by the owning reader goroutine

	// writeMu serializes rx writes so frames to this receiver appear on its
	// stream in the order their delays elapsed.
	writeMu sync.Mutex

	// mu guards the position and the reception bookkeeping below. The
	// position is read by every sender's reader goroutine while the owning
	// connection may refresh it.
	mu             sync.Mutex
	pos            radiomodel.Position
	lastDeliveryAt time.Time
	lossStreak     map[wire.NodeId]int // consecutive drops keyed by sender
}

func newNode(id wire.NodeId, x, y float64, conn net.Conn) *Node {
	return &Node{
		Id:         id,
		pos:        radiomodel.Position{X: x, Y: y},
		conn:       conn,
		rnd:        prng.NewRadioRand(prng.NewNodeRandomSeed()),
		lossStreak: make(map[wire.NodeId]int),
	}
}

func (node *Node) String() string {
	return fmt.Sprintf("Node<%d>", node.Id)
}

// Position returns the node's current position.
func (node *Node) Position() radiomodel.Position {
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.pos
}

func (node *Node) setPosition(x, y float64) {
	node.mu.Lock()
	defer node.mu.Unlock()
	node.pos = radiomodel.Position{X: x, Y: y}
}

// sinceLastDeliveryMs returns the time since the last successful delivery
// to this node, in milliseconds, or +Inf when nothing was delivered yet.
func (node *Node) sinceLastDeliveryMs(now time.Time) float64 {
	node.mu.Lock()
	defer node.mu.Unlock()

	if node.lastDeliveryAt.IsZero() {
		return math.Inf(1)
	}
	return float64(now.Sub(node.lastDeliveryAt)) / float64(time.Millisecond)
}

// streak returns the consecutive-loss count for frames from the sender.
func (node *Node) streak(sender wire.NodeId) int {
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.lossStreak[sender]
}

// bumpStreak records one more consecutive loss from the sender.
func (node *Node) bumpStreak(sender wire.NodeId) {
	node.mu.Lock()
	defer node.mu.Unlock()
	node.lossStreak[sender]++
}

// markDelivered records a successful delivery from the sender at time now:
// the collision guard restarts and the sender's loss streak resets.
func (node *Node) markDelivered(sender wire.NodeId, now time.Time) {
	node.mu.Lock()
	defer node.mu.Unlock()
	node.lastDeliveryAt = now
	node.lossStreak[sender] = 0
}

// writeFrame writes a frame to the node's connection under the write lock,
// bounded by timeout. A write that cannot complete in time fails like a
// closed peer.
func (node *Node) writeFrame(frame interface{}, timeout time.Duration) error {
	data, err := wire.Marshal(frame)
	if err != nil {
		return err
	}

	node.writeMu.Lock()
	defer node.writeMu.Unlock()

	logger.AssertNotNil(node.conn)
	if err := node.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err = node.conn.Write(data)
	_ = node.conn.SetWriteDeadline(time.Time{})
	return err
}
