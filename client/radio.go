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

// Package client implements a node-side radio handle that speaks the broker
// wire protocol. It mirrors the RFM9x driver surface: send, receive, and
// reliable datagrams with ACK and retry.
package client

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/lorasim/lr-ns/wire"
)

// FlagAck marks a frame as an acknowledgement in the RadioHead flags byte.
const FlagAck = 0x80

const ackPayload = "!"

// Radio is one simulated radio attached to a broker. Its exported fields
// may be adjusted between calls; a Radio is not safe for concurrent use.
type Radio struct {
	NodeId wire.NodeId

	// Transmit configuration applied to every outgoing frame.
	TxPowerDbm   int
	SpreadFactor int
	FrequencyMhz float64
	// Destination is the default unicast target; BroadcastNodeId fans out
	// to every node.
	Destination wire.NodeId
	// ExtraMeta is merged into the meta of every outgoing frame; it may
	// carry environment options (weather, aqi, obstacle) or free-form keys.
	ExtraMeta wire.Meta

	// Reliable datagram tuning.
	AckWait    time.Duration
	AckRetries int

	// Telemetry from the last received frame.
	LastRssi float64
	LastSnr  float64

	conn       net.Conn
	rd         *bufio.Reader
	identifier uint8
	pending    []byte
}

// Packet is one received frame with its RadioHead-style header fields and
// the link telemetry the broker measured.
type Packet struct {
	Data        []byte
	From        wire.NodeId
	Destination wire.NodeId
	Identifier  uint8
	Flags       uint8
	Rssi        float64
	Snr         float64
}

// Dial connects to the broker at addr and registers the node at position
// (x, y) km.
func Dial(addr string, id wire.NodeId, x, y float64) (*Radio, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial broker %s", addr)
	}

	r := &Radio{
		NodeId:       id,
		TxPowerDbm:   23,
		SpreadFactor: 7,
		FrequencyMhz: 915.0,
		Destination:  wire.BroadcastNodeId,
		AckWait:      500 * time.Millisecond,
		AckRetries:   5,
		conn:         conn,
		rd:           bufio.NewReader(conn),
	}
	if err := r.writeFrame(wire.NewRegisterFrame(id, x, y)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the broker connection.
func (r *Radio) Close() error {
	return r.conn.Close()
}

// Send transmits data to the radio's default destination.
func (r *Radio) Send(data []byte) error {
	return r.SendTo(data, r.Destination)
}

// Broadcast transmits data to every registered node.
func (r *Radio) Broadcast(data []byte) error {
	return r.SendTo(data, wire.BroadcastNodeId)
}

// SendTo transmits data to dest.
func (r *Radio) SendTo(data []byte, dest wire.NodeId) error {
	return r.send(data, dest, r.identifier, 0)
}

func (r *Radio) send(data []byte, dest wire.NodeId, identifier, flags uint8) error {
	meta := wire.Meta{
		"destination": int(dest),
		"node":        int(r.NodeId),
		"identifier":  int(identifier),
		"flags":       int(flags),
		"tx_power":    r.TxPowerDbm,
		"sf":          r.SpreadFactor,
		"frequency":   r.FrequencyMhz,
	}
	for k, v := range r.ExtraMeta {
		meta[k] = v
	}
	return r.writeFrame(wire.NewTxFrame(r.NodeId, string(data), meta))
}

// Receive waits up to timeout for one delivered frame. It returns
// (nil, nil) when nothing arrives in time.
func (r *Radio) Receive(timeout time.Duration) (*Packet, error) {
	return r.receive(timeout, false)
}

// ReceiveWithAck behaves like Receive and additionally acknowledges a
// received unicast frame that is not itself an ACK.
func (r *Radio) ReceiveWithAck(timeout time.Duration) (*Packet, error) {
	return r.receive(timeout, true)
}

func (r *Radio) receive(timeout time.Duration, withAck bool) (*Packet, error) {
	line, err := r.readLine(timeout)
	if err != nil || line == nil {
		return nil, err
	}

	var frame wire.RxFrame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, errors.Wrap(err, "malformed rx frame")
	}

	r.LastRssi = frame.Rssi
	r.LastSnr = frame.Snr

	pkt := &Packet{
		Data:        []byte(frame.Data),
		From:        wire.NodeId(frame.Meta.Int("node", int(frame.Meta.Int("from", 0)))),
		Destination: wire.NodeId(frame.Meta.Int("destination", int(wire.BroadcastNodeId))),
		Identifier:  uint8(frame.Meta.Int("identifier", 0)),
		Flags:       uint8(frame.Meta.Int("flags", 0)),
		Rssi:        frame.Rssi,
		Snr:         frame.Snr,
	}

	if withAck && pkt.Flags&FlagAck == 0 && pkt.Destination != wire.BroadcastNodeId {
		if err := r.send([]byte(ackPayload), pkt.From, pkt.Identifier, pkt.Flags|FlagAck); err != nil {
			return pkt, err
		}
	}
	return pkt, nil
}

// SendWithAck transmits data to the radio's default destination and waits
// for an acknowledgement, retrying up to AckRetries times. A broadcast
// destination succeeds without waiting.
func (r *Radio) SendWithAck(data []byte) (bool, error) {
	r.identifier++
	for attempt := 0; attempt < r.AckRetries; attempt++ {
		if err := r.send(data, r.Destination, r.identifier, 0); err != nil {
			return false, err
		}
		if r.Destination == wire.BroadcastNodeId {
			return true, nil
		}

		deadline := time.Now().Add(r.AckWait)
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			pkt, err := r.Receive(remaining)
			if err != nil {
				return false, err
			}
			if pkt == nil {
				break
			}
			if pkt.Flags&FlagAck != 0 && pkt.Identifier == r.identifier {
				return true, nil
			}
			// some other frame arrived while waiting; keep waiting.
		}
	}
	return false, nil
}

func (r *Radio) writeFrame(frame interface{}) error {
	data, err := wire.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = r.conn.Write(data)
	return errors.Wrap(err, "write frame")
}

// readLine reads one newline-terminated frame, keeping a partial line
// across timeouts. It returns (nil, nil) on timeout.
func (r *Radio) readLine(timeout time.Duration) ([]byte, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	chunk, err := r.rd.ReadBytes('\n')
	r.pending = append(r.pending, chunk...)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read frame")
	}
	line := r.pending
	r.pending = nil
	return line, nil
}
