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

// Package wire defines the newline-delimited JSON frames exchanged between
// nodes and the broker.
package wire

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// NodeId is the identifier of a registered radio node (>= 1).
type NodeId int

// BroadcastNodeId is the RadioHead broadcast address. A tx frame addressed
// to it fans out to every registered node except the sender.
const BroadcastNodeId NodeId = 0xFF

const (
	FrameTypeRegister = "register"
	FrameTypeTx       = "tx"
	FrameTypeRx       = "rx"
)

// Frame is the decoded form of a single frame received from a node. Only
// the fields for the frame's Type are meaningful.
type Frame struct {
	Type     string    `json:"type"`
	NodeId   NodeId    `json:"node_id,omitempty"`  // register
	Location []float64 `json:"location,omitempty"` // register
	From     NodeId    `json:"from,omitempty"`     // tx
	Data     string    `json:"data,omitempty"`     // tx
	Meta     Meta      `json:"meta,omitempty"`     // tx
}

// RegisterFrame announces a node and its position to the broker.
type RegisterFrame struct {
	Type     string     `json:"type"`
	NodeId   NodeId     `json:"node_id"`
	Location [2]float64 `json:"location"`
}

// TxFrame carries a transmission request from a node to the broker.
type TxFrame struct {
	Type string `json:"type"`
	From NodeId `json:"from"`
	Data string `json:"data"`
	Meta Meta   `json:"meta,omitempty"`
}

// RxFrame carries a delivered transmission from the broker to a receiver.
type RxFrame struct {
	Type string  `json:"type"`
	Data string  `json:"data"`
	Rssi float64 `json:"rssi"`
	Snr  float64 `json:"snr"`
	Meta Meta    `json:"meta"`
}

// NewRegisterFrame builds a register frame for the given node.
func NewRegisterFrame(id NodeId, x, y float64) *RegisterFrame {
	return &RegisterFrame{
		Type:     FrameTypeRegister,
		NodeId:   id,
		Location: [2]float64{x, y},
	}
}

// NewTxFrame builds a tx frame from the given sender.
func NewTxFrame(from NodeId, data string, meta Meta) *TxFrame {
	return &TxFrame{
		Type: FrameTypeTx,
		From: from,
		Data: data,
		Meta: meta,
	}
}

// NewRxFrame builds an rx frame as delivered to a receiver.
func NewRxFrame(data string, rssi, snr float64, meta Meta) *RxFrame {
	return &RxFrame{
		Type: FrameTypeRx,
		Data: data,
		Rssi: rssi,
		Snr:  snr,
		Meta: meta,
	}
}

// Parse decodes a single frame line. It returns an error for JSON that does
// not parse, for an unknown frame type, and for a frame without a type.
func Parse(line []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, errors.Wrap(err, "malformed frame")
	}
	switch f.Type {
	case FrameTypeRegister, FrameTypeTx, FrameTypeRx:
		return &f, nil
	case "":
		return nil, errors.New("frame without type")
	default:
		return nil, errors.Errorf("unknown frame type %q", f.Type)
	}
}

// Marshal encodes a frame and appends the newline terminator.
func Marshal(frame interface{}) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, errors.Wrap(err, "marshal frame")
	}
	return append(data, '\n'), nil
}
