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
	"bufio"
	"bytes"
	"net"

	"github.com/pkg/errors"

	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/radiomodel"
	"github.com/lorasim/lr-ns/wire"
)

// maxFrameBytes bounds a single frame line.
const maxFrameBytes = 1 << 20

var errFrameTooLong = errors.New("frame line too long")

// serveConn reads frames from one node connection until it closes. A
// malformed or oversized frame is logged and discarded; the connection
// stays open. A register frame must precede any tx.
func (b *Broker) serveConn(conn net.Conn) {
	logger.Debugf("connected from %v", conn.RemoteAddr())

	var self *Node
	rd := bufio.NewReaderSize(conn, 4096)

	for {
		line, err := readFrameLine(rd)
		if err == errFrameTooLong {
			b.Counters.Malformed.Inc()
			logger.Warnf("discarding frame from %v: %v", conn.RemoteAddr(), err)
			continue
		}
		if err != nil {
			break
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		logger.Tracef("frame from %v: %s", conn.RemoteAddr(), line)
		frame, err := wire.Parse(line)
		if err != nil {
			b.Counters.Malformed.Inc()
			logger.Warnf("discarding frame from %v: %v", conn.RemoteAddr(), err)
			continue
		}

		switch frame.Type {
		case wire.FrameTypeRegister:
			self = b.handleRegister(frame, conn, self)
		case wire.FrameTypeTx:
			if self == nil {
				b.logDrop(frame.From, 0, radiomodel.DefaultTxParams(0), nil, radiomodel.DropUnregistered)
				continue
			}
			b.processTransmission(self, frame)
		default:
			logger.Warnf("discarding %s frame from %v: wrong direction", frame.Type, conn.RemoteAddr())
		}
	}

	if self != nil {
		b.registry.remove(self.Id, conn)
		b.Counters.Disconnected.Inc()
		logger.Infof("DISCONNECT node=%d", self.Id)
	}
	_ = conn.Close()
	logger.Debugf("connection from %v closed", conn.RemoteAddr())
}

// readFrameLine reads one newline-terminated line, bounded by
// maxFrameBytes. An oversized line is consumed up to its newline and
// reported as errFrameTooLong, so the connection can continue with the
// next line.
func readFrameLine(rd *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := rd.ReadSlice('\n')
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			if len(line) > maxFrameBytes {
				return nil, discardLine(rd)
			}
			continue
		}
		return line, err
	}
}

// discardLine consumes input up to and including the next newline.
func discardLine(rd *bufio.Reader) error {
	for {
		_, err := rd.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return err
		}
		return errFrameTooLong
	}
}

// handleRegister creates or refreshes the node record for a register frame
// and returns the record now owned by this connection. A re-registration
// from a different connection replaces the old record and closes its
// connection.
func (b *Broker) handleRegister(frame *wire.Frame, conn net.Conn, self *Node) *Node {
	if frame.NodeId < 1 {
		logger.Warnf("discarding register from %v: invalid node id %d", conn.RemoteAddr(), frame.NodeId)
		return self
	}
	var x, y float64
	if len(frame.Location) >= 2 {
		x, y = frame.Location[0], frame.Location[1]
	}

	if self != nil && self.Id == frame.NodeId {
		// location refresh on the same connection keeps the record.
		self.setPosition(x, y)
		logger.Infof("REGISTER node=%d location=(%v,%v) refreshed", self.Id, x, y)
		return self
	}

	if self != nil {
		// the connection switched to a new id; the old record goes away.
		b.registry.remove(self.Id, conn)
	}

	node := newNode(frame.NodeId, x, y, conn)
	if staleConn := b.registry.register(node); staleConn != nil {
		logger.Warnf("node %d re-registered, closing previous connection", node.Id)
		_ = staleConn.Close()
	}
	b.Counters.Registered.Inc()
	logger.Infof("REGISTER node=%d location=(%v,%v)", node.Id, x, y)
	return node
}
