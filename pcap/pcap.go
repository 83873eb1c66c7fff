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

// Package pcap writes delivered radio frames to a PCAP capture file using
// the LoRaTap encapsulation, readable by Wireshark.
package pcap

import (
	"encoding/binary"
	"math"
	"os"
	"sync"
)

const (
	dltLoraTap          = 270
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16

	// LoRaTap v0 header: version, padding, length, frequency, bandwidth,
	// spreading factor, packet/max/current RSSI, SNR, sync word.
	loraTapHeaderSize = 15

	// LoRaTap encodes RSSI as dBm + 139.
	rssiOffsetDbm = 139
)

// Frame is a single delivered radio frame to append to a capture.
type Frame struct {
	TimestampUs  uint64
	Data         []byte
	FrequencyMhz float64
	Bandwidth    uint32 // Hz
	SpreadFactor uint8
	Rssi         float64 // dBm
	Snr          float64 // dB
}

// File is an open capture file. AppendFrame is safe for concurrent use.
type File struct {
	mu sync.Mutex
	fd *os.File
}

// NewFile creates the capture file, truncating an existing one.
func NewFile(filename string) (*File, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	f := &File{fd: fd}
	if err = f.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// AppendFrame writes one frame record with its LoRaTap header.
func (f *File) AppendFrame(frame Frame) error {
	var header [pcapFrameHeaderSize + loraTapHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], uint32(frame.TimestampUs/1000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(frame.TimestampUs%1000000))
	plen := uint32(len(frame.Data) + loraTapHeaderSize)
	binary.LittleEndian.PutUint32(header[8:12], plen)
	binary.LittleEndian.PutUint32(header[12:16], plen)

	tap := header[pcapFrameHeaderSize:]
	tap[0] = 0 // lt_version
	tap[1] = 0 // lt_padding
	binary.BigEndian.PutUint16(tap[2:4], loraTapHeaderSize)
	binary.BigEndian.PutUint32(tap[4:8], uint32(frame.FrequencyMhz*1e6))
	tap[8] = uint8(frame.Bandwidth / 125000)
	tap[9] = frame.SpreadFactor
	tap[10] = encodeRssi(frame.Rssi) // packet RSSI
	tap[11] = encodeRssi(frame.Rssi) // max RSSI
	tap[12] = encodeRssi(frame.Rssi) // current RSSI
	tap[13] = uint8(int8(math.Round(frame.Snr * 4)))
	tap[14] = 0x34 // LoRa sync word

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.fd.Write(header[:]); err != nil {
		return err
	}
	_, err := f.fd.Write(frame.Data)
	return err
}

// Sync flushes the file to disk.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fd.Sync()
}

// Close closes the capture file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fd.Close()
}

func (f *File) writeHeader() error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], 65535)
	binary.LittleEndian.PutUint32(header[20:24], dltLoraTap)
	if _, err := f.fd.Write(header[:]); err != nil {
		return err
	}
	return f.fd.Sync()
}

func encodeRssi(rssiDbm float64) uint8 {
	v := math.Round(rssiDbm) + rssiOffsetDbm
	if v < 0 {
		v = 0
	}
	if v > 254 {
		v = 254
	}
	return uint8(v)
}
