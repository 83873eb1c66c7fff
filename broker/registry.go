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
	"net"
	"sync"

	"github.com/lorasim/lr-ns/logger"
	"github.com/lorasim/lr-ns/wire"
)

// registry maps node ids to their records. Lookups take the read lock;
// register and remove take the write lock.
type registry struct {
	mu    sync.RWMutex
	nodes map[wire.NodeId]*Node
}

func newRegistry() *registry {
	return &registry{
		nodes: make(map[wire.NodeId]*Node),
	}
}

// register inserts node, replacing any record with the same id. It returns
// the connection of the replaced record when that connection differs from
// the new one; the caller must close it.
func (r *registry) register(node *Node) net.Conn {
	logger.AssertTrue(node.Id >= 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	var staleConn net.Conn
	if prev, ok := r.nodes[node.Id]; ok && prev.conn != node.conn {
		staleConn = prev.conn
	}
	r.nodes[node.Id] = node
	return staleConn
}

func (r *registry) lookup(id wire.NodeId) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	return node, ok
}

// listExcept returns all registered nodes except the one with the given id.
func (r *registry) listExcept(id wire.NodeId) []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]*Node, 0, len(r.nodes))
	for nid, node := range r.nodes {
		if nid != id {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (r *registry) list() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]*Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// remove deletes the record for id, but only while it still belongs to
// conn: a record replaced by a re-registration stays. Idempotent.
func (r *registry) remove(id wire.NodeId, conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok || node.conn != conn {
		return false
	}
	delete(r.nodes, id)
	return true
}
