// Package idgen hands out time-sortable 63-bit IDs (a simplified Snowflake).
// Click IDs come from here so they are known before the row is written.
package idgen

import (
	"fmt"
	"sync"
	"time"
)

const (
	customEpoch int64 = 1704067200000 // Jan 1, 2024
	nodeIDBits  uint  = 10
	seqBits     uint  = 12
	maxNodeID   int64 = -1 ^ (-1 << nodeIDBits)
	maxSeq      int64 = -1 ^ (-1 << seqBits)
)

type Generator struct {
	mu        sync.Mutex
	lastStamp int64
	nodeID    int64
	seq       int64
	now       func() time.Time
}

func New(nodeID int64) (*Generator, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("node id %d out of range [0, %d]", nodeID, maxNodeID)
	}
	return &Generator{nodeID: nodeID, now: time.Now}, nil
}

func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli()
	if ts < g.lastStamp {
		// clock went backwards
		ts = g.wait()
	}
	if ts == g.lastStamp {
		g.seq = (g.seq + 1) & maxSeq
		if g.seq == 0 {
			ts = g.wait()
		}
	} else {
		g.seq = 0
	}
	g.lastStamp = ts

	return ((ts - customEpoch) << (nodeIDBits + seqBits)) |
		(g.nodeID << seqBits) |
		g.seq, nil
}

func (g *Generator) wait() int64 {
	ts := g.now().UnixMilli()
	for ts <= g.lastStamp {
		time.Sleep(time.Millisecond)
		ts = g.now().UnixMilli()
	}
	return ts
}
