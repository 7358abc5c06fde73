// Package liveness maintains the node and client registries described in
// spec §4.2: per-node alive/dead state derived from heartbeat recency, and a
// per-client last-seen timestamp used only to report an active-client count.
//
// Both registries are guarded by the single mutex the rest of the
// coordinator (catalog, file index) also uses — see §5 ("a single mutex...
// guards the node registry, the client registry, and the file index"). This
// package owns that mutex and exposes Lock/Unlock so catalog.Catalog can
// fold its own file-index critical sections into the same lock, matching
// the teacher's practice of bracketing a mutation under one lock for the
// in-memory part, then fanning network I/O out afterward (ais/prxtxn.go).
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package liveness

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"
)

// Node is the coordinator's view of one storage node (§3).
type Node struct {
	Endpoint      string
	Alive         bool
	LastHeartbeat time.Time
}

// Client is the coordinator's view of one active client (§3).
type Client struct {
	ID            string
	LastHeartbeat time.Time
}

// Config holds the timeout/period parameters spec §4.2 recommends as
// defaults.
type Config struct {
	NodeTimeout   time.Duration
	ClientTimeout time.Duration
	SweepInterval time.Duration
}

// DefaultConfig matches the recommended defaults in §4.2.
func DefaultConfig() Config {
	return Config{
		NodeTimeout:   5 * time.Second,
		ClientTimeout: 6 * time.Second,
		SweepInterval: 2 * time.Second,
	}
}

// Tracker owns the node and client registries plus the single mutex that
// also guards the file index in the catalog package.
type Tracker struct {
	mu sync.Mutex

	cfg     Config
	nodes   map[string]*Node
	clients map[string]*Client

	heartbeatsRecv  atomic.Uint64
	transitionsSeen atomic.Uint64
}

// NewTracker seeds the node registry from the static roster (§3: "Created at
// coordinator start from the static node roster").
func NewTracker(cfg Config, roster []string) *Tracker {
	t := &Tracker{
		cfg:     cfg,
		nodes:   make(map[string]*Node, len(roster)),
		clients: make(map[string]*Client),
	}
	for _, ep := range roster {
		t.nodes[ep] = &Node{Endpoint: ep, Alive: false}
	}
	return t
}

// Lock/Unlock expose the tracker's mutex so catalog.Catalog can guard its
// own file-index mutations under the same single lock (§5).
func (t *Tracker) Lock()   { t.mu.Lock() }
func (t *Tracker) Unlock() { t.mu.Unlock() }

// Heartbeat ingests a node heartbeat, admitting unknown endpoints as new
// UP nodes (§4.2: "An unknown endpoint that heartbeats is admitted as a new
// node in state UP").
func (t *Tracker) Heartbeat(endpoint string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heartbeatsRecv.Inc()

	n, ok := t.nodes[endpoint]
	if !ok {
		n = &Node{Endpoint: endpoint}
		t.nodes[endpoint] = n
	}
	if !n.Alive {
		t.transitionsSeen.Inc()
		glog.Infof("node %s: DOWN -> UP", endpoint)
	}
	n.Alive = true
	n.LastHeartbeat = now
}

// ClientHeartbeat refreshes (or creates) a client's last-seen timestamp.
func (t *Tracker) ClientHeartbeat(id string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[id] = &Client{ID: id, LastHeartbeat: now}
}

// Sweep marks nodes whose heartbeat has gone stale as DOWN and evicts
// clients past their timeout (§4.2). Returns the number of node down
// transitions observed, for logging.
func (t *Tracker) Sweep(now time.Time) (downTransitions int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ep, n := range t.nodes {
		if n.Alive && now.Sub(n.LastHeartbeat) > t.cfg.NodeTimeout {
			n.Alive = false
			downTransitions++
			t.transitionsSeen.Inc()
			glog.Infof("node %s: UP -> DOWN (no heartbeat for %s)", ep, now.Sub(n.LastHeartbeat))
		}
	}
	for id, c := range t.clients {
		if now.Sub(c.LastHeartbeat) > t.cfg.ClientTimeout {
			delete(t.clients, id)
		}
	}
	return downTransitions
}

// Status returns the §6 /status shape: endpoint -> "UP"|"DOWN", plus the
// count of clients considered active right now.
func (t *Tracker) Status() (nodes map[string]string, activeClients int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodes = make(map[string]string, len(t.nodes))
	for ep, n := range t.nodes {
		if n.Alive {
			nodes[ep] = "UP"
		} else {
			nodes[ep] = "DOWN"
		}
	}
	now := time.Now()
	for _, c := range t.clients {
		if now.Sub(c.LastHeartbeat) <= t.cfg.ClientTimeout {
			activeClients++
		}
	}
	return nodes, activeClients
}

// AliveEndpointsLocked returns the currently-alive endpoint set. The caller
// must already hold the tracker's lock (via Lock()) — used by catalog while
// it holds the shared lock for placement and locate ordering.
func (t *Tracker) AliveEndpointsLocked() []string {
	alive := make([]string, 0, len(t.nodes))
	for ep, n := range t.nodes {
		if n.Alive {
			alive = append(alive, ep)
		}
	}
	return alive
}

// IsAliveLocked reports whether endpoint is currently alive. The caller must
// already hold the tracker's lock.
func (t *Tracker) IsAliveLocked(endpoint string) bool {
	n, ok := t.nodes[endpoint]
	return ok && n.Alive
}

// AliveEndpoints takes its own lock; a convenience for callers that aren't
// otherwise touching the catalog under the same critical section. (The
// catalog's snapshot step calls AliveEndpointsLocked under its own lock.)
func (t *Tracker) AliveEndpoints() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.AliveEndpointsLocked()
}

// HeartbeatsReceived and DownUpTransitions are internal operational
// counters (§4.2), not part of the §6 wire contract.
func (t *Tracker) HeartbeatsReceived() uint64  { return t.heartbeatsRecv.Load() }
func (t *Tracker) DownUpTransitions() uint64   { return t.transitionsSeen.Load() }
