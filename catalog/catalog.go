// Package catalog implements the in-memory metadata catalog and placement
// policy from spec §3/§4.3: a mapping from filename to file entry, guarded
// by the single lock the liveness tracker also uses for the node and client
// registries (§5). Catalog embeds *liveness.Tracker precisely so that a
// single mutex brackets all three maps, matching the teacher's discipline
// of bracketing an in-memory mutation under one lock and performing network
// fan-out strictly outside it (ais/prxtxn.go).
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package catalog

import (
	"neofs/cmn"
	"neofs/liveness"

	"github.com/NebulousLabs/fastrand"
)

// BlockDescriptor is one block's id and current replica set (§3).
type BlockDescriptor struct {
	ID       string
	Replicas []string // ordered, duplicate-free
}

// FileEntry is the catalog's record for one uploaded file (§3).
type FileEntry struct {
	Filename          string
	ReplicationFactor int
	Size              int
	BlockSize         int
	Blocks            []BlockDescriptor
}

// clone deep-copies a FileEntry so snapshot readers (the re-replication
// engine) never observe a slice the catalog might mutate underneath them.
func (f *FileEntry) clone() *FileEntry {
	out := *f
	out.Blocks = make([]BlockDescriptor, len(f.Blocks))
	for i, b := range f.Blocks {
		out.Blocks[i] = BlockDescriptor{ID: b.ID, Replicas: append([]string(nil), b.Replicas...)}
	}
	return &out
}

// Catalog is the coordinator's authoritative metadata store.
type Catalog struct {
	*liveness.Tracker
	files map[string]*FileEntry
}

// New creates a Catalog sharing cfg's liveness timeouts and seeded with
// roster as the initial node registry (§3: "Created at coordinator start
// from the static node roster").
func New(cfg liveness.Config, roster []string) *Catalog {
	return &Catalog{
		Tracker: liveness.NewTracker(cfg, roster),
		files:   make(map[string]*FileEntry),
	}
}

// UploadRequest is the validated input to Upload (§4.3).
type UploadRequest struct {
	Filename          string
	ReplicationFactor int
	NumBlocks         int
	Size              int
	BlockSize         int
}

// Upload allocates placement for a new (or replaced) file. It never touches
// the network — the caller pushes block bytes to the returned replicas
// itself (§4.3 step 5).
func (c *Catalog) Upload(req UploadRequest) (*FileEntry, error) {
	if req.ReplicationFactor < 1 {
		return nil, cmn.NewBadRequest("replication_factor must be >= 1")
	}
	if req.NumBlocks < 1 {
		return nil, cmn.NewBadRequest("num_blocks must be >= 1")
	}
	if req.BlockSize <= 0 {
		return nil, cmn.NewBadRequest("block_size must be > 0")
	}

	c.Lock()
	defer c.Unlock()

	alive := c.AliveEndpointsLocked()
	if req.ReplicationFactor > len(alive) {
		return nil, cmn.NewInsufficientNodes(len(alive), req.ReplicationFactor)
	}

	blocks := make([]BlockDescriptor, req.NumBlocks)
	for i := 0; i < req.NumBlocks; i++ {
		blocks[i] = BlockDescriptor{
			ID:       cmn.BlockID(req.Filename, i),
			Replicas: sampleDistinct(alive, req.ReplicationFactor),
		}
	}

	entry := &FileEntry{
		Filename:          req.Filename,
		ReplicationFactor: req.ReplicationFactor,
		Size:              req.Size,
		BlockSize:         req.BlockSize,
		Blocks:            blocks,
	}
	// Replacing an existing entry silently orphans its prior blocks on disk
	// (§9 "Filename reuse", resolved as option (a) — see DESIGN.md).
	c.files[req.Filename] = entry
	return entry.clone(), nil
}

// LocatedBlock is one block as returned by Locate: replicas ordered
// alive-first, then dead-last (§4.3, §9).
type LocatedBlock struct {
	ID       string
	Replicas []string
}

// Locate returns filename's block layout with each block's replicas
// reordered alive-first/dead-last (§4.3).
func (c *Catalog) Locate(filename string) (*FileEntry, []LocatedBlock, error) {
	c.Lock()
	defer c.Unlock()

	entry, ok := c.files[filename]
	if !ok {
		return nil, nil, cmn.NewNotFound("file %q not found", filename)
	}

	out := make([]LocatedBlock, len(entry.Blocks))
	for i, b := range entry.Blocks {
		out[i] = LocatedBlock{ID: b.ID, Replicas: orderAliveFirst(b.Replicas, c)}
	}
	return entry.clone(), out, nil
}

// orderAliveFirst partitions replicas into alive-first/dead-last while
// preserving relative order within each group (§4.3, §9). Caller must
// already hold the lock.
func orderAliveFirst(replicas []string, c *Catalog) []string {
	alive := make([]string, 0, len(replicas))
	dead := make([]string, 0, len(replicas))
	for _, ep := range replicas {
		if c.IsAliveLocked(ep) {
			alive = append(alive, ep)
		} else {
			dead = append(dead, ep)
		}
	}
	return append(alive, dead...)
}

// List returns a snapshot of every file entry (§4.3).
func (c *Catalog) List() map[string]*FileEntry {
	c.Lock()
	defer c.Unlock()

	out := make(map[string]*FileEntry, len(c.files))
	for name, entry := range c.files {
		out[name] = entry.clone()
	}
	return out
}

// Delete atomically removes filename's entry and returns the block
// descriptors it held, so the caller can fan out best-effort block deletes
// outside the lock (§4.3, §5).
func (c *Catalog) Delete(filename string) ([]BlockDescriptor, error) {
	c.Lock()
	defer c.Unlock()

	entry, ok := c.files[filename]
	if !ok {
		return nil, cmn.NewNotFound("file %q not found", filename)
	}
	delete(c.files, filename)

	out := make([]BlockDescriptor, len(entry.Blocks))
	for i, b := range entry.Blocks {
		out[i] = BlockDescriptor{ID: b.ID, Replicas: append([]string(nil), b.Replicas...)}
	}
	return out, nil
}

// Snapshot is an immutable, deep-copied view of the catalog and the alive
// set, used by the re-replication engine so it never holds the catalog lock
// across network I/O (§4.4, §9 "Snapshot-then-act pattern").
type Snapshot struct {
	Alive map[string]bool
	Files map[string]*FileEntry
}

// TakeSnapshot captures (alive-endpoint set, deep copy of the catalog) under
// the lock, then releases it (§4.4 step 1).
func (c *Catalog) TakeSnapshot() Snapshot {
	c.Lock()
	defer c.Unlock()

	alive := make(map[string]bool, len(c.files))
	for _, ep := range c.AliveEndpointsLocked() {
		alive[ep] = true
	}
	files := make(map[string]*FileEntry, len(c.files))
	for name, entry := range c.files {
		files[name] = entry.clone()
	}
	return Snapshot{Alive: alive, Files: files}
}

// AppendReplica re-acquires the lock to append dst to blockID's replica set,
// provided the file and block still exist (they may have been deleted
// concurrently — §4.4 step 2, last bullet). It is a no-op, not an error, if
// dst is already present or the file/block is gone.
func (c *Catalog) AppendReplica(filename, blockID, dst string) {
	c.Lock()
	defer c.Unlock()

	entry, ok := c.files[filename]
	if !ok {
		return
	}
	for i := range entry.Blocks {
		if entry.Blocks[i].ID != blockID {
			continue
		}
		for _, ep := range entry.Blocks[i].Replicas {
			if ep == dst {
				return
			}
		}
		entry.Blocks[i].Replicas = append(entry.Blocks[i].Replicas, dst)
		return
	}
}

// sampleDistinct draws n distinct entries from pool without replacement,
// using fastrand for the shuffle (§4.3: "uniform random sampling without
// replacement"). Caller guarantees len(pool) >= n.
func sampleDistinct(pool []string, n int) []string {
	idx := fastrand.Perm(len(pool))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = pool[idx[i]]
	}
	return out
}
