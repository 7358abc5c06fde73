// Package storagenode implements the storage node from spec §4.1: a
// single-purpose, durable, per-block key→bytes store with a small
// request/response protocol, plus the periodic heartbeat emitter that
// registers the node with the coordinator.
//
// Grounded directly in original_source/node.py, which this package mirrors
// operation-for-operation (block_store/block_fetch/block_delete/shutdown,
// heartbeat-every-1s, UTF-8 text payloads) — the Python original has no
// ambient stack around it, so the logging/routing/error layers here are
// grounded in the teacher (rajatrh-aistore) instead.
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package storagenode

import (
	"os"

	"neofs/cmn"
	"neofs/fs"

	"github.com/pkg/errors"
)

// Store is the node's durable block store: one file per block at
// "<storage_root>/<sanitized_block_id>.blk" (§6 on-disk layout). It is
// stateless beyond the storage directory — a restart needs no recovery step
// because every operation re-derives the path from the block id (§4.1).
type Store struct {
	root *fs.Root
}

// NewStore opens (creating if necessary) the block store rooted at dir.
func NewStore(dir string) (*Store, error) {
	root, err := fs.NewRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Put overwrites any existing block with this id (§4.1: "Succeeds unless
// the underlying disk write fails. Idempotent over byte-identical writes.").
func (s *Store) Put(blockID string, data []byte) error {
	path := s.root.BlockPath(cmn.SanitizeBlockID(blockID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "storing block %q", blockID)
	}
	return nil
}

// Get returns the stored bytes for blockID, or a *cmn.Error of kind
// KindNotFound if it was never stored or has been deleted (§4.1).
func (s *Store) Get(blockID string) ([]byte, error) {
	path := s.root.BlockPath(cmn.SanitizeBlockID(blockID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmn.NewNotFound("block %q not found", blockID)
		}
		return nil, errors.Wrapf(err, "fetching block %q", blockID)
	}
	return data, nil
}

// Delete removes blockID. Per §4.1, a missing block is not treated as an
// error by the caller (delete is best-effort) — Delete still reports
// NotFound so the HTTP handler can choose the right status code, but the
// coordinator's fan-out never surfaces it as a failure.
func (s *Store) Delete(blockID string) error {
	path := s.root.BlockPath(cmn.SanitizeBlockID(blockID))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return cmn.NewNotFound("block %q not found", blockID)
		}
		return errors.Wrapf(err, "deleting block %q", blockID)
	}
	return nil
}
