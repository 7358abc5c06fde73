// Package fs validates and owns the single storage-root directory a storage
// node writes its blocks under. Adapted from the teacher's multi-mountpath
// abstraction (fs.MountedFS), collapsed to the one root this spec needs —
// storage nodes here have no multi-disk spanning, so there is nothing to
// add/remove/rebalance across.
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package fs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Root is a validated, existing storage directory.
type Root struct {
	path string
}

// NewRoot validates path is absolute and ensures it exists (creating it if
// necessary), matching the teacher's Add() semantics: an existing directory
// is accepted as-is, a missing one is an error unless it can be created, and
// a relative path is always rejected.
func NewRoot(path string) (*Root, error) {
	if !filepath.IsAbs(path) {
		return nil, errors.Errorf("storage root %q must be an absolute path", path)
	}
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, errors.Errorf("storage root %q is not a directory", path)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating storage root %q", path)
		}
	default:
		return nil, errors.Wrapf(err, "statting storage root %q", path)
	}
	return &Root{path: path}, nil
}

// Path returns the absolute storage directory.
func (r *Root) Path() string { return r.path }

// BlockPath returns the on-disk path for a (sanitized) block id, per §6's
// on-disk layout: "<storage_root>/<sanitized_block_id>.blk".
func (r *Root) BlockPath(sanitizedID string) string {
	return filepath.Join(r.path, sanitizedID+".blk")
}
