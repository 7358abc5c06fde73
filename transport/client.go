// Package transport carries the storage-node RPCs the coordinator and the
// re-replication engine drive: PutBlock/GetBlock/DeleteBlock and heartbeat
// emission (§4.1, §6). Every call is bounded by a context timeout and is a
// suspension point the catalog lock must never be held across (§5).
//
// Adapted from the teacher's transport package: collect.go's continuous
// object-streaming design (a heap-scheduled idle-stream collector) doesn't
// fit this protocol's simple request/response shape, so only its doc-comment
// register, glog usage, and bounded-lifecycle discipline survive here — the
// implementation itself is new.
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"neofs/cmn"

	"github.com/pkg/errors"
)

// Default timeouts per §5: 1-3s for control messages, 3-10s for block
// transfers.
const (
	ControlTimeout = 2 * time.Second
	BlockTimeout   = 5 * time.Second
)

// Client issues RPCs to storage nodes over HTTP/JSON.
type Client struct {
	http *http.Client
}

// NewClient builds a transport Client. The underlying http.Client carries
// no default timeout of its own — every call sets its own context deadline
// instead, so a slow block transfer doesn't get cut off by a control-message
// budget or vice versa.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

func (c *Client) post(ctx context.Context, endpoint, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cmn.NewNodeError(endpoint, err)
	}
	return resp, nil
}

type blockStoreReq struct {
	BlockID string `json:"block_id"`
	Data    string `json:"data"`
}

type blockFetchReq struct {
	BlockID string `json:"block_id"`
}

type blockFetchResp struct {
	Data string `json:"data"`
}

type blockDeleteReq struct {
	BlockID string `json:"block_id"`
}

type heartbeatReq struct {
	Port string `json:"port"`
}

// PutBlock stores data under blockID on endpoint (§4.1, §6 POST /block_store).
func (c *Client) PutBlock(ctx context.Context, endpoint, blockID string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, BlockTimeout)
	defer cancel()

	body := cmn.MustMarshal(blockStoreReq{BlockID: blockID, Data: string(data)})
	resp, err := c.post(ctx, endpoint, "/block_store", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cmn.NewNodeError(endpoint, errors.Errorf("block_store: unexpected status %d", resp.StatusCode))
	}
	return nil
}

// GetBlock fetches blockID's bytes from endpoint (§4.1, §6 POST /block_fetch).
func (c *Client) GetBlock(ctx context.Context, endpoint, blockID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, BlockTimeout)
	defer cancel()

	body := cmn.MustMarshal(blockFetchReq{BlockID: blockID})
	resp, err := c.post(ctx, endpoint, "/block_fetch", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, cmn.NewNotFound("block %q not found on %s", blockID, endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, cmn.NewNodeError(endpoint, errors.Errorf("block_fetch: unexpected status %d", resp.StatusCode))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cmn.NewNodeError(endpoint, err)
	}
	var out blockFetchResp
	if err := cmn.JSON.Unmarshal(raw, &out); err != nil {
		return nil, cmn.NewNodeError(endpoint, err)
	}
	return []byte(out.Data), nil
}

// DeleteBlock removes blockID from endpoint. A 404 is not an error — delete
// is best-effort (§4.1, §6 POST /block_delete).
func (c *Client) DeleteBlock(ctx context.Context, endpoint, blockID string) error {
	ctx, cancel := context.WithTimeout(ctx, ControlTimeout)
	defer cancel()

	body := cmn.MustMarshal(blockDeleteReq{BlockID: blockID})
	resp, err := c.post(ctx, endpoint, "/block_delete", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return cmn.NewNodeError(endpoint, errors.Errorf("block_delete: unexpected status %d", resp.StatusCode))
	}
	return nil
}

// Heartbeat sends a node's heartbeat to the coordinator (§4.1, §6 POST
// /heartbeat). Failure is silently swallowed by the caller, not here — this
// just reports the error up.
func (c *Client) Heartbeat(ctx context.Context, coordinator, endpoint string) error {
	ctx, cancel := context.WithTimeout(ctx, ControlTimeout)
	defer cancel()

	body := cmn.MustMarshal(heartbeatReq{Port: endpoint})
	resp, err := c.post(ctx, coordinator, "/heartbeat", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("heartbeat: unexpected status %d", resp.StatusCode)
	}
	return nil
}
