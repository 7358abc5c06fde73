package storagenode

import (
	"context"
	"io"
	"net/http"
	"time"

	"neofs/cmn"
	"neofs/transport"

	"github.com/NebulousLabs/threadgroup"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
)

// Node ties the block Store to the §6 HTTP surface and the heartbeat
// emitter (§4.1). endpoint is this node's own "host:port" identity, sent in
// every heartbeat.
type Node struct {
	endpoint    string
	coordinator string
	store       *Store
	client      *transport.Client
	tg          *threadgroup.ThreadGroup
}

// NewNode wires a Store to an HTTP handler and heartbeat loop.
func NewNode(endpoint, coordinator string, store *Store) *Node {
	return &Node{
		endpoint:    endpoint,
		coordinator: coordinator,
		store:       store,
		client:      transport.NewClient(),
		tg:          &threadgroup.ThreadGroup{},
	}
}

// Handler returns the httprouter-routed HTTP handler for §6's storage-node
// endpoints.
func (n *Node) Handler() http.Handler {
	r := httprouter.New()
	r.POST("/block_store", n.handleBlockStore)
	r.POST("/block_fetch", n.handleBlockFetch)
	r.POST("/block_delete", n.handleBlockDelete)
	r.POST("/shutdown", n.handleShutdown)
	return r
}

// Run starts the heartbeat emitter (§4.1: "sent to the coordinator every
// 1 s... failure to reach the coordinator is silently ignored").
func (n *Node) Run(period time.Duration) error {
	if err := n.tg.Add(); err != nil {
		return err
	}
	go func() {
		defer n.tg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-n.tg.StopChan():
				return
			case <-ticker.C:
				if err := n.client.Heartbeat(context.Background(), n.coordinator, n.endpoint); err != nil {
					glog.V(2).Infof("heartbeat to %s failed (ignored): %v", n.coordinator, err)
				}
			}
		}
	}()
	return nil
}

// Shutdown cooperatively stops the heartbeat loop. It does not stop the HTTP
// server or end the process: the node keeps serving block requests.
func (n *Node) Shutdown() error {
	return n.tg.Stop()
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

func writeText(w http.ResponseWriter, status int, text string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

func (n *Node) handleBlockStore(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "bad request body")
		return
	}
	var req blockStoreReq
	if err := cmn.JSON.Unmarshal(raw, &req); err != nil || req.BlockID == "" {
		writeText(w, http.StatusBadRequest, "missing block_id")
		return
	}
	if err := n.store.Put(req.BlockID, []byte(req.Data)); err != nil {
		glog.Errorf("block_store %q: %v", req.BlockID, err)
		writeText(w, http.StatusInternalServerError, "Error")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

func (n *Node) handleBlockFetch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "bad request body")
		return
	}
	var req blockFetchReq
	if err := cmn.JSON.Unmarshal(raw, &req); err != nil || req.BlockID == "" {
		writeText(w, http.StatusBadRequest, "missing block_id")
		return
	}
	data, err := n.store.Get(req.BlockID)
	if err != nil {
		if _, ok := cmn.AsError(err); ok {
			writeText(w, http.StatusNotFound, "Not found")
			return
		}
		glog.Errorf("block_fetch %q: %v", req.BlockID, err)
		writeText(w, http.StatusInternalServerError, "Error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cmn.MustMarshal(blockFetchResp{Data: string(data)}))
}

func (n *Node) handleBlockDelete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "bad request body")
		return
	}
	var req blockDeleteReq
	if err := cmn.JSON.Unmarshal(raw, &req); err != nil || req.BlockID == "" {
		writeText(w, http.StatusBadRequest, "missing block_id")
		return
	}
	if err := n.store.Delete(req.BlockID); err != nil {
		if _, ok := cmn.AsError(err); ok {
			writeText(w, http.StatusNotFound, "Not found")
			return
		}
		glog.Errorf("block_delete %q: %v", req.BlockID, err)
		writeText(w, http.StatusInternalServerError, "Error")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

func (n *Node) handleShutdown(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeText(w, http.StatusOK, "Shutting down")
	go func() {
		_ = n.Shutdown()
	}()
}
