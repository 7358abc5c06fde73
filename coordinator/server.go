package coordinator

import (
	"context"
	"io"
	"net/http"
	"time"

	"neofs/catalog"
	"neofs/cmn"
	"neofs/liveness"
	"neofs/reb"
	"neofs/transport"

	"github.com/NebulousLabs/threadgroup"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
)

// Coordinator ties the catalog, the liveness sweep, and the re-replication
// engine to the §6 HTTP surface.
type Coordinator struct {
	cat    *catalog.Catalog
	client *transport.Client
	engine *reb.Engine
	tg     *threadgroup.ThreadGroup
}

// New builds a Coordinator whose roster comes from cfg (§6 "Configuration
// file"). cfg.ReplicationFactor is not used; uploads name their own factor.
func New(cfg *Config) *Coordinator {
	cat := catalog.New(liveness.DefaultConfig(), cfg.Roster())
	client := transport.NewClient()
	return &Coordinator{
		cat:    cat,
		client: client,
		engine: reb.NewEngine(cat, client, liveness.DefaultConfig().SweepInterval),
		tg:     &threadgroup.ThreadGroup{},
	}
}

// Run starts the liveness sweep and the re-replication engine as cooperative
// background loops (§5).
func (co *Coordinator) Run() error {
	if err := co.cat.RunSweepLoop(co.tg); err != nil {
		return err
	}
	if err := co.engine.Run(co.tg); err != nil {
		return err
	}
	return nil
}

// Shutdown stops every background loop.
func (co *Coordinator) Shutdown() error {
	return co.tg.Stop()
}

// Handler returns the httprouter-routed HTTP handler for the §6 coordinator
// endpoints.
func (co *Coordinator) Handler() http.Handler {
	r := httprouter.New()
	r.GET("/status", co.handleStatus)
	r.POST("/heartbeat", co.handleHeartbeat)
	r.POST("/client_heartbeat", co.handleClientHeartbeat)
	r.POST("/upload", co.handleUpload)
	r.POST("/locate", co.handleLocate)
	r.POST("/delete", co.handleDelete)
	r.GET("/list", co.handleList)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(cmn.MustMarshal(v))
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

func writeErr(w http.ResponseWriter, err error) {
	if e, ok := cmn.AsError(err); ok {
		writeText(w, e.Status(), e.Error())
		return
	}
	writeText(w, http.StatusInternalServerError, err.Error())
}

func readBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "bad request body")
		return false
	}
	if err := cmn.JSON.Unmarshal(raw, v); err != nil {
		writeText(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func (co *Coordinator) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	nodes, activeClients := co.cat.Status()
	writeJSON(w, http.StatusOK, struct {
		Nodes         map[string]string `json:"nodes"`
		ActiveClients int               `json:"active_clients"`
	}{Nodes: nodes, ActiveClients: activeClients})
}

type heartbeatReq struct {
	Port string `json:"port"`
}

func (co *Coordinator) handleHeartbeat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req heartbeatReq
	if !readBody(w, r, &req) {
		return
	}
	if req.Port == "" {
		writeText(w, http.StatusBadRequest, "missing port")
		return
	}
	co.cat.Heartbeat(req.Port, time.Now())
	writeText(w, http.StatusOK, "OK")
}

type clientHeartbeatReq struct {
	ID string `json:"id"`
}

func (co *Coordinator) handleClientHeartbeat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req clientHeartbeatReq
	if !readBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeText(w, http.StatusBadRequest, "missing id")
		return
	}
	co.cat.ClientHeartbeat(req.ID, time.Now())
	writeText(w, http.StatusOK, "OK")
}

type uploadReq struct {
	Filename          string `json:"filename"`
	ReplicationFactor int    `json:"replication_factor"`
	NumBlocks         int    `json:"num_blocks"`
	Size              int    `json:"size"`
}

type blockView struct {
	ID    string   `json:"id"`
	Nodes []string `json:"nodes"`
}

type uploadResp struct {
	Filename          string      `json:"filename"`
	ReplicationFactor int         `json:"replication_factor"`
	BlockSize         int         `json:"block_size"`
	Blocks            []blockView `json:"blocks"`
}

const defaultBlockSize = 64 * 1024

func (co *Coordinator) handleUpload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req uploadReq
	if !readBody(w, r, &req) {
		return
	}
	if req.Filename == "" {
		writeText(w, http.StatusBadRequest, "missing filename")
		return
	}
	entry, err := co.cat.Upload(catalog.UploadRequest{
		Filename:          req.Filename,
		ReplicationFactor: req.ReplicationFactor,
		NumBlocks:         req.NumBlocks,
		Size:              req.Size,
		BlockSize:         defaultBlockSize,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResp{
		Filename:          entry.Filename,
		ReplicationFactor: entry.ReplicationFactor,
		BlockSize:         entry.BlockSize,
		Blocks:            blockViews(entry.Blocks),
	})
}

func blockViews(blocks []catalog.BlockDescriptor) []blockView {
	out := make([]blockView, len(blocks))
	for i, b := range blocks {
		out[i] = blockView{ID: b.ID, Nodes: b.Replicas}
	}
	return out
}

type filenameReq struct {
	Filename string `json:"filename"`
}

type locateResp struct {
	Filename          string      `json:"filename"`
	Size              int         `json:"size"`
	BlockSize         int         `json:"block_size"`
	ReplicationFactor int         `json:"replication_factor"`
	Blocks            []blockView `json:"blocks"`
}

func (co *Coordinator) handleLocate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req filenameReq
	if !readBody(w, r, &req) {
		return
	}
	entry, blocks, err := co.cat.Locate(req.Filename)
	if err != nil {
		writeErr(w, err)
		return
	}
	views := make([]blockView, len(blocks))
	for i, b := range blocks {
		views[i] = blockView{ID: b.ID, Nodes: b.Replicas}
	}
	writeJSON(w, http.StatusOK, locateResp{
		Filename:          entry.Filename,
		Size:              entry.Size,
		BlockSize:         entry.BlockSize,
		ReplicationFactor: entry.ReplicationFactor,
		Blocks:            views,
	})
}

type deleteResp struct {
	Filename    string              `json:"filename"`
	DeletedFrom map[string][]string `json:"deleted_from"`
}

// handleDelete removes the catalog entry, then fans DeleteBlock out to every
// replica outside the catalog lock (§4.3, §5); a dead or unreachable replica
// is tolerated, not reported as a failure.
func (co *Coordinator) handleDelete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req filenameReq
	if !readBody(w, r, &req) {
		return
	}
	blocks, err := co.cat.Delete(req.Filename)
	if err != nil {
		writeErr(w, err)
		return
	}

	deletedFrom := make(map[string][]string)
	ctx := context.Background()
	for _, b := range blocks {
		for _, ep := range b.Replicas {
			if err := co.client.DeleteBlock(ctx, ep, b.ID); err != nil {
				glog.Warningf("delete %s from %s failed (ignored): %v", b.ID, ep, err)
				continue
			}
			deletedFrom[ep] = append(deletedFrom[ep], b.ID)
		}
	}
	writeJSON(w, http.StatusOK, deleteResp{Filename: req.Filename, DeletedFrom: deletedFrom})
}

type fileView struct {
	ReplicationFactor int         `json:"replication_factor"`
	Size              int         `json:"size"`
	BlockSize         int         `json:"block_size"`
	NumBlocks         int         `json:"num_blocks"`
	Blocks            []blockView `json:"blocks"`
}

func (co *Coordinator) handleList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	files := co.cat.List()
	out := make(map[string]fileView, len(files))
	for name, entry := range files {
		out[name] = fileView{
			ReplicationFactor: entry.ReplicationFactor,
			Size:              entry.Size,
			BlockSize:         entry.BlockSize,
			NumBlocks:         len(entry.Blocks),
			Blocks:            blockViews(entry.Blocks),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
