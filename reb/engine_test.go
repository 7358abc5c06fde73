package reb

import (
	"context"
	"net/http/httptest"
	"os"
	"time"

	"neofs/catalog"
	"neofs/liveness"
	"neofs/storagenode"
	"neofs/transport"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// spinUpNode starts a real storage-node HTTP server backed by a temp
// directory, returning its endpoint ("host:port") and a cleanup func.
func spinUpNode() (endpoint string, cleanup func()) {
	dir, err := os.MkdirTemp("", "neofs-reb-test")
	Expect(err).NotTo(HaveOccurred())
	store, err := storagenode.NewStore(dir)
	Expect(err).NotTo(HaveOccurred())
	node := storagenode.NewNode("unused", "unused", store)
	srv := httptest.NewServer(node.Handler())
	return srv.Listener.Addr().String(), func() {
		srv.Close()
		os.RemoveAll(dir)
	}
}

var _ = Describe("Re-replication Engine", func() {
	var (
		endpoints []string
		cleanups  []func()
		cat       *catalog.Catalog
		engine    *Engine
	)

	BeforeEach(func() {
		endpoints = nil
		cleanups = nil
		for i := 0; i < 4; i++ {
			ep, cleanup := spinUpNode()
			endpoints = append(endpoints, ep)
			cleanups = append(cleanups, cleanup)
		}
		cat = catalog.New(liveness.DefaultConfig(), endpoints)
		for _, ep := range endpoints {
			cat.Heartbeat(ep, time.Now())
		}
		engine = NewEngine(cat, transport.NewClient(), time.Hour) // manual sweeps in tests
	})

	AfterEach(func() {
		for _, c := range cleanups {
			c()
		}
	})

	It("does nothing when no block is degraded", func() {
		entry, err := cat.Upload(catalog.UploadRequest{
			Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64,
		})
		Expect(err).NotTo(HaveOccurred())
		client := transport.NewClient()
		for _, ep := range entry.Blocks[0].Replicas {
			Expect(client.PutBlock(context.Background(), ep, entry.Blocks[0].ID, []byte("abc"))).To(Succeed())
		}

		engine.SweepOnce()
		stats := engine.LastSweep()
		Expect(stats.BlocksDegraded).To(Equal(0))
		Expect(stats.HealsAttempted).To(Equal(0))
	})

	It("heals a block whose source replica went down, restoring the replication factor", func() {
		entry, err := cat.Upload(catalog.UploadRequest{
			Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64,
		})
		Expect(err).NotTo(HaveOccurred())
		block := entry.Blocks[0]
		client := transport.NewClient()
		for _, ep := range block.Replicas {
			Expect(client.PutBlock(context.Background(), ep, block.ID, []byte("abc"))).To(Succeed())
		}

		// Kill one of the two replicas.
		dead := block.Replicas[0]
		cat.Sweep(time.Now().Add(10 * time.Second)) // everyone stale
		for _, ep := range endpoints {
			if ep != dead {
				cat.Heartbeat(ep, time.Now())
			}
		}

		engine.SweepOnce()
		stats := engine.LastSweep()
		Expect(stats.BlocksDegraded).To(Equal(1))
		Expect(stats.HealsAttempted).To(Equal(1))
		Expect(stats.HealsSucceeded).To(Equal(1))

		_, blocks, err := cat.Locate("a.txt")
		Expect(err).NotTo(HaveOccurred())
		aliveCount := 0
		for _, ep := range blocks[0].Replicas {
			if ep != dead {
				aliveCount++
			}
		}
		Expect(aliveCount).To(Equal(2))
	})

	It("skips a block when no replica is alive", func() {
		entry, err := cat.Upload(catalog.UploadRequest{
			Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64,
		})
		Expect(err).NotTo(HaveOccurred())
		block := entry.Blocks[0]

		cat.Sweep(time.Now().Add(10 * time.Second)) // everyone stale, nobody revived

		engine.SweepOnce()
		stats := engine.LastSweep()
		Expect(stats.BlocksDegraded).To(Equal(1))
		Expect(stats.HealsAttempted).To(Equal(0))

		_, blocks, err := cat.Locate("a.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(blocks[0].Replicas).To(HaveLen(2))
		_ = block
	})

	It("skips a block when every alive endpoint is already a replica", func() {
		// Replication factor equal to the full alive pool leaves no candidate.
		entry, err := cat.Upload(catalog.UploadRequest{
			Filename: "a.txt", ReplicationFactor: 4, NumBlocks: 1, BlockSize: 64,
		})
		Expect(err).NotTo(HaveOccurred())
		block := entry.Blocks[0]

		// One replica goes down but all OTHER alive nodes are already replicas
		// (replication_factor == the whole roster leaves no candidate).
		dead := block.Replicas[0]
		cat.Sweep(time.Now().Add(10 * time.Second)) // everyone stale
		for _, ep := range endpoints {
			if ep != dead {
				cat.Heartbeat(ep, time.Now())
			}
		}

		engine.SweepOnce()
		stats := engine.LastSweep()
		Expect(stats.BlocksDegraded).To(Equal(1))
		Expect(stats.HealsAttempted).To(Equal(0))
	})
})
