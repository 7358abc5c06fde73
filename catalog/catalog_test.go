package catalog

import (
	"time"

	"neofs/cmn"
	"neofs/liveness"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newTestCatalog(roster ...string) *Catalog {
	cfg := liveness.DefaultConfig()
	c := New(cfg, roster)
	for _, ep := range roster {
		c.Heartbeat(ep, time.Now())
	}
	return c
}

var _ = Describe("Catalog", func() {
	Describe("Upload", func() {
		It("rejects a replication factor below 1", func() {
			c := newTestCatalog("5001")
			_, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 0, NumBlocks: 1, BlockSize: 64})
			Expect(err).To(HaveOccurred())
			e, ok := cmn.AsError(err)
			Expect(ok).To(BeTrue())
			Expect(e.Kind).To(Equal(cmn.KindBadRequest))
		})

		It("rejects num_blocks below 1", func() {
			c := newTestCatalog("5001")
			_, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 1, NumBlocks: 0, BlockSize: 64})
			Expect(err).To(HaveOccurred())
		})

		It("fails with InsufficientNodes when r exceeds the alive set, without mutating the catalog", func() {
			c := newTestCatalog("5001", "5002")
			_, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 3, NumBlocks: 1, BlockSize: 64})
			Expect(err).To(HaveOccurred())
			e, ok := cmn.AsError(err)
			Expect(ok).To(BeTrue())
			Expect(e.Kind).To(Equal(cmn.KindInsufficientNodes))

			Expect(c.List()).To(BeEmpty())
		})

		It("places each block with r distinct alive replicas and canonical ids", func() {
			c := newTestCatalog("5001", "5002", "5003", "5004", "5005")
			entry, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 3, NumBlocks: 2, Size: 3, BlockSize: 65536})
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Blocks).To(HaveLen(2))
			for i, b := range entry.Blocks {
				Expect(b.ID).To(Equal(cmn.BlockID("a.txt", i)))
				Expect(b.Replicas).To(HaveLen(3))
				Expect(len(uniq(b.Replicas))).To(Equal(3))
			}
		})

		It("silently orphans the prior entry on re-upload of the same filename", func() {
			c := newTestCatalog("5001", "5002", "5003")
			_, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())

			entry, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 3, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Blocks).To(HaveLen(3))
			Expect(c.List()).To(HaveLen(1))
		})
	})

	Describe("Locate", func() {
		It("returns NotFound for an unknown filename", func() {
			c := newTestCatalog("5001")
			_, _, err := c.Locate("nope")
			Expect(err).To(HaveOccurred())
			e, _ := cmn.AsError(err)
			Expect(e.Kind).To(Equal(cmn.KindNotFound))
		})

		It("orders replicas alive-first, then dead-last, preserving relative order", func() {
			c := newTestCatalog("5001", "5002", "5003")
			entry, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 3, NumBlocks: 1, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())
			original := entry.Blocks[0].Replicas
			dead := original[0]

			// Everyone goes stale, then only the non-dead replicas come back up.
			c.Sweep(time.Now().Add(10 * time.Second))
			for _, ep := range original {
				if ep != dead {
					c.Heartbeat(ep, time.Now())
				}
			}

			_, blocks, err := c.Locate("a.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocks[0].Replicas).To(HaveLen(3))
			Expect(blocks[0].Replicas[2]).To(Equal(dead))
		})
	})

	Describe("Delete", func() {
		It("returns NotFound for an unknown filename", func() {
			c := newTestCatalog("5001")
			_, err := c.Delete("nope")
			Expect(err).To(HaveOccurred())
		})

		It("removes the entry atomically and returns its block descriptors", func() {
			c := newTestCatalog("5001", "5002")
			_, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())

			blocks, err := c.Delete("a.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocks).To(HaveLen(1))
			Expect(c.List()).To(BeEmpty())

			// Re-upload of the same filename succeeds afterwards (§8 property 5).
			_, err = c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("snapshot + append", func() {
		It("lets the re-replication engine append a healed replica", func() {
			c := newTestCatalog("5001", "5002")
			entry, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())
			blockID := entry.Blocks[0].ID

			c.AppendReplica("a.txt", blockID, "5003")

			_, blocks, err := c.Locate("a.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocks[0].Replicas).To(ContainElement("5003"))
		})

		It("is a no-op if the file was deleted concurrently", func() {
			c := newTestCatalog("5001", "5002")
			entry, err := c.Upload(UploadRequest{Filename: "a.txt", ReplicationFactor: 2, NumBlocks: 1, BlockSize: 64})
			Expect(err).NotTo(HaveOccurred())
			blockID := entry.Blocks[0].ID

			_, err = c.Delete("a.txt")
			Expect(err).NotTo(HaveOccurred())

			c.AppendReplica("a.txt", blockID, "5003") // must not panic
		})
	})
})

func uniq(ss []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
