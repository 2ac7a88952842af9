package recent_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/recent"
)

var _ = Describe("Buffer", func() {
	var (
		dir    string
		logger *zap.Logger
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		logger = zap.NewNop()
	})

	turnAt := func(content string, at time.Time) memory.Turn {
		return memory.NewTurn("alice", content, at)
	}

	turn := func(content string) memory.Turn {
		return turnAt(content, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	}

	Describe("NewBuffer", func() {
		It("should require a directory", func() {
			_, err := recent.NewBuffer(recent.Config{SessionID: "s1"}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("directory"))
		})

		It("should require a session id", func() {
			_, err := recent.NewBuffer(recent.Config{Dir: dir}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("session id"))
		})

		It("should start empty when no state file exists", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1"}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Len()).To(Equal(0))
		})

		It("should start empty when the state file is corrupt", func() {
			path := filepath.Join(dir, "recent_s1.json")
			Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1"}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Len()).To(Equal(0))
		})
	})

	Describe("Add", func() {
		It("should retain turns in insertion order", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 5}, logger)
			Expect(err).NotTo(HaveOccurred())

			Expect(b.Add(turn("first"))).To(Succeed())
			Expect(b.Add(turn("second"))).To(Succeed())
			Expect(b.Add(turn("third"))).To(Succeed())

			rendered := b.Recent(0)
			Expect(rendered).To(HaveLen(3))
			Expect(rendered[0]).To(ContainSubstring("first"))
			Expect(rendered[2]).To(ContainSubstring("third"))
		})

		It("should drop the oldest turn when over capacity", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 3}, logger)
			Expect(err).NotTo(HaveOccurred())

			for i := 1; i <= 5; i++ {
				Expect(b.Add(turn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}

			Expect(b.Len()).To(Equal(3))
			rendered := b.Recent(0)
			Expect(rendered[0]).To(ContainSubstring("turn-3"))
			Expect(rendered[2]).To(ContainSubstring("turn-5"))
		})
	})

	Describe("Recent", func() {
		var b *recent.Buffer

		BeforeEach(func() {
			var err error
			b, err = recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i <= 4; i++ {
				Expect(b.Add(turn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}
		})

		It("should return the n newest turns, oldest first", func() {
			rendered := b.Recent(2)
			Expect(rendered).To(HaveLen(2))
			Expect(rendered[0]).To(ContainSubstring("turn-3"))
			Expect(rendered[1]).To(ContainSubstring("turn-4"))
		})

		It("should return everything when n exceeds the length", func() {
			Expect(b.Recent(100)).To(HaveLen(4))
		})

		It("should return everything when n is zero", func() {
			Expect(b.Recent(0)).To(HaveLen(4))
		})
	})

	Describe("PeekOldest", func() {
		It("should return the oldest turns without removing them", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i <= 4; i++ {
				Expect(b.Add(turn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}

			oldest := b.PeekOldest(2)
			Expect(oldest).To(HaveLen(2))
			Expect(oldest[0].Content).To(Equal("turn-1"))
			Expect(oldest[1].Content).To(Equal("turn-2"))
			Expect(b.Len()).To(Equal(4))
		})
	})

	Describe("RemoveOldest", func() {
		It("should remove and return the oldest turns", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i <= 4; i++ {
				Expect(b.Add(turn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}

			removed, err := b.RemoveOldest(3)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(HaveLen(3))
			Expect(removed[0].Content).To(Equal("turn-1"))

			Expect(b.Len()).To(Equal(1))
			Expect(b.Recent(0)[0]).To(ContainSubstring("turn-4"))
		})

		It("should clamp n to the buffer length", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Add(turn("only"))).To(Succeed())

			removed, err := b.RemoveOldest(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(HaveLen(1))
			Expect(b.Len()).To(Equal(0))
		})
	})

	Describe("Clear", func() {
		It("should empty the buffer and persist the empty list", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Add(turn("hello"))).To(Succeed())

			Expect(b.Clear()).To(Succeed())
			Expect(b.Len()).To(Equal(0))

			reloaded, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Len()).To(Equal(0))
		})
	})

	Describe("persistence", func() {
		It("should survive a reload with order and timestamps intact", func() {
			at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Add(turnAt("first", at))).To(Succeed())
			Expect(b.Add(turnAt("second", at.Add(time.Minute)))).To(Succeed())

			reloaded, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Len()).To(Equal(2))

			rendered := reloaded.Recent(0)
			Expect(rendered[0]).To(Equal("alice(2025-06-01 12:00:00): first"))
			Expect(rendered[1]).To(Equal("alice(2025-06-01 12:01:00): second"))
		})

		It("should keep the newest turns when reloaded at a smaller capacity", func() {
			b, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 10}, logger)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i <= 6; i++ {
				Expect(b.Add(turn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}

			reloaded, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1", Capacity: 4}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Len()).To(Equal(4))
			Expect(reloaded.Recent(0)[0]).To(ContainSubstring("turn-3"))
		})

		It("should isolate buffers by session id", func() {
			b1, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s1"}, logger)
			Expect(err).NotTo(HaveOccurred())
			b2, err := recent.NewBuffer(recent.Config{Dir: dir, SessionID: "s2"}, logger)
			Expect(err).NotTo(HaveOccurred())

			Expect(b1.Add(turn("for-s1"))).To(Succeed())
			Expect(b2.Len()).To(Equal(0))
		})
	})
})
