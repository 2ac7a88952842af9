package semantic_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/semantic"
)

var _ = Describe("Cosine", func() {
	It("should return 1 for identical vectors", func() {
		v := []float32{0.5, 0.5, 0.5}
		Expect(semantic.Cosine(v, v)).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("should return 0 for orthogonal vectors", func() {
		Expect(semantic.Cosine([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("should return -1 for opposite vectors", func() {
		Expect(semantic.Cosine([]float32{1, 2}, []float32{-1, -2})).To(BeNumerically("~", -1.0, 1e-9))
	})

	It("should return 0 for mismatched lengths", func() {
		Expect(semantic.Cosine([]float32{1, 2}, []float32{1, 2, 3})).To(BeZero())
	})

	It("should return 0 for a zero-norm vector", func() {
		Expect(semantic.Cosine([]float32{0, 0}, []float32{1, 2})).To(BeZero())
	})
})

var _ = Describe("CompositeScore", func() {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	fresh := func() memory.Entry {
		return memory.Entry{
			Importance:     1.0,
			CreatedAt:      now,
			LastAccessedAt: now,
		}
	}

	It("should score a brand-new, just-accessed entry at similarity times full weight", func() {
		// timeDecay = recencyDecay = 1, frequencyGain = 0
		// weight = 0.6 + 0.2 + 0.1 + 0.1 = 1.0
		Expect(semantic.CompositeScore(0.8, fresh(), now)).To(BeNumerically("~", 0.8, 1e-9))
	})

	It("should halve the time-decay signal after one week", func() {
		e := fresh()
		e.CreatedAt = now.Add(-7 * 24 * time.Hour)
		// weight = 0.6 + 0.2 + 0.1*0.5 + 0.1 = 0.95
		Expect(semantic.CompositeScore(1.0, e, now)).To(BeNumerically("~", 0.95, 1e-9))
	})

	It("should halve the recency-decay signal after one idle day", func() {
		e := fresh()
		e.LastAccessedAt = now.Add(-24 * time.Hour)
		// weight = 0.6 + 0.2 + 0.1 + 0.1*0.5 = 0.95
		Expect(semantic.CompositeScore(1.0, e, now)).To(BeNumerically("~", 0.95, 1e-9))
	})

	It("should grow the frequency gain linearly up to ten accesses", func() {
		base := fresh()

		var prev float64
		for count := 0; count <= 10; count++ {
			e := base
			e.AccessCount = count
			score := semantic.CompositeScore(1.0, e, now)
			if count > 0 {
				Expect(score).To(BeNumerically(">", prev))
			}
			prev = score
		}
	})

	It("should saturate the frequency gain past ten accesses", func() {
		at10 := fresh()
		at10.AccessCount = 10
		at50 := fresh()
		at50.AccessCount = 50

		Expect(semantic.CompositeScore(1.0, at50, now)).To(Equal(semantic.CompositeScore(1.0, at10, now)))
	})

	It("should weight higher importance above lower", func() {
		low := fresh()
		low.Importance = 0.5
		high := fresh()
		high.Importance = 1.2

		Expect(semantic.CompositeScore(0.9, high, now)).To(BeNumerically(">", semantic.CompositeScore(0.9, low, now)))
	})
})

var _ = Describe("Rank", func() {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	entry := func(id int64, embedding []float32) memory.Entry {
		return memory.Entry{
			ID:             id,
			Embedding:      embedding,
			Importance:     1.0,
			CreatedAt:      now,
			LastAccessedAt: now,
		}
	}

	It("should order entries by descending score", func() {
		entries := []memory.Entry{
			entry(1, []float32{0, 1}),
			entry(2, []float32{1, 0}),
			entry(3, []float32{1, 1}),
		}

		top := semantic.Rank(entries, []float32{1, 0}, now, 3)
		Expect(top).To(HaveLen(3))
		Expect(top[0].ID).To(Equal(int64(2)))
		Expect(top[1].ID).To(Equal(int64(3)))
		Expect(top[2].ID).To(Equal(int64(1)))
	})

	It("should truncate to topK", func() {
		entries := []memory.Entry{
			entry(1, []float32{1, 0}),
			entry(2, []float32{1, 0}),
			entry(3, []float32{1, 0}),
		}

		Expect(semantic.Rank(entries, []float32{1, 0}, now, 2)).To(HaveLen(2))
	})

	It("should break score ties by lower id", func() {
		entries := []memory.Entry{
			entry(7, []float32{1, 0}),
			entry(3, []float32{1, 0}),
			entry(5, []float32{1, 0}),
		}

		top := semantic.Rank(entries, []float32{1, 0}, now, 3)
		Expect(top[0].ID).To(Equal(int64(3)))
		Expect(top[1].ID).To(Equal(int64(5)))
		Expect(top[2].ID).To(Equal(int64(7)))
	})

	It("should return nil for no entries or non-positive topK", func() {
		Expect(semantic.Rank(nil, []float32{1}, now, 5)).To(BeNil())
		Expect(semantic.Rank([]memory.Entry{entry(1, []float32{1})}, []float32{1}, now, 0)).To(BeNil())
	})
})

var _ = Describe("Embedding codec", func() {
	It("should round-trip a vector through serialization", func() {
		vec := []float32{0.1, -2.5, 3.75, 0}

		blob := semantic.SerializeFloat32(vec)
		Expect(blob).To(HaveLen(16))

		decoded, err := semantic.DeserializeFloat32(blob, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(vec))
	})

	It("should reject a blob of the wrong length", func() {
		_, err := semantic.DeserializeFloat32([]byte{1, 2, 3}, 4)
		Expect(err).To(HaveOccurred())
	})
})
