package semantic

import (
	"math"
	"sort"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	// ageHalfLifeDays halves an entry's time-decay signal every week.
	ageHalfLifeDays = 7.0

	// idleHalfLifeDays halves an entry's recency-decay signal every day
	// it goes unaccessed.
	idleHalfLifeDays = 1.0

	// frequencySaturation is the access count at which the frequency gain
	// stops growing.
	frequencySaturation = 10.0

	secondsPerDay = 86400.0
)

// Cosine computes the cosine similarity between two vectors. Mismatched
// lengths or zero-norm vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CompositeScore blends semantic similarity with the entry's importance,
// age, idle time, and access frequency:
//
//	score = similarity × (0.6 + 0.2×importance
//	                          + 0.1×timeDecay
//	                          + 0.1×(recencyDecay + frequencyGain))
func CompositeScore(similarity float64, e memory.Entry, now time.Time) float64 {
	ageDays := now.Sub(e.CreatedAt).Seconds() / secondsPerDay
	idleDays := now.Sub(e.LastAccessedAt).Seconds() / secondsPerDay

	timeDecay := math.Pow(0.5, ageDays/ageHalfLifeDays)
	recencyDecay := math.Pow(0.5, idleDays/idleHalfLifeDays)
	frequencyGain := math.Min(1, float64(e.AccessCount)/frequencySaturation)

	return similarity * (0.6 + 0.2*e.Importance + 0.1*timeDecay + 0.1*(recencyDecay+frequencyGain))
}

// Rank scores every entry against the query vector and returns the topK
// best, descending by score with ties broken by lower id. The full pass is
// deliberate: the score mixes signals no index can serve, and per-session
// stores stay small through consolidation and eviction.
func Rank(entries []memory.Entry, query []float32, now time.Time, topK int) []memory.Entry {
	if len(entries) == 0 || topK <= 0 {
		return nil
	}

	type scored struct {
		entry memory.Entry
		score float64
	}

	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, scored{
			entry: e,
			score: CompositeScore(Cosine(query, e.Embedding), e, now),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].entry.ID < ranked[j].entry.ID
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}

	top := make([]memory.Entry, 0, topK)
	for _, s := range ranked[:topK] {
		top = append(top, s.entry)
	}

	return top
}
