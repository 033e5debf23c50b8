package forwarder

import (
	"sort"
	"sync"
)

// quoteWeight is the score increment for a delivered quote on a lane.
// Failures degrade 2x faster: a forwarder that stops quoting a lane drops
// down the ranking quickly, but earns its way back one quote at a time.
const quoteWeight = 0.05

// Ranker tracks per-forwarder, per-lane reliability and orders assignment
// candidates by it. Scores are clamped to [0, 1] and start at 0.5.
type Ranker struct {
	mu     sync.Mutex
	scores map[string]float64 // keyed by email + lane
}

func NewRanker() *Ranker {
	return &Ranker{scores: map[string]float64{}}
}

// RecordOutcome updates a forwarder's lane score after a rate request:
// delivered means a usable quote came back.
func (r *Ranker) RecordOutcome(email, lane string, delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := email + "|" + lane
	score, ok := r.scores[key]
	if !ok {
		score = 0.5
	}
	if delivered {
		score += quoteWeight
	} else {
		score -= quoteWeight * 2
	}
	r.scores[key] = clamp(score)
}

// Score returns the current lane score for a forwarder.
func (r *Ranker) Score(email, lane string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if score, ok := r.scores[email+"|"+lane]; ok {
		return score
	}
	return 0.5
}

// Sort orders candidates by lane score, best first; ties break on name so
// assignment order is stable.
func (r *Ranker) Sort(candidates []Forwarder, lane string) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := r.Score(candidates[i].Email, lane), r.Score(candidates[j].Email, lane)
		if si != sj {
			return si > sj
		}
		return candidates[i].Name < candidates[j].Name
	})
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
