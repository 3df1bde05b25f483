// internal/engine/corpus/mmr.go
package corpus

import (
	"strings"
	"unicode"
)

// MMR picks k passages out of candidates by maximal marginal relevance.
// lambda = 1 ranks purely by relevance, lambda = 0 purely by novelty.
// Relevance is the engine score normalized by the best score; similarity
// between passages is the Jaccard overlap of their token sets.
func MMR(candidates []Passage, k int, lambda float64) []Passage {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k >= len(candidates) {
		k = len(candidates)
	}

	maxScore := 0.0
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	relevance := make([]float64, len(candidates))
	tokens := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		relevance[i] = 1
		if maxScore > 0 {
			relevance[i] = c.Score / maxScore
		}
		tokens[i] = tokenSet(c.Content)
	}

	picked := make([]int, 0, k)
	used := make([]bool, len(candidates))
	for len(picked) < k {
		best, bestScore := -1, 0.0
		for i := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for _, j := range picked {
				if sim := jaccard(tokens[i], tokens[j]); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if best == -1 || score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		picked = append(picked, best)
	}

	out := make([]Passage, len(picked))
	for i, idx := range picked {
		out[i] = candidates[idx]
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
