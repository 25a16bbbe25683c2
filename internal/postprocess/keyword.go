// Package postprocess is the 4.F search post-processor: keyword boost
// (Levenshtein + substring), bounded relationship exploration, LLM
// rerank, and LLM summarization, wrapping a query pipeline's results.
package postprocess

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"ragforge/internal/core"
)

// canonicalFields are scanned for keyword boosting, in priority order,
// per §4.F point (1): name, file path, arbitrary path, title, signature.
var canonicalFields = []string{"name", "filePath", "path", "title", "signature"}

var tokenDelimiter = regexp.MustCompile(`[\s.\-_/\\:,;()\[\]{}]+`)

// KeywordBoostOptions configures the boost pass; zero values resolve to
// the §4.F defaults.
type KeywordBoostOptions struct {
	Keywords      []string
	BoostWeight   float64 // default 0.15
	MinSimilarity float64 // default 0.6
}

func (o KeywordBoostOptions) withDefaults() KeywordBoostOptions {
	if o.BoostWeight == 0 {
		o.BoostWeight = 0.15
	}
	if o.MinSimilarity == 0 {
		o.MinSimilarity = 0.6
	}
	return o
}

// KeywordBoost applies §4.F's keyword boost and re-sorts descending. An
// empty keyword list is a no-op, matching the boundary behaviour in §8.
func KeywordBoost(results []core.SearchResult, opts KeywordBoostOptions) []core.SearchResult {
	if len(opts.Keywords) == 0 {
		return results
	}
	opts = opts.withDefaults()

	out := make([]core.SearchResult, len(results))
	copy(out, results)

	for i := range out {
		best := bestBoost(&out[i].Entity, opts)
		if best == nil {
			continue
		}
		base := out[i].ScoreOrMinusOne()
		if base < 0 {
			base = 0
		}
		newScore := base + best.Boost
		out[i].Score = core.Float64Ptr(newScore)
		out[i].KeywordBoost = best
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreOrMinusOne() > out[j].ScoreOrMinusOne()
	})
	return out
}

// bestBoost scans the canonical fields against every keyword and returns
// the maximum qualifying boost, or nil if none clears minSimilarity.
func bestBoost(e *core.Entity, opts KeywordBoostOptions) *core.KeywordBoost {
	var best *core.KeywordBoost

	consider := func(field, keyword string, similarity float64) {
		if similarity < opts.MinSimilarity {
			return
		}
		boost := similarity * opts.BoostWeight
		if best == nil || boost > best.Boost {
			best = &core.KeywordBoost{Keyword: keyword, Similarity: similarity, Boost: boost}
		}
	}

	for _, fieldName := range canonicalFields {
		var fieldValue string
		if fieldName == "name" {
			fieldValue = e.Name
		} else {
			fieldValue = e.FieldString(fieldName)
		}
		if fieldValue == "" {
			continue
		}
		lowerField := strings.ToLower(fieldValue)

		for _, kw := range opts.Keywords {
			if kw == "" {
				continue
			}
			lowerKw := strings.ToLower(kw)
			if strings.Contains(lowerField, lowerKw) {
				consider(fieldName, kw, 1.0)
				continue
			}
			for _, token := range tokenDelimiter.Split(fieldValue, -1) {
				if len(token) <= 2 {
					continue
				}
				consider(fieldName, kw, levenshteinSimilarity(token, kw))
			}
		}
	}
	return best
}

// levenshteinSimilarity computes `1 - distance/maxLen` using matchr's
// Levenshtein distance.
func levenshteinSimilarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := matchr.Levenshtein(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}
