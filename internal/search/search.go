// Package search ranks stored keys against free-text phrases.
//
// The ranking is a bag-of-substrings heuristic, not an inverted index: the
// phrase is split on three delimiters independently and every resulting
// token scores once per (possibly overlapping) occurrence in the key. A
// token repeated across delimiter passes therefore scores repeatedly; that
// behavior is intentional and load-bearing for ranking stability.
package search

import (
	"net/url"
	"sort"
	"strings"
)

var delimiters = []string{",", " ", "."}

// Scored is a key with its relevance score.
type Scored struct {
	Key   string
	Score int
}

// Rank scores every key against the phrase and returns the matches ordered
// by score descending. Ties keep the inventory order of keys (stable sort).
// The shared prefix is stripped from each key before matching so prefix
// segments never contribute to scores. Keys scoring zero are dropped.
func Rank(keys []string, prefix, phrase string) []Scored {
	decoded, err := url.QueryUnescape(phrase)
	if err != nil {
		// An undecodable phrase is matched literally.
		decoded = phrase
	}

	var scored []Scored
	for _, key := range keys {
		stripped := strings.TrimPrefix(key, prefix)
		s := score(stripped, decoded)
		if s > 0 {
			scored = append(scored, Scored{Key: key, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// Paginate returns the page slice [page*max, page*max+max). A start offset
// past the end yields an empty result.
func Paginate(scored []Scored, page, maxResults int) []Scored {
	if page < 0 || maxResults <= 0 {
		return nil
	}
	start := page * maxResults
	if start >= len(scored) {
		return nil
	}
	end := start + maxResults
	if end > len(scored) {
		end = len(scored)
	}
	return scored[start:end]
}

func score(key, phrase string) int {
	total := 0
	for _, delim := range delimiters {
		for _, token := range strings.Split(phrase, delim) {
			if token == "" {
				continue
			}
			total += countOverlapping(key, token)
		}
	}
	return total
}

// countOverlapping counts occurrences of sub in s, allowing matches to
// overlap ("aaa" contains "aa" twice).
func countOverlapping(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
