package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/bmbox/internal/panel"
)

// Result represents a fuzzy search match.
type Result struct {
	Link           panel.Link
	Index          int // position in the searched slice
	MatchedIndexes []int
	Score          int
}

// linkTitles implements fuzzy.Source for a link slice.
type linkTitles []panel.Link

func (lt linkTitles) String(i int) string {
	return lt[i].Title
}

func (lt linkTitles) Len() int {
	return len(lt)
}

// FuzzySearchLinks searches links by title using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchLinks(links []panel.Link, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, linkTitles(links))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Link:           links[m.Index],
			Index:          m.Index,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
