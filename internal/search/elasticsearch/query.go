package elasticsearch

import (
	"github.com/utafrali/CloudGames/pkg/pagination"
)

// searchFields are the fields of the fuzzy clause; title weighs three times
// the others.
var searchFields = []string{"title^3", "description", "developer", "publisher"}

// buildSearchQuery returns the DSL for a relevance-ranked text search. A
// document matches if either the fuzzy multi-field clause or the plain title
// clause matches. Equal scores are ordered by id.
func buildSearchQuery(text string, p pagination.Params) map[string]any {
	return map[string]any{
		"from": p.Offset,
		"size": p.PageSize,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{
						"multi_match": map[string]any{
							"query":     text,
							"fields":    searchFields,
							"type":      "best_fields",
							"fuzziness": "AUTO",
						},
					},
					map[string]any{
						"match": map[string]any{
							"title": text,
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []any{
			"_score",
			map[string]any{"id": "asc"},
		},
		"track_total_hits": true,
	}
}

// buildPopularQuery returns the DSL for the newest top games.
func buildPopularQuery(top int) map[string]any {
	return map[string]any{
		"size": top,
		"query": map[string]any{
			"match_all": map[string]any{},
		},
		"sort": []any{
			map[string]any{"release_date": "desc"},
			map[string]any{"id": "asc"},
		},
	}
}
