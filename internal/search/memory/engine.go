package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/search"
	"github.com/utafrali/CloudGames/pkg/pagination"
)

// titleBoost mirrors the title^3 weight of the Elasticsearch query.
const titleBoost = 3.0

// Engine is an in-memory search.Engine for local runs and tests. Scoring
// follows the shape of the Elasticsearch query: the best field of a fuzzy
// multi-field match, plus an exact match on the title.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]search.Document
}

var _ search.Engine = (*Engine)(nil)

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{docs: make(map[string]search.Document)}
}

// Index stores the projection of g, replacing any previous version.
func (e *Engine) Index(_ context.Context, g *domain.Game) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[g.ID] = search.DocumentFromGame(g)
	return nil
}

// Remove deletes the document with id if present.
func (e *Engine) Remove(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// Get returns the stored document, for assertions in tests.
func (e *Engine) Get(id string) (search.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	d, ok := e.docs[id]
	return d, ok
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

type scored struct {
	doc   search.Document
	score float64
}

// Search scores every document against text and returns page p, best score
// first and ties broken by id.
func (e *Engine) Search(_ context.Context, text string, p pagination.Params) (*search.Result, error) {
	terms := tokenize(text)

	e.mu.RLock()
	matched := make([]scored, 0)
	for _, d := range e.docs {
		if s := score(d, terms); s > 0 {
			matched = append(matched, scored{doc: d, score: s})
		}
	}
	e.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].doc.ID < matched[j].doc.ID
	})

	total := len(matched)
	start := min(p.Offset, total)
	end := min(start+p.PageSize, total)

	games := make([]domain.Game, 0, end-start)
	for _, m := range matched[start:end] {
		games = append(games, m.doc.Game())
	}
	return &search.Result{Games: games, Total: int64(total)}, nil
}

// Popular returns up to top documents, newest release first.
func (e *Engine) Popular(_ context.Context, top int) ([]domain.Game, error) {
	e.mu.RLock()
	docs := make([]search.Document, 0, len(e.docs))
	for _, d := range e.docs {
		docs = append(docs, d)
	}
	e.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].ReleaseDate.Equal(docs[j].ReleaseDate) {
			return docs[i].ReleaseDate.After(docs[j].ReleaseDate)
		}
		return docs[i].ID < docs[j].ID
	})

	if len(docs) > top {
		docs = docs[:top]
	}
	games := make([]domain.Game, 0, len(docs))
	for _, d := range docs {
		games = append(games, d.Game())
	}
	return games, nil
}

func score(d search.Document, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}

	title := tokenize(d.Title)
	best := titleBoost * fieldScore(title, terms, true)
	for _, f := range []*string{d.Description, d.Developer, d.Publisher} {
		if f == nil {
			continue
		}
		best = max(best, fieldScore(tokenize(*f), terms, true))
	}

	return best + fieldScore(title, terms, false)
}

// fieldScore counts query terms found among tokens. An exact hit counts 1;
// with fuzzy enabled a hit within the allowed edit distance counts 0.5.
func fieldScore(tokens, terms []string, fuzzy bool) float64 {
	var s float64
	for _, term := range terms {
		var hit float64
		for _, tok := range tokens {
			if tok == term {
				hit = 1
				break
			}
			if fuzzy && levenshtein(tok, term) <= allowedEdits(term) {
				hit = 0.5
			}
		}
		s += hit
	}
	return s
}

// allowedEdits follows Elasticsearch's AUTO fuzziness: exact for one or two
// characters, one edit up to five, two beyond.
func allowedEdits(term string) int {
	switch n := len([]rune(term)); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
