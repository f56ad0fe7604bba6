package search

import (
	"context"
	"time"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/pkg/pagination"
)

// Document is the search index projection of a Game. Its ID is the index's
// own document id, which makes indexing an upsert and removal a delete by id.
type Document struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Price       domain.Price `json:"price"`
	ReleaseDate time.Time    `json:"release_date"`
	Developer   *string      `json:"developer,omitempty"`
	Publisher   *string      `json:"publisher,omitempty"`
}

// DocumentFromGame projects g into a Document. It depends on nothing but g.
func DocumentFromGame(g *domain.Game) Document {
	return Document{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Price:       g.Price,
		ReleaseDate: g.ReleaseDate.UTC(),
		Developer:   g.Developer,
		Publisher:   g.Publisher,
	}
}

// Game rebuilds a Game from the document. Bookkeeping timestamps are not
// part of the projection and stay zero.
func (d Document) Game() domain.Game {
	return domain.Game{
		ID:          d.ID,
		Title:       d.Title,
		Price:       d.Price,
		Description: d.Description,
		ReleaseDate: d.ReleaseDate.UTC(),
		Developer:   d.Developer,
		Publisher:   d.Publisher,
	}
}

// Result is one page of search hits.
type Result struct {
	Games []domain.Game
	Total int64
}

// Indexer mirrors games into the search index.
type Indexer interface {
	// Index upserts the projection of game keyed by its id.
	Index(ctx context.Context, game *domain.Game) error

	// Remove deletes the document with id. A missing document is not an error.
	Remove(ctx context.Context, id string) error
}

// Searcher runs read queries against the index. Callers pass normalized
// paging values.
type Searcher interface {
	// Search returns the page p of documents matching text, best match first.
	Search(ctx context.Context, text string, p pagination.Params) (*Result, error)

	// Popular returns up to top games, newest release first.
	Popular(ctx context.Context, top int) ([]domain.Game, error)
}

// Engine is a search backend that can both index and query.
type Engine interface {
	Indexer
	Searcher
	Ping(ctx context.Context) error
}
