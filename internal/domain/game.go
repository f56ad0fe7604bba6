package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/CloudGames/pkg/errors"
)

// MaxTitleLength bounds Game.Title in characters.
const MaxTitleLength = 255

// Game is the canonical catalog entity. The record store owns it; the search
// index only ever holds a projection of it.
type Game struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       Price     `json:"price"`
	Description *string   `json:"description,omitempty"`
	ReleaseDate time.Time `json:"releaseDate"`
	Developer   *string   `json:"developer,omitempty"`
	Publisher   *string   `json:"publisher,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GameFields are the mutable fields of a Game. An update replaces all of
// them together.
type GameFields struct {
	Title       string    `json:"title" validate:"notblank,max=255"`
	Price       Price     `json:"price"`
	Description *string   `json:"description,omitempty"`
	ReleaseDate time.Time `json:"releaseDate"`
	Developer   *string   `json:"developer,omitempty"`
	Publisher   *string   `json:"publisher,omitempty"`
}

// NewGame builds a Game with a fresh identifier from f.
func NewGame(f GameFields) (*Game, error) {
	g := &Game{ID: uuid.New().String()}
	g.Apply(f)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Apply replaces every mutable field with the values in f, normalizing the
// price scale and the release date's location.
func (g *Game) Apply(f GameFields) {
	g.Title = strings.TrimSpace(f.Title)
	g.Price = f.Price.Rounded()
	g.Description = f.Description
	g.ReleaseDate = f.ReleaseDate.UTC()
	g.Developer = f.Developer
	g.Publisher = f.Publisher
}

// Fields returns the mutable fields of g.
func (g *Game) Fields() GameFields {
	return GameFields{
		Title:       g.Title,
		Price:       g.Price,
		Description: g.Description,
		ReleaseDate: g.ReleaseDate,
		Developer:   g.Developer,
		Publisher:   g.Publisher,
	}
}

// Validate checks the invariants the record store relies on.
func (g *Game) Validate() error {
	switch {
	case strings.TrimSpace(g.Title) == "":
		return apperrors.InvalidInput("title is required")
	case len([]rune(g.Title)) > MaxTitleLength:
		return apperrors.InvalidInput("title must be at most 255 characters")
	case g.Price.IsNegative():
		return apperrors.InvalidInput("price must not be negative")
	case g.ReleaseDate.IsZero():
		return apperrors.InvalidInput("releaseDate is required")
	}
	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *s, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
