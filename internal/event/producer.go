package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/CloudGames/internal/domain"
	pkgkafka "github.com/utafrali/CloudGames/pkg/kafka"
	"github.com/utafrali/CloudGames/pkg/logger"
)

// Event type constants for game domain events.
const (
	TypeGameCreated   = "game.created"
	TypeGameUpdated   = "game.updated"
	TypeGameDeleted   = "game.deleted"
	TypeGamePurchased = "game.purchased"
)

// DefaultTopic carries every game event.
const DefaultTopic = "game.events"

// AggregateTypeGame is the aggregate type of every game event.
const AggregateTypeGame = "game"

// SourceGamesService identifies events originating from this service.
const SourceGamesService = "games-service"

// GameData is the payload of game.created and game.updated events.
type GameData struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Price       domain.Price `json:"price"`
	Description *string      `json:"description,omitempty"`
	ReleaseDate time.Time    `json:"release_date"`
	Developer   *string      `json:"developer,omitempty"`
	Publisher   *string      `json:"publisher,omitempty"`
}

// GameDeletedData is the payload of a game.deleted event.
type GameDeletedData struct {
	ID string `json:"id"`
}

// GamePurchasedData is the payload of a game.purchased event.
type GamePurchasedData struct {
	OrderID   string       `json:"order_id"`
	PaymentID string       `json:"payment_id"`
	GameID    string       `json:"game_id"`
	UserID    string       `json:"user_id"`
	Amount    domain.Price `json:"amount"`
}

// Publisher is what the orchestrators use to announce changes.
type Publisher interface {
	PublishGameCreated(ctx context.Context, game *domain.Game) error
	PublishGameUpdated(ctx context.Context, game *domain.Game) error
	PublishGameDeleted(ctx context.Context, id string) error
	PublishGamePurchased(ctx context.Context, record *domain.PurchaseRecord) error
}

// EventPublisher is the part of *pkgkafka.Producer used here.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes game domain events to Kafka.
type Producer struct {
	kafka  EventPublisher
	topic  string
	logger *slog.Logger
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a new event producer. An empty topic uses DefaultTopic.
func NewProducer(kafka EventPublisher, topic string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{
		kafka:  kafka,
		topic:  topic,
		logger: logger,
	}
}

func gameData(g *domain.Game) GameData {
	return GameData{
		ID:          g.ID,
		Title:       g.Title,
		Price:       g.Price,
		Description: g.Description,
		ReleaseDate: g.ReleaseDate.UTC(),
		Developer:   g.Developer,
		Publisher:   g.Publisher,
	}
}

// PublishGameCreated publishes a game.created event.
func (p *Producer) PublishGameCreated(ctx context.Context, game *domain.Game) error {
	return p.publish(ctx, TypeGameCreated, game.ID, gameData(game))
}

// PublishGameUpdated publishes a game.updated event.
func (p *Producer) PublishGameUpdated(ctx context.Context, game *domain.Game) error {
	return p.publish(ctx, TypeGameUpdated, game.ID, gameData(game))
}

// PublishGameDeleted publishes a game.deleted event.
func (p *Producer) PublishGameDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TypeGameDeleted, id, GameDeletedData{ID: id})
}

// PublishGamePurchased publishes a game.purchased event.
func (p *Producer) PublishGamePurchased(ctx context.Context, record *domain.PurchaseRecord) error {
	data := GamePurchasedData{
		OrderID:   record.OrderID,
		PaymentID: record.PaymentID,
		GameID:    record.GameID,
		UserID:    record.UserID,
		Amount:    record.Amount,
	}
	return p.publish(ctx, TypeGamePurchased, record.GameID, data)
}

func (p *Producer) publish(ctx context.Context, eventType, gameID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, gameID, AggregateTypeGame, SourceGamesService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published game event",
		slog.String("event_type", eventType),
		slog.String("game_id", gameID),
	)
	return nil
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

var _ Publisher = Noop{}

func (Noop) PublishGameCreated(context.Context, *domain.Game) error             { return nil }
func (Noop) PublishGameUpdated(context.Context, *domain.Game) error             { return nil }
func (Noop) PublishGameDeleted(context.Context, string) error                   { return nil }
func (Noop) PublishGamePurchased(context.Context, *domain.PurchaseRecord) error { return nil }
