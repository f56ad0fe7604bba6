package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/CloudGames/internal/domain"
	"github.com/utafrali/CloudGames/internal/event"
	"github.com/utafrali/CloudGames/internal/payment"
	"github.com/utafrali/CloudGames/internal/repository"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
)

// ErrGameNotFound is returned when the game to purchase does not exist.
var ErrGameNotFound = fmt.Errorf("game %w", apperrors.ErrNotFound)

// gameNotFound creates the 404 returned by a purchase of an unknown game.
func gameNotFound(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "GAME_NOT_FOUND",
		Message: fmt.Sprintf("game with id %s not found", id),
		Status:  http.StatusNotFound,
		Err:     ErrGameNotFound,
	}
}

// sagaStep is one forward action of a saga and its compensation. A nil
// compensate means the step has nothing to undo.
type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// PurchaseService runs the purchase saga: load the game, charge the user,
// assemble the record.
type PurchaseService struct {
	repo        repository.GameRepository
	payments    payment.Creator
	events      event.Publisher
	logger      *slog.Logger
	stepTimeout time.Duration
}

// NewPurchaseService creates a new purchase service. A zero stepTimeout
// leaves every step to the caller's deadline.
func NewPurchaseService(
	repo repository.GameRepository,
	payments payment.Creator,
	events event.Publisher,
	logger *slog.Logger,
	stepTimeout time.Duration,
) *PurchaseService {
	if events == nil {
		events = event.Noop{}
	}
	return &PurchaseService{
		repo:        repo,
		payments:    payments,
		events:      events,
		logger:      logger,
		stepTimeout: stepTimeout,
	}
}

// Purchase charges userID for gameID at the game's current price. The
// payment service is never called for an unknown game, and a failed payment
// never yields a record.
func (s *PurchaseService) Purchase(ctx context.Context, gameID, userID string) (*domain.PurchaseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	var (
		game      *domain.Game
		orderID   = uuid.New().String()
		paymentID uuid.UUID
		record    *domain.PurchaseRecord
	)

	steps := []sagaStep{
		{
			name: domain.SagaStepLoadGame,
			run: func(ctx context.Context) error {
				g, err := s.repo.GetByID(ctx, gameID)
				if err != nil {
					return fmt.Errorf("load game: %w", err)
				}
				if g == nil {
					return gameNotFound(gameID)
				}
				game = g
				return nil
			},
		},
		{
			// A charge is never reversed here; refunds belong to the payment service.
			name: domain.SagaStepCreatePayment,
			run: func(ctx context.Context) error {
				id, err := s.payments.CreatePayment(ctx, domain.PaymentRequest{
					OrderID: orderID,
					UserID:  userID,
					Amount:  game.Price,
				})
				if err != nil {
					return fmt.Errorf("create payment: %w", err)
				}
				paymentID = id
				return nil
			},
		},
		{
			name: domain.SagaStepAssembleRecord,
			run: func(context.Context) error {
				record = &domain.PurchaseRecord{
					OrderID:   orderID,
					PaymentID: paymentID.String(),
					GameID:    game.ID,
					UserID:    userID,
					Amount:    game.Price,
				}
				return nil
			},
		},
	}

	saga, err := s.runSaga(ctx, steps)
	s.logSaga(ctx, saga, orderID, gameID, err)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishGamePurchased(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish game.purchased event",
			slog.String("order_id", record.OrderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "game purchased",
		slog.String("order_id", record.OrderID),
		slog.String("payment_id", record.PaymentID),
		slog.String("game_id", record.GameID),
		slog.String("amount", record.Amount.String()),
	)
	return record, nil
}

// runSaga executes steps in order, each under its own timeout. When a step
// fails, the completed steps are compensated in reverse order and the rest
// are skipped.
func (s *PurchaseService) runSaga(ctx context.Context, steps []sagaStep) (*domain.Saga, error) {
	names := make([]string, len(steps))
	for i, st := range steps {
		names[i] = st.name
	}
	saga := domain.NewSaga(names...)

	for i, st := range steps {
		if err := s.runStep(ctx, st.run); err != nil {
			saga.Step(st.name).Fail(err.Error())
			s.compensate(ctx, saga, steps[:i])
			saga.SkipPending()
			return saga, err
		}
		saga.Step(st.name).Complete()
	}
	return saga, nil
}

func (s *PurchaseService) runStep(ctx context.Context, fn func(context.Context) error) error {
	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (s *PurchaseService) compensate(ctx context.Context, saga *domain.Saga, done []sagaStep) {
	// Compensations run even if the request was cancelled.
	ctx = context.WithoutCancel(ctx)

	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.compensate == nil {
			continue
		}
		if err := s.runStep(ctx, st.compensate); err != nil {
			s.logger.ErrorContext(ctx, "saga compensation failed",
				slog.String("step", st.name),
				slog.String("error", err.Error()),
			)
			continue
		}
		saga.Step(st.name).Compensate()
	}
}

func (s *PurchaseService) logSaga(ctx context.Context, saga *domain.Saga, orderID, gameID string, err error) {
	attrs := []any{
		slog.String("order_id", orderID),
		slog.String("game_id", gameID),
		slog.Bool("succeeded", saga.Succeeded()),
		slog.Any("steps", saga.Steps),
	}
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "purchase saga finished", attrs...)
	case errors.Is(err, apperrors.ErrNotFound):
		s.logger.InfoContext(ctx, "purchase saga finished", attrs...)
	default:
		s.logger.WarnContext(ctx, "purchase saga finished", append(attrs, slog.String("error", err.Error()))...)
	}
}
