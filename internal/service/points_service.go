package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

// ErrInsufficientPoints rejects a reaction the actor cannot afford. Nothing
// is charged on rejection.
var ErrInsufficientPoints = errors.New("insufficient points")

// PointsService runs the reaction point economy. The costs are fixed
// platform constants: a like costs the actor 24 (12 to the content owner,
// 12 to the platform account), undoing it costs 12 (all to the platform);
// a dislike costs the actor 12 and debits the owner 12 (both to the
// platform), undoing it costs 12. The undo never refunds the other party.
type PointsService interface {
	React(ctx context.Context, postID, actorID uint, payload dto.ReactionRequest) (dto.ReactionResponse, error)
	History(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error)
	AuditBalance(ctx context.Context, userID uint) (stored int, ledger int, err error)
}

type pointsService struct {
	ledger repository.LedgerRepository
	posts  repository.PostRepository
	users  repository.UserRepository
	events EventPublisher
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewPointsService constructs a PointsService instance.
func NewPointsService(ledger repository.LedgerRepository, posts repository.PostRepository, users repository.UserRepository, events EventPublisher, logger zerolog.Logger) PointsService {
	return &pointsService{
		ledger: ledger,
		posts:  posts,
		users:  users,
		events: events,
		logger: logger.With().Str("component", "points_service").Logger(),
		tracer: otel.Tracer("github.com/classloop/classloop-api/internal/service/points"),
	}
}

// React toggles the actor's reaction on a post and moves points accordingly.
// Reacting with the current kind undoes it; reacting with the other kind
// first undoes the old one and then applies the new one, charged as a single
// atomic transfer.
func (s *pointsService) React(ctx context.Context, postID, actorID uint, payload dto.ReactionRequest) (dto.ReactionResponse, error) {
	if payload.Kind != models.ReactionLike && payload.Kind != models.ReactionDislike {
		return dto.ReactionResponse{}, errors.New("unknown reaction kind")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReactionResponse{}, ErrPostNotFound
		}
		return dto.ReactionResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "points.react", trace.WithAttributes(
		attribute.Int64("post.id", int64(postID)),
		attribute.String("reaction.kind", payload.Kind),
	))
	defer span.End()

	// The repository rejects a transfer whose pricing no longer matches the
	// stored reaction row, so a concurrent toggle makes us re-read and price
	// against the fresh state instead of charging twice.
	var (
		transfer repository.ReactionTransfer
		active   bool
		applyErr error
	)
	for attempt := 0; attempt < maxReactAttempts; attempt++ {
		current := ""
		if reaction, err := s.posts.GetReaction(ctx, postID, actorID); err == nil {
			current = reaction.Kind
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReactionResponse{}, err
		}

		transfer, active = buildReactionTransfer(current, payload.Kind, actorID, post.UserID, postID)

		_, applyErr = s.ledger.ApplyReaction(spanCtx, transfer)
		if !errors.Is(applyErr, repository.ErrStaleReaction) {
			break
		}
	}
	if applyErr != nil {
		if errors.Is(applyErr, repository.ErrInsufficientPoints) {
			return dto.ReactionResponse{}, ErrInsufficientPoints
		}
		return dto.ReactionResponse{}, applyErr
	}
	span.SetAttributes(attribute.Int("transfer.actor_cost", transfer.ActorCost))

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return dto.ReactionResponse{}, err
	}

	s.events.Publish(ctx, SubjectReactionMoved, map[string]interface{}{
		"post_id":  postID,
		"actor_id": actorID,
		"kind":     transfer.SetKind,
		"active":   active,
	})
	s.logger.Info().Uint("post_id", postID).Uint("actor_id", actorID).Str("kind", payload.Kind).Bool("active", active).Msg("reaction applied")

	return dto.ReactionResponse{
		PostID:       postID,
		Kind:         transfer.SetKind,
		Active:       active,
		ActorBalance: actor.Points,
	}, nil
}

// maxReactAttempts bounds the re-pricing loop when concurrent toggles keep
// invalidating the read.
const maxReactAttempts = 3

// buildReactionTransfer maps the (current, requested) reaction pair onto a
// single transfer. A kind switch is priced as undo-old plus apply-new.
func buildReactionTransfer(current, requested string, actorID, ownerID, postID uint) (repository.ReactionTransfer, bool) {
	transfer := repository.ReactionTransfer{
		ActorID:         actorID,
		OwnerID:         ownerID,
		PostID:          postID,
		ExpectedCurrent: current,
	}

	switch {
	case current == "" && requested == models.ReactionLike:
		transfer.ActorCost = models.LikeCost
		transfer.OwnerDelta = models.LikeOwnerShare
		transfer.Reason = models.LedgerReasonLike
		transfer.SetKind = models.ReactionLike
		return transfer, true

	case current == "" && requested == models.ReactionDislike:
		transfer.ActorCost = models.DislikeCost
		transfer.OwnerDelta = -models.DislikeOwnerDebit
		transfer.Reason = models.LedgerReasonDislike
		transfer.SetKind = models.ReactionDislike
		return transfer, true

	case current == models.ReactionLike && requested == models.ReactionLike:
		transfer.ActorCost = models.UnlikeCost
		transfer.Reason = models.LedgerReasonUnlike
		return transfer, false

	case current == models.ReactionDislike && requested == models.ReactionDislike:
		transfer.ActorCost = models.UndislikeCost
		transfer.Reason = models.LedgerReasonUndislike
		return transfer, false

	case current == models.ReactionLike && requested == models.ReactionDislike:
		transfer.ActorCost = models.UnlikeCost + models.DislikeCost
		transfer.OwnerDelta = -models.DislikeOwnerDebit
		transfer.Reason = models.LedgerReasonDislike
		transfer.SetKind = models.ReactionDislike
		return transfer, true

	default: // dislike -> like
		transfer.ActorCost = models.UndislikeCost + models.LikeCost
		transfer.OwnerDelta = models.LikeOwnerShare
		transfer.Reason = models.LedgerReasonLike
		transfer.SetKind = models.ReactionLike
		return transfer, true
	}
}

func (s *pointsService) History(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error) {
	return s.ledger.ListByUser(ctx, userID, limit)
}

// AuditBalance returns the stored balance column next to the ledger sum so
// operators can spot drift.
func (s *pointsService) AuditBalance(ctx context.Context, userID uint) (int, int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	sum, err := s.ledger.BalanceOf(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	return user.Points, sum, nil
}
