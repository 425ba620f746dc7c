package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/models"
)

func seedEconomy(t *testing.T, db *gorm.DB, actorPoints, ownerPoints int) (models.User, models.User, models.Post) {
	t.Helper()

	// The platform account takes user ID 1.
	platform := seedUser(t, db, "Platform", 0)
	require.Equal(t, models.PlatformAccountID, platform.ID)

	owner := seedUser(t, db, "Owner", ownerPoints)
	actor := seedUser(t, db, "Actor", actorPoints)
	course := seedCourse(t, db, owner.ID, "Economics")
	seedMember(t, db, course.ID, actor.ID)

	post := models.Post{CourseID: course.ID, UserID: owner.ID, Body: "hello"}
	require.NoError(t, db.Create(&post).Error)

	return actor, owner, post
}

func points(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.Points
}

func TestLedgerRepositoryLikeSplitsCost(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	actor, owner, post := seedEconomy(t, db, 100, 0)

	entries, err := repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID:    actor.ID,
		OwnerID:    owner.ID,
		PostID:     post.ID,
		ActorCost:  models.LikeCost,
		OwnerDelta: models.LikeOwnerShare,
		Reason:     models.LedgerReasonLike,
		SetKind:    models.ReactionLike,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, 100-models.LikeCost, points(t, db, actor.ID))
	require.Equal(t, models.LikeOwnerShare, points(t, db, owner.ID))
	require.Equal(t, models.LikeCost-models.LikeOwnerShare, points(t, db, models.PlatformAccountID))

	// Every transfer conserves points: the entries sum to zero.
	total := 0
	for _, entry := range entries {
		total += entry.Amount
	}
	require.Equal(t, 0, total)

	var reaction models.Reaction
	require.NoError(t, db.Where("post_id = ? AND user_id = ?", post.ID, actor.ID).First(&reaction).Error)
	require.Equal(t, models.ReactionLike, reaction.Kind)
}

func TestLedgerRepositoryInsufficientBalanceIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	actor, owner, post := seedEconomy(t, db, models.LikeCost-1, 0)

	_, err := repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID:    actor.ID,
		OwnerID:    owner.ID,
		PostID:     post.ID,
		ActorCost:  models.LikeCost,
		OwnerDelta: models.LikeOwnerShare,
		Reason:     models.LedgerReasonLike,
		SetKind:    models.ReactionLike,
	})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// The rejected transfer left nothing behind.
	require.Equal(t, models.LikeCost-1, points(t, db, actor.ID))
	require.Equal(t, 0, points(t, db, owner.ID))
	require.Equal(t, 0, points(t, db, models.PlatformAccountID))

	var entryCount int64
	require.NoError(t, db.Model(&models.PointTransaction{}).Count(&entryCount).Error)
	require.Equal(t, int64(0), entryCount)

	var reactionCount int64
	require.NoError(t, db.Model(&models.Reaction{}).Count(&reactionCount).Error)
	require.Equal(t, int64(0), reactionCount)
}

func TestLedgerRepositoryDislikeClampsOwnerDebit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	actor, owner, post := seedEconomy(t, db, 50, 5)

	entries, err := repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID:    actor.ID,
		OwnerID:    owner.ID,
		PostID:     post.ID,
		ActorCost:  models.DislikeCost,
		OwnerDelta: -models.DislikeOwnerDebit,
		Reason:     models.LedgerReasonDislike,
		SetKind:    models.ReactionDislike,
	})
	require.NoError(t, err)

	// The owner held 5 points, less than the 12 point debit, so the debit
	// stops at zero and the platform absorbs what was actually collected.
	require.Equal(t, 50-models.DislikeCost, points(t, db, actor.ID))
	require.Equal(t, 0, points(t, db, owner.ID))
	require.Equal(t, models.DislikeCost+5, points(t, db, models.PlatformAccountID))

	total := 0
	for _, entry := range entries {
		total += entry.Amount
	}
	require.Equal(t, 0, total)
}

func TestLedgerRepositoryUndoRemovesReactionRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	actor, owner, post := seedEconomy(t, db, 100, 0)

	_, err := repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID: actor.ID, OwnerID: owner.ID, PostID: post.ID,
		ActorCost: models.LikeCost, OwnerDelta: models.LikeOwnerShare,
		Reason: models.LedgerReasonLike, SetKind: models.ReactionLike,
	})
	require.NoError(t, err)

	_, err = repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID: actor.ID, OwnerID: owner.ID, PostID: post.ID,
		ActorCost: models.UnlikeCost, ExpectedCurrent: models.ReactionLike,
		Reason: models.LedgerReasonUnlike, SetKind: "",
	})
	require.NoError(t, err)

	// The undo charges the actor but never claws back the owner's share.
	require.Equal(t, 100-models.LikeCost-models.UnlikeCost, points(t, db, actor.ID))
	require.Equal(t, models.LikeOwnerShare, points(t, db, owner.ID))

	var reactionCount int64
	require.NoError(t, db.Model(&models.Reaction{}).Where("post_id = ?", post.ID).Count(&reactionCount).Error)
	require.Equal(t, int64(0), reactionCount)
}

func TestLedgerRepositoryRejectsStalePricing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	actor, owner, post := seedEconomy(t, db, 100, 0)

	likeTransfer := ReactionTransfer{
		ActorID:    actor.ID,
		OwnerID:    owner.ID,
		PostID:     post.ID,
		ActorCost:  models.LikeCost,
		OwnerDelta: models.LikeOwnerShare,
		Reason:     models.LedgerReasonLike,
		SetKind:    models.ReactionLike,
	}
	_, err := repo.ApplyReaction(ctx, likeTransfer)
	require.NoError(t, err)

	// A second transfer priced against the pre-like state must abort instead
	// of charging the actor again for the same reaction row.
	_, err = repo.ApplyReaction(ctx, likeTransfer)
	require.ErrorIs(t, err, ErrStaleReaction)

	require.Equal(t, 100-models.LikeCost, points(t, db, actor.ID))
	require.Equal(t, models.LikeOwnerShare, points(t, db, owner.ID))

	var entryCount int64
	require.NoError(t, db.Model(&models.PointTransaction{}).Count(&entryCount).Error)
	require.Equal(t, int64(3), entryCount)

	var reactionCount int64
	require.NoError(t, db.Model(&models.Reaction{}).Where("post_id = ?", post.ID).Count(&reactionCount).Error)
	require.Equal(t, int64(1), reactionCount)

	// Pricing against the committed state goes through as the undo.
	_, err = repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID: actor.ID, OwnerID: owner.ID, PostID: post.ID,
		ActorCost: models.UnlikeCost, ExpectedCurrent: models.ReactionLike,
		Reason: models.LedgerReasonUnlike, SetKind: "",
	})
	require.NoError(t, err)
	require.Equal(t, 100-models.LikeCost-models.UnlikeCost, points(t, db, actor.ID))
}

func TestLedgerRepositoryBalanceOfSumsCounterpartyEntries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	actor, owner, post := seedEconomy(t, db, 100, 0)

	_, err := repo.ApplyReaction(ctx, ReactionTransfer{
		ActorID: actor.ID, OwnerID: owner.ID, PostID: post.ID,
		ActorCost: models.LikeCost, OwnerDelta: models.LikeOwnerShare,
		Reason: models.LedgerReasonLike, SetKind: models.ReactionLike,
	})
	require.NoError(t, err)

	ownerSum, err := repo.BalanceOf(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.LikeOwnerShare, ownerSum)

	actorSum, err := repo.BalanceOf(ctx, actor.ID)
	require.NoError(t, err)
	require.Equal(t, -models.LikeCost, actorSum)

	history, err := repo.ListByUser(ctx, actor.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
}
