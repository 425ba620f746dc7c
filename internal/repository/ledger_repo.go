package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classloop/classloop-api/internal/models"
)

// Ledger errors. Either one aborts the enclosing transaction, so a rejected
// transfer changes no balance anywhere.
var (
	// ErrInsufficientPoints aborts a transfer whose actor cannot cover the cost.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrStaleReaction aborts a transfer priced against a reaction state that
	// changed before the transaction could lock it.
	ErrStaleReaction = errors.New("reaction changed since it was priced")
)

// ReactionTransfer describes one reaction toggle and the point movements it
// causes. OwnerDelta above zero credits the content owner, below zero debits
// them (clamped at a zero balance); the platform account always receives
// whatever the actor paid minus the owner's credit, plus any owner debit.
// ExpectedCurrent is the reaction kind the pricing was derived from (empty
// for no row); the transfer aborts when the stored row no longer matches.
type ReactionTransfer struct {
	ActorID         uint
	OwnerID         uint
	PostID          uint
	ActorCost       int
	OwnerDelta      int
	Reason          string
	ExpectedCurrent string
	// SetKind is the reaction row kind to upsert; empty deletes the row.
	SetKind string
}

// LedgerRepository applies point transfers and records them in the
// append-only ledger.
type LedgerRepository interface {
	ApplyReaction(ctx context.Context, transfer ReactionTransfer) ([]models.PointTransaction, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error)
	BalanceOf(ctx context.Context, userID uint) (int, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository instantiates a GORM-backed repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// ApplyReaction runs the whole transfer in one transaction: balance check,
// balance updates, ledger entries, and the reaction row toggle. Either all
// of it happens or none of it does.
func (r *ledgerRepository) ApplyReaction(ctx context.Context, transfer ReactionTransfer) ([]models.PointTransaction, error) {
	var entries []models.PointTransaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var actor models.User
		if err := lockForUpdate(tx).First(&actor, transfer.ActorID).Error; err != nil {
			return err
		}
		if !actor.CanSpend(transfer.ActorCost) {
			return ErrInsufficientPoints
		}

		// The actor lock serializes concurrent toggles for the same user, so
		// re-reading the reaction row here sees any transfer that committed
		// in between. A mismatch means the pricing is stale.
		current := ""
		var existing models.Reaction
		if err := lockForUpdate(tx).
			Where("post_id = ? AND user_id = ?", transfer.PostID, transfer.ActorID).
			First(&existing).Error; err == nil {
			current = existing.Kind
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if current != transfer.ExpectedCurrent {
			return ErrStaleReaction
		}

		ownerApplied := transfer.OwnerDelta
		if transfer.OwnerDelta < 0 {
			var owner models.User
			if err := lockForUpdate(tx).First(&owner, transfer.OwnerID).Error; err != nil {
				return err
			}
			if debit := -transfer.OwnerDelta; debit > owner.Points {
				ownerApplied = -owner.Points
			}
		}

		// The platform keeps what the actor paid minus the owner's credit;
		// an owner debit flows to the platform as well.
		platformDelta := transfer.ActorCost - ownerApplied

		if err := tx.Model(&models.User{}).
			Where("id = ?", transfer.ActorID).
			Update("points", gorm.Expr("points - ?", transfer.ActorCost)).Error; err != nil {
			return err
		}
		if ownerApplied != 0 {
			if err := tx.Model(&models.User{}).
				Where("id = ?", transfer.OwnerID).
				Update("points", gorm.Expr("points + ?", ownerApplied)).Error; err != nil {
				return err
			}
		}
		if platformDelta != 0 {
			if err := tx.Model(&models.User{}).
				Where("id = ?", models.PlatformAccountID).
				Update("points", gorm.Expr("points + ?", platformDelta)).Error; err != nil {
				return err
			}
		}

		postID := transfer.PostID
		entries = []models.PointTransaction{
			{ActorID: transfer.ActorID, CounterpartyID: transfer.ActorID, Amount: -transfer.ActorCost, Reason: transfer.Reason, PostID: &postID},
		}
		if ownerApplied != 0 {
			entries = append(entries, models.PointTransaction{
				ActorID: transfer.ActorID, CounterpartyID: transfer.OwnerID, Amount: ownerApplied, Reason: transfer.Reason, PostID: &postID,
			})
		}
		if platformDelta != 0 {
			entries = append(entries, models.PointTransaction{
				ActorID: transfer.ActorID, CounterpartyID: models.PlatformAccountID, Amount: platformDelta, Reason: models.LedgerReasonFee, PostID: &postID,
			})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}

		if transfer.SetKind == "" {
			return tx.Where("post_id = ? AND user_id = ?", transfer.PostID, transfer.ActorID).
				Delete(&models.Reaction{}).Error
		}

		reaction := models.Reaction{
			PostID: transfer.PostID,
			UserID: transfer.ActorID,
			Kind:   transfer.SetKind,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"kind": transfer.SetKind}),
		}).Create(&reaction).Error
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("actor_id = ? OR counterparty_id = ?", userID, userID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.PointTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

// BalanceOf sums the user's ledger entries. Used to audit the denormalized
// balance column.
func (r *ledgerRepository) BalanceOf(ctx context.Context, userID uint) (int, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("counterparty_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}

	return int(sum), nil
}
