package models

import "time"

// Point-economy costs. These are fixed platform constants with no
// configuration surface.
const (
	LikeCost          = 24
	LikeOwnerShare    = 12
	UnlikeCost        = 12
	DislikeCost       = 12
	DislikeOwnerDebit = 12
	UndislikeCost     = 12
)

// Ledger reasons.
const (
	LedgerReasonLike      = "like"
	LedgerReasonUnlike    = "unlike"
	LedgerReasonDislike   = "dislike"
	LedgerReasonUndislike = "undislike"
	LedgerReasonFee       = "fee"
)

// PointTransaction is one append-only ledger entry. Amount is signed and
// applied to the counterparty's balance; the actor initiated the event.
// Balances can always be rebuilt by summing a user's entries.
type PointTransaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ActorID        uint      `gorm:"not null;index" json:"actor_id"`
	CounterpartyID uint      `gorm:"not null;index" json:"counterparty_id"`
	Amount         int       `gorm:"not null" json:"amount"`
	Reason         string    `gorm:"size:32;not null" json:"reason"`
	PostID         *uint     `gorm:"index" json:"post_id"`
	CreatedAt      time.Time `json:"created_at"`
}
