package models

import "time"

// PlatformAccountID is the fixed ledger account that absorbs point-economy fees.
const PlatformAccountID uint = 1

const (
	// RoleStudent is the default platform role.
	RoleStudent = "student"
	// RoleTeacher can own courses.
	RoleTeacher = "teacher"
	// RoleAdmin has unrestricted platform access.
	RoleAdmin = "admin"
)

// User represents a platform account with a spendable point balance.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanSpend reports whether the balance covers the given cost.
func (u User) CanSpend(cost int) bool {
	return u.Points >= cost
}
