package models

import "time"

// Role is the closed set of client roles. Handlers branch on these
// constants, never on free-form strings.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleTable Role = "table"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleTable:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(128)" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null" json:"role"`
	TableNumber  *int      `gorm:"uniqueIndex" json:"table_number,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
