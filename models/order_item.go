package models

import "time"

// OrderItem is a line of an order. Name and price are snapshots taken at
// order time so later menu edits do not rewrite history.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	OrderID    uint      `gorm:"not null;index" json:"-"`
	MenuItemID uint      `gorm:"not null" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Price      float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `gorm:"not null" json:"-"`
	UpdatedAt  time.Time `gorm:"not null" json:"-"`
}
