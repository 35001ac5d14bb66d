package models

import "time"

// Order status lifecycle. Pending is the initial state; Completed and
// Refunded are terminal. Preparing belongs to the status vocabulary used by
// staff views but is never produced by a transition.
const (
	StatusPending   = "Pending"
	StatusAccepted  = "Accepted"
	StatusPreparing = "Preparing"
	StatusCompleted = "Completed"
	StatusRefunded  = "Refunded"
)

// validStatusTransitions is the only source of truth for the transition
// graph. A missing key means the state is terminal.
var validStatusTransitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusRefunded},
	StatusAccepted: {StatusCompleted},
}

type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"not null;index" json:"-"`
	TableNumber int         `gorm:"not null" json:"table_number"`
	Status      string      `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	TotalPrice  float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_price"`
	IsService   bool        `gorm:"not null;default:false" json:"is_service"`
	StaffID     *uint       `gorm:"index" json:"staff_id"`
	StaffName   *string     `gorm:"type:varchar(80)" json:"staff_name"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusPreparing, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the order may move to next from its
// current status.
func (o *Order) CanTransitionTo(next string) bool {
	for _, s := range validStatusTransitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

func (o *Order) Terminal() bool {
	return len(validStatusTransitions[o.Status]) == 0
}

// RecomputeTotal sums price*quantity over the line items. Totals are always
// derived here, never taken from client input.
func (o *Order) RecomputeTotal() {
	var total float64
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	o.TotalPrice = total
}
