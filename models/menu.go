package models

import "time"

// CategoryService marks zero-priced service requests (call waiter, empty
// glasses). Orders containing a service item share the normal lifecycle but
// never carry a price or touch stock.
const CategoryService = "service"

type MenuItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string    `gorm:"type:varchar(20);not null" json:"category"`
	Description string    `gorm:"type:varchar(200)" json:"description"`
	Stock       *int      `json:"stock"`
	TrackStock  bool      `gorm:"not null;default:false" json:"track_stock"`
	CreatedAt   time.Time `gorm:"not null" json:"-"`
	UpdatedAt   time.Time `gorm:"not null" json:"-"`
}

func (m *MenuItem) IsService() bool {
	return m.Category == CategoryService
}

// InStock reports whether the item can cover the requested quantity.
// Untracked items are always available; stock only gates availability when
// track_stock is set.
func (m *MenuItem) InStock(quantity int) bool {
	if !m.TrackStock || m.Stock == nil {
		return true
	}
	return *m.Stock >= quantity
}

// MarshalStock returns the stock value the API exposes: nil unless the item
// tracks stock, so clients never gate availability on a meaningless number.
func (m *MenuItem) MarshalStock() *int {
	if !m.TrackStock {
		return nil
	}
	return m.Stock
}
