package client

import "github.com/tableside/venue-app/models"

// LowStockThreshold flags tracked items running out on the admin dashboard.
const LowStockThreshold = 10

// The projections below are pure functions over the poller's snapshot,
// recomputed from scratch on every replacement. They hold no state of their
// own; one function exists per role.

// TableOrdersView partitions a table's own orders into the two tabs it
// renders. Completed and Refunded orders appear in neither tab.
type TableOrdersView struct {
	Pending  []models.Order
	Accepted []models.Order
}

func ProjectTableOrders(orders []models.Order) TableOrdersView {
	var view TableOrdersView
	for _, order := range orders {
		switch order.Status {
		case models.StatusPending:
			view.Pending = append(view.Pending, order)
		case models.StatusAccepted:
			view.Accepted = append(view.Accepted, order)
		}
	}
	return view
}

// StaffOrdersView buckets the order stream for the staff dashboard. Active
// is Pending or Preparing and completed is Completed; an Accepted order
// lands in neither bucket. That gap is the dashboard's observed behavior,
// kept as-is.
type StaffOrdersView struct {
	Active    []models.Order
	Completed []models.Order
}

func ProjectStaffOrders(orders []models.Order) StaffOrdersView {
	var view StaffOrdersView
	for _, order := range orders {
		switch order.Status {
		case models.StatusPending, models.StatusPreparing:
			view.Active = append(view.Active, order)
		case models.StatusCompleted:
			view.Completed = append(view.Completed, order)
		}
	}
	return view
}

// StockLevel pairs a tracked menu item with its low-stock flag. The flag is
// a pure function of current stock and is never stored anywhere.
type StockLevel struct {
	Item     models.MenuItem
	LowStock bool
}

// AdminOrdersView is the unfiltered stream plus stock levels for every
// tracked item.
type AdminOrdersView struct {
	Orders []models.Order
	Stock  []StockLevel
}

func ProjectAdminOrders(orders []models.Order, menu []models.MenuItem) AdminOrdersView {
	view := AdminOrdersView{Orders: orders}
	for _, item := range menu {
		if !item.TrackStock {
			continue
		}
		stock := 0
		if item.Stock != nil {
			stock = *item.Stock
		}
		view.Stock = append(view.Stock, StockLevel{
			Item:     item,
			LowStock: stock < LowStockThreshold,
		})
	}
	return view
}
