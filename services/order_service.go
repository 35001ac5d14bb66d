package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tableside/venue-app/models"
	"github.com/tableside/venue-app/utils"
)

var (
	// ErrValidation wraps malformed requests rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition covers both a disallowed edge and a lost race:
	// the order's current status did not match the precondition at write
	// time. The correct client response is a fresh re-read, not a retry.
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrStaffRequired     = errors.New("staff identity required to accept an order")
)

// OrderItemRequest is the only shape accepted from clients: an id and a
// quantity. Names and prices are resolved server-side.
type OrderItemRequest struct {
	ID       uint `json:"id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required"`
}

type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// CreateOrder validates the requested items, snapshots menu names and
// prices, decrements tracked stock and creates the order in status Pending.
// Stock is verified for every line before any decrement so a rejected order
// leaves stock untouched.
func (s *OrderService) CreateOrder(user *models.User, items []OrderItemRequest) (*models.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}
	if user.TableNumber == nil {
		return nil, fmt.Errorf("%w: account has no table assigned", ErrValidation)
	}

	var created *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		menuItems := make([]models.MenuItem, len(items))
		for i, req := range items {
			if req.Quantity <= 0 {
				return fmt.Errorf("%w: quantity must be positive for item %d", ErrValidation, req.ID)
			}
			var menuItem models.MenuItem
			if err := tx.First(&menuItem, req.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: unknown menu item %d", ErrValidation, req.ID)
				}
				return err
			}
			if !menuItem.InStock(req.Quantity) {
				return fmt.Errorf("%w: not enough stock for %s", ErrValidation, menuItem.Name)
			}
			menuItems[i] = menuItem
		}

		order := models.Order{
			UserID:      user.ID,
			TableNumber: *user.TableNumber,
			Status:      models.StatusPending,
			IsService:   true,
		}
		for i, req := range items {
			menuItem := menuItems[i]
			price := menuItem.Price
			if menuItem.IsService() {
				// Service requests are free by definition.
				price = 0
			} else {
				order.IsService = false
			}
			order.Items = append(order.Items, models.OrderItem{
				MenuItemID: menuItem.ID,
				Name:       menuItem.Name,
				Price:      price,
				Quantity:   req.Quantity,
			})

			if menuItem.TrackStock && menuItem.Stock != nil && !menuItem.IsService() {
				if err := tx.Model(&models.MenuItem{}).
					Where("id = ?", menuItem.ID).
					Update("stock", gorm.Expr("stock - ?", req.Quantity)).Error; err != nil {
					return err
				}
			}
		}
		order.RecomputeTotal()

		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		created = &order
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order %d created for table %d (total=%.2f, service=%t)",
		created.ID, created.TableNumber, created.TotalPrice, created.IsService)
	return created, nil
}

// TransitionStatus moves an order along the allowed transition graph.
//
// The write is a single conditional update guarded by the status observed at
// read time. If another actor advanced the order in between, zero rows match
// and the caller gets ErrInvalidTransition rather than a silent no-op; this
// is how two staff racing to accept the same order are arbitrated. Accepting
// records the staff identity in the same update as the status so the two are
// never observable apart.
func (s *OrderService) TransitionStatus(orderID uint, newStatus string, actor *models.User) (*models.Order, error) {
	if !models.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !order.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
	}

	updates := map[string]interface{}{
		"status":     newStatus,
		"updated_at": time.Now(),
	}
	if newStatus == models.StatusAccepted {
		if actor == nil || actor.Role != models.RoleStaff {
			return nil, ErrStaffRequired
		}
		updates["staff_id"] = actor.ID
		updates["staff_name"] = actor.Username
	}

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race: someone else moved the order first.
		if err := s.db.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: order is now %s", ErrInvalidTransition, order.Status)
	}

	utils.InfoLogger.Printf("Order %d: %s -> %s", orderID, order.Status, newStatus)

	var updated models.Order
	if err := s.db.Preload("Items").First(&updated, orderID).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListOrders returns orders scoped to the caller: table accounts see only
// their own table, staff and admin see everything.
func (s *OrderService) ListOrders(role models.Role, tableNumber *int) ([]models.Order, error) {
	query := s.db.Preload("Items").Order("id asc")
	if role == models.RoleTable {
		if tableNumber == nil {
			return nil, fmt.Errorf("%w: table account without table number", ErrValidation)
		}
		query = query.Where("table_number = ?", *tableNumber)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}
