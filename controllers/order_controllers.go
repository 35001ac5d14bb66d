package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tableside/venue-app/models"
	"github.com/tableside/venue-app/services"
	"github.com/tableside/venue-app/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db, Orders: services.NewOrderService(db)}
}

// currentUser loads the authenticated user set by the auth middleware.
func (oc *OrderController) currentUser(c *gin.Context) (*models.User, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return nil, false
	}
	var user models.User
	if err := oc.DB.First(&user, userID).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unknown user"))
		return nil, false
	}
	return &user, true
}

// CreateOrder -> place an order for the caller's table (status Pending).
// The body carries ids and quantities only; prices and the total are always
// recomputed here.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	user, ok := oc.currentUser(c)
	if !ok {
		return
	}

	var body struct {
		Items []services.OrderItemRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateOrder(user, body.Items)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.RespondError(c, http.StatusBadRequest, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders -> orders scoped server-side to the caller's role: table
// accounts only ever receive their own table's orders.
func (oc *OrderController) GetOrders(c *gin.Context) {
	user, ok := oc.currentUser(c)
	if !ok {
		return
	}

	orders, err := oc.Orders.ListOrders(user.Role, user.TableNumber)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrderByID -> detail for one order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := oc.Orders.GetOrder(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus -> run one transition through the engine. The acting
// staff identity comes from the JWT, never from the request body.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	user, ok := oc.currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.TransitionStatus(uint(id), body.Status, user)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, order)
	case errors.Is(err, services.ErrOrderNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrStaffRequired):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrValidation):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
