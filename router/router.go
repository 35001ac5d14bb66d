package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tableside/venue-app/controllers"
	"github.com/tableside/venue-app/middlewares"
	"github.com/tableside/venue-app/models"
	"github.com/tableside/venue-app/services"
)

func SetupRouter(db *gorm.DB, qrTokens *services.QRTokenService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())

	authCtrl := controllers.NewAuthController(db, qrTokens)
	menuCtrl := controllers.NewMenuController(db)
	orderCtrl := controllers.NewOrderController(db)
	tableCtrl := controllers.NewTableController(db, qrTokens)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Auth endpoints get a tight per-IP limit; everything else is unmetered
	// since the clients poll on a fixed cadence anyway.
	loginLimiter := middlewares.NewRateLimiter(rate.Limit(2), 10)
	authGroup := r.Group("/auth")
	authGroup.Use(loginLimiter.RateLimit())
	{
		authGroup.POST("/login", authCtrl.Login)
		authGroup.POST("/qr", authCtrl.QRAuth)
	}

	// Menu is readable without a session so a terminal can render while
	// authentication is still in flight.
	r.GET("/menu", menuCtrl.GetMenu)

	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.GET("/orders", orderCtrl.GetOrders)
		auth.POST("/orders", orderCtrl.CreateOrder)
		auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		auth.PUT("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	}

	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", tableCtrl.GetAllUsers)
		admin.POST("/staff", tableCtrl.CreateStaff)
		admin.POST("/tables", tableCtrl.CreateTable)
		admin.POST("/tables/:table_number/qr", tableCtrl.IssueQRToken)
	}

	return r
}
