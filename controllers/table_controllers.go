package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tableside/venue-app/models"
	"github.com/tableside/venue-app/services"
	"github.com/tableside/venue-app/utils"
)

// TableController is the admin provisioning surface: table accounts and the
// QR tokens that let a terminal at that table authenticate.
type TableController struct {
	DB       *gorm.DB
	QRTokens *services.QRTokenService
}

func NewTableController(db *gorm.DB, qrTokens *services.QRTokenService) *TableController {
	return &TableController{DB: db, QRTokens: qrTokens}
}

// CreateTable -> provision a table account
func (tc *TableController) CreateTable(c *gin.Context) {
	var input struct {
		TableNumber int    `json:"table_number" binding:"required"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var existing models.User
	if err := tc.DB.Where("table_number = ?", input.TableNumber).First(&existing).Error; err == nil {
		utils.RespondError(c, http.StatusBadRequest,
			fmt.Errorf("table %d already exists", input.TableNumber))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	user := models.User{
		Username:     fmt.Sprintf("table%d", input.TableNumber),
		PasswordHash: string(hashed),
		Role:         models.RoleTable,
		TableNumber:  &input.TableNumber,
	}
	if err := tc.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d provisioned", input.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "Table created", gin.H{
		"username":     user.Username,
		"table_number": input.TableNumber,
	})
}

// IssueQRToken -> fresh single-use token for one table's QR code
func (tc *TableController) IssueQRToken(c *gin.Context) {
	tableNumber, err := strconv.Atoi(c.Param("table_number"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table number"))
		return
	}

	var user models.User
	if err := tc.DB.Where("table_number = ?", tableNumber).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("table %d not found", tableNumber))
		return
	}

	token, err := tc.QRTokens.Issue(tableNumber)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "QR token issued", gin.H{
		"table_number": tableNumber,
		"token":        token,
	})
}

// GetAllUsers -> admin listing of accounts
func (tc *TableController) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := tc.DB.Order("id asc").Find(&users).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of users", users)
}

// CreateStaff -> provision a staff account
func (tc *TableController) CreateStaff(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var existing models.User
	if err := tc.DB.Where("username = ?", input.Username).First(&existing).Error; err == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("username already exists"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	user := models.User{
		Username:     input.Username,
		PasswordHash: string(hashed),
		Role:         models.RoleStaff,
	}
	if err := tc.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Staff account created", gin.H{
		"user_id": user.ID,
	})
}
