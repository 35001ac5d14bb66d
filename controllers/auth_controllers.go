package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tableside/venue-app/models"
	"github.com/tableside/venue-app/services"
	"github.com/tableside/venue-app/utils"
)

var errInvalidCredentials = errors.New("invalid credentials")

type AuthController struct {
	DB       *gorm.DB
	QRTokens *services.QRTokenService
}

func NewAuthController(db *gorm.DB, qrTokens *services.QRTokenService) *AuthController {
	return &AuthController{DB: db, QRTokens: qrTokens}
}

// Login -> username/password to JWT
func (ac *AuthController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	if err := ac.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("User %s logged in (role=%s)", user.Username, user.Role)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"role":         user.Role,
		"table_number": user.TableNumber,
	})
}

// QRAuth -> table session from a scanned QR token. The token is single-use
// and expires server-side; nothing about its validity is derived from the
// token string itself.
func (ac *AuthController) QRAuth(c *gin.Context) {
	var input struct {
		TableNumber int    `json:"tableNumber" binding:"required"`
		Token       string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := ac.QRTokens.Redeem(input.TableNumber, input.Token); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var user models.User
	if err := ac.DB.Where("table_number = ?", input.TableNumber).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d authenticated via QR", input.TableNumber)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"role":         user.Role,
		"table_number": user.TableNumber,
	})
}
