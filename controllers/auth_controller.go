package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"unidos-api/config"
	"unidos-api/models"
	"unidos-api/utils"
)

type AuthController struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{db: db, cfg: cfg}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	// Name fills the NGO or company profile; required for those roles.
	Name string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and, for NGO and company roles, the
// matching profile row.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	if !utils.IsValidUsername(req.Username) {
		utils.SendError(c, http.StatusBadRequest, "invalid username")
		return
	}
	if !utils.IsValidEmail(req.Email) {
		utils.SendError(c, http.StatusBadRequest, "invalid email address")
		return
	}
	if !utils.IsStrongPassword(req.Password) {
		utils.SendError(c, http.StatusBadRequest, "password must be at least 8 characters with a letter and a digit")
		return
	}

	switch req.Role {
	case models.RoleNGO, models.RoleCompany:
		if req.Name == "" {
			utils.SendError(c, http.StatusBadRequest, "name is required for this role")
			return
		}
	case models.RoleExternalMember:
	default:
		utils.SendError(c, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "could not process the password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		Password:     string(hash),
		Role:         req.Role,
		Active:       true,
		LastAccessAt: time.Now(),
	}

	err = ac.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		switch req.Role {
		case models.RoleNGO:
			return tx.Create(&models.NGOProfile{UserID: user.ID, Name: req.Name}).Error
		case models.RoleCompany:
			return tx.Create(&models.Company{UserID: user.ID, Name: req.Name}).Error
		case models.RoleExternalMember:
			name := req.Name
			if name == "" {
				name = req.Username
			}
			return tx.Create(&models.ExternalMember{UserID: user.ID, FullName: name}).Error
		}
		return nil
	})
	if err != nil {
		utils.SendError(c, http.StatusConflict, "username or email already in use")
		return
	}

	utils.SendCreated(c, gin.H{"id": user.ID, "username": user.Username, "role": user.Role})
}

// Login verifies credentials and issues a 24h bearer token. NGO
// accounts get their profile id embedded so downstream handlers can
// authorize ownership without an extra lookup.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	var user models.User
	if err := ac.db.Where("email = ? AND active = ?", req.Email, true).First(&user).Error; err != nil {
		utils.SendError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.SendError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ngoID := 0
	if user.Role == models.RoleNGO {
		var ngo models.NGOProfile
		if err := ac.db.Where("user_id = ?", user.ID).First(&ngo).Error; err == nil {
			ngoID = ngo.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendError(c, http.StatusInternalServerError, "internal error")
			return
		}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"ngo_id":  ngoID,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ac.cfg.JWTSecret))
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "could not issue a token")
		return
	}

	ac.db.Model(&user).Update("last_access_at", now)

	utils.SendSuccess(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// Me returns the authenticated account.
func (ac *AuthController) Me(c *gin.Context) {
	var user models.User
	if err := ac.db.First(&user, c.GetInt("user_id")).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "account not found")
		return
	}
	utils.SendSuccess(c, user)
}
