package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"unidos-api/models"
	"unidos-api/utils"
)

type CompanyController struct {
	db *gorm.DB
}

func NewCompanyController(db *gorm.DB) *CompanyController {
	return &CompanyController{db: db}
}

// List returns the companies available as sponsors.
func (cc *CompanyController) List(c *gin.Context) {
	var companies []models.Company
	query := cc.db.Order("name")
	if industry := c.Query("industry"); industry != "" {
		query = query.Where("industry = ?", industry)
	}
	if err := query.Find(&companies).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "could not list companies")
		return
	}
	utils.SendSuccess(c, companies)
}

// ListNGOs returns the registered NGO profiles.
func (cc *CompanyController) ListNGOs(c *gin.Context) {
	var ngos []models.NGOProfile
	if err := cc.db.Order("name").Find(&ngos).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "could not list NGOs")
		return
	}
	utils.SendSuccess(c, ngos)
}
