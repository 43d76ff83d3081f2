package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SendError writes a JSON error payload with the given status.
func SendError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// SendValidationError writes a 400 with field-level details.
func SendValidationError(c *gin.Context, details interface{}) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation failed",
		"details": details,
	})
}

// SendSuccess writes a 200 with the payload under "data".
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// SendCreated writes a 201 with the payload under "data".
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// SendPaginated writes a 200 with the payload and paging metadata.
func SendPaginated(c *gin.Context, data interface{}, page, pageSize int, count int) {
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"count":     count,
		},
	})
}
