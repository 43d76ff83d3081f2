package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unidos-api/services"
	"unidos-api/utils"
)

// actorFrom rebuilds the acting identity from the auth middleware claims.
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: c.GetInt("user_id"),
		Role:   c.GetString("role"),
		NGOID:  c.GetInt("ngo_id"),
	}
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.SendError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// respondServiceError maps a service failure to an HTTP response.
func respondServiceError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		utils.SendError(c, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case services.KindValidationFailed, services.KindTooManyImages, services.KindNotAnNgo:
		status = http.StatusBadRequest
	case services.KindNotFound, services.KindNotRegistered:
		status = http.StatusNotFound
	case services.KindUnauthorized:
		status = http.StatusForbidden
	case services.KindInvalidTransition,
		services.KindPreconditionFailed,
		services.KindAlreadyRegistered,
		services.KindCapacityExceeded,
		services.KindEnrollmentClosed,
		services.KindEnrollmentDeadline,
		services.KindAlreadyOrganizer,
		services.KindAlreadySponsor,
		services.KindHasDependents:
		status = http.StatusConflict
	case services.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
	case services.KindDualWriteFailure:
		status = http.StatusInternalServerError
	}

	if se.Kind == services.KindInvalidTransition && len(se.Allowed) > 0 {
		c.JSON(status, gin.H{"error": se.Message, "allowed": se.Allowed})
		return
	}
	utils.SendError(c, status, se.Message)
}
