package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/domain/shared/fault"
)

// respondError translates kinded application errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindValidation:
		status = http.StatusBadRequest
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindConflict:
		status = http.StatusConflict
	case fault.KindAuthorization:
		status = http.StatusForbidden
	case fault.KindUpstream:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
