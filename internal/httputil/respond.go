package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenlot/menu-order-service/internal/apperr"
)

var codeStatus = map[apperr.Code]int{
	apperr.CodeNotFound:          http.StatusNotFound,
	apperr.CodeStateConflict:     http.StatusConflict,
	apperr.CodeInsufficientStock: http.StatusUnprocessableEntity,
	apperr.CodeLockContention:    http.StatusConflict,
	apperr.CodeExpired:           http.StatusGone,
	apperr.CodeInvalidArgument:   http.StatusBadRequest,
	apperr.CodeUnavailable:       http.StatusServiceUnavailable,
	apperr.CodeInternal:          http.StatusInternalServerError,
}

// Error writes the JSON error envelope for err, mapping its apperr code to
// an HTTP status.
func Error(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}
