package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		respondError(c, http.StatusBadRequest, "invalid_json", "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		msg := "invalid JSON payload: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		respondError(c, http.StatusBadRequest, "invalid_json", msg, nil)
		return false
	}
	return true
}
