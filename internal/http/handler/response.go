package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every API endpoint answers with.
// On failure Result is null and Message says why.
type Response struct {
	Result  any    `json:"result"`
	Message string `json:"message"`
}

func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Message: message})
}

func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, "invalid endpoint")
}

func MethodNotAllowed(c *gin.Context) {
	Fail(c, http.StatusMethodNotAllowed, "method not allowed")
}
