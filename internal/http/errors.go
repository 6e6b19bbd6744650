package http

import (
	"github.com/gin-gonic/gin"
)

// Codigos de error estables expuestos a los clientes.
const (
	CodeInternal           = -1
	CodeInvalidCredentials = 1001
	CodeUsernameTaken      = 1002
	CodeRateLimited        = 1003
)

const (
	msgInternal           = "internal error, please contact admin"
	msgInvalidRequest     = "invalid request body"
	msgEmptyCredentials   = "username and password cannot be empty"
	msgInvalidCredentials = "username or password is not valid"
	msgUsernameTaken      = "this username is already used, please pick another one."
	msgRateLimited        = "too many login attempts, please retry later"
)

// ErrorResponse es el cuerpo JSON de todos los errores de la API.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
