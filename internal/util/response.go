// Package util holds the JSON envelope shared by handlers and middleware.
package util

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"family-finance/internal/service"
)

// Business codes carried in error bodies.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeServerErr    = 50001
)

// Error writes {code, message} with the given HTTP status.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// Message writes a success body with only a message.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{
		"code":    CodeOK,
		"message": msg,
	})
}

// BadRequest reports a malformed body or query.
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, CodeInvalidParam, msg)
}

// Fail translates a service error into a response and records it on c.
func Fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, CodeInvalidParam, verr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, CodeAuth, "credenciais inválidas")
	case errors.Is(err, service.ErrForbidden):
		Error(c, http.StatusForbidden, CodeForbidden, "acesso negado")
	case errors.Is(err, service.ErrNotFound):
		Error(c, http.StatusNotFound, CodeNotFound, "não encontrado")
	case errors.Is(err, service.ErrConflict):
		Error(c, http.StatusConflict, CodeConflict, err.Error())
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeServerErr, "erro interno")
	}
}
