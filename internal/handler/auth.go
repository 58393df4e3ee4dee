package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"family-finance/internal/middleware"
	"family-finance/internal/service"
	"family-finance/internal/util"
)

// SessionCookie describes how the session token is stored in the browser.
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	users  *service.UserService
	cookie SessionCookie
}

func NewAuthHandler(users *service.UserService, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{users: users, cookie: cookie}
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido: "+err.Error())
		return
	}
	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "usuário e senha são obrigatórios")
		return
	}
	user, token, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		util.Fail(c, err)
		return
	}
	h.setCookie(c, token, int(h.cookie.TTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	util.Message(c, "sessão encerrada")
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (h *AuthHandler) SecurityQuestion(c *gin.Context) {
	question, err := h.users.SecurityQuestion(c.Request.Context(), c.Query("username"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (h *AuthHandler) Recover(c *gin.Context) {
	var req service.RecoverInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "corpo inválido")
		return
	}
	if err := h.users.Recover(c.Request.Context(), req); err != nil {
		util.Fail(c, err)
		return
	}
	util.Message(c, "senha redefinida")
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
