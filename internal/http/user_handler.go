package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/service"
)

// UserHandler mantiene dependencias para registro y login.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register maneja POST /user/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		writeError(c, http.StatusBadRequest, CodeInvalidCredentials, msgInvalidRequest)
		return
	}

	err := h.userServ.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCredentials):
			writeError(c, http.StatusBadRequest, CodeInvalidCredentials, msgEmptyCredentials)
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(c, http.StatusConflict, CodeUsernameTaken, msgUsernameTaken)
		default:
			h.logger.Error("register failed", zap.String("username", req.Username), zap.Error(err))
			writeError(c, http.StatusInternalServerError, CodeInternal, msgInternal)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Login maneja POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		writeError(c, http.StatusBadRequest, CodeInvalidCredentials, msgInvalidRequest)
		return
	}

	token, err := h.userServ.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCredentials):
			writeError(c, http.StatusBadRequest, CodeInvalidCredentials, msgEmptyCredentials)
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(c, http.StatusUnauthorized, CodeInvalidCredentials, msgInvalidCredentials)
		case errors.Is(err, service.ErrRateLimited):
			writeError(c, http.StatusTooManyRequests, CodeRateLimited, msgRateLimited)
		default:
			h.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
			writeError(c, http.StatusInternalServerError, CodeInternal, msgInternal)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}
