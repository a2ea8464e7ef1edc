package httpHandler

import (
	"errors"
	"net/http"

	"users-service/usecases"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	statusSuccess = "success"
	statusFail    = "fallo"
	estadoSuccess = "satisfactorio"

	msgPong           = "pong!"
	msgInvalidPayload = "Invalid payload."
	msgDuplicateEmail = "Sorry. That email already exists!"
	msgUserNotFound   = "El usuario no existe"
	msgInternalError  = "Internal error."
)

type UserHandler struct {
	useCase *usecases.UserUseCase
}

func NewUserHandler(useCase *usecases.UserUseCase) *UserHandler {
	return &UserHandler{
		useCase: useCase,
	}
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

// Ping handles GET /users/ping
func (h *UserHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"message": msgPong,
	})
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  statusFail,
			"message": msgInvalidPayload,
		})
		return
	}

	user, err := h.useCase.CreateUser(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, gin.H{"status": statusFail, "message": msgInvalidPayload})
		case errors.Is(err, usecases.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, gin.H{"status": statusFail, "message": msgDuplicateEmail})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  statusSuccess,
		"message": user.Email + " was added!",
	})
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.useCase.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecases.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"estado":  statusFail,
				"mensaje": msgUserNotFound,
			})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"estado": estadoSuccess,
		"data":   user.Summary(),
	})
}

// GetAllUsers handles GET /users
func (h *UserHandler) GetAllUsers(c *gin.Context) {
	users, err := h.useCase.ListUsers(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"estado": estadoSuccess,
		"data": gin.H{
			"users": users,
		},
	})
}

func (h *UserHandler) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  statusFail,
		"message": msgInternalError,
	})
}
