package handlers

import (
	"context"
	"net/http"
	"time"

	"users-service/db"
	"users-service/usecases"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	database db.Database
	useCase  *usecases.UserUseCase
}

func NewHealthHandler(database db.Database, useCase *usecases.UserUseCase) *HealthHandler {
	return &HealthHandler{
		database: database,
		useCase:  useCase,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.database.Ping(ctx); err != nil {
		logrus.WithError(err).Error("health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "OK",
		"cache":  h.useCase.CacheStats(),
	})
}
