package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/tracing"
)

// User is the body accepted by CreateUser.
type User struct {
	Name string `json:"name" binding:"required"`
	Age  *int   `json:"age" binding:"required,min=0"`
}

// ListUsers returns the (empty) user listing inside a child span.
func (h *Handlers) ListUsers(c *gin.Context) {
	ctx, span := h.telemetry.StartChild(c.Request.Context(), "users.list")
	logger := tracing.LoggerFrom(c).With(zap.String("op", "users.list"))

	span.SetAttribute("users.count", 0)
	logger.Info("listing users", zap.Int("count", 0))
	h.telemetry.EndChild(span, ctx.Err())

	c.JSON(http.StatusOK, gin.H{"message": "Not much of users now"})
}

// CreateUser validates and echoes a user.
func (h *Handlers) CreateUser(c *gin.Context) {
	var user User
	if err := c.ShouldBindJSON(&user); err != nil {
		tracing.LoggerFrom(c).Warn("invalid user payload", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user payload", "details": err.Error()})
		return
	}

	tracing.LoggerFrom(c).Info("user accepted", zap.String("name", user.Name), zap.Int("age", *user.Age))
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}
