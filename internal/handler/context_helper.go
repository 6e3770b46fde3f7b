package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-portal/internal/middleware"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.CurrentSession(c)
}
