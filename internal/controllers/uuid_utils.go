package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zaqqye/placement_backend/internal/apperr"
)

// pathID reads a uuid path parameter. A malformed id can never exist, so
// it reads as 404 like any other miss.
func pathID(c *gin.Context, name string) (string, bool) {
	raw := strings.TrimSpace(c.Param(name))
	val, err := uuid.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": name + " not found", "code": apperr.KindNotFound})
		return "", false
	}
	return val.String(), true
}
