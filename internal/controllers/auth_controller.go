package controllers

import (
    "net/http"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/accounts"
    "github.com/zaqqye/placement_backend/internal/middleware"
)

type AuthController struct {
    Accounts *accounts.Service
    Log      log.FieldLogger
}

type loginRequest struct {
    Email    string `json:"email" binding:"required,email"`
    Password string `json:"password" binding:"required"`
}

func (a *AuthController) Login(c *gin.Context) {
    var req loginRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    sess, err := a.Accounts.Login(c.Request.Context(), req.Email, req.Password)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, sess)
}

func (a *AuthController) Me(c *gin.Context) {
    user, ok := middleware.CurrentUser(c)
    if !ok {
        c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "id":         user.ID,
        "email":      user.Email,
        "full_name":  user.FullName,
        "role":       user.Role,
        "college_id": user.CollegeID,
        "department": user.Department,
        "active":     user.Active,
        "approved":   user.Approved,
        "created_at": user.CreatedAt,
        "updated_at": user.UpdatedAt,
    })
}

// Logout is stateless: the client discards its token.
func (a *AuthController) Logout(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
