package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/middleware"
	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/services"
)

// LoginInput request body for login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordInput
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordInput
type ResetPasswordInput struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type AuthHandler struct {
	Auth   *services.AuthService
	Logger *zap.Logger
}

// Register handler: creates a new user
func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.Auth.Register(ctx, input)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
		"message": "User created successfully",
	})
}

// Login handler: authenticates and returns JWT
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, err := h.Auth.Login(ctx, input.Email, input.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// ownsAccount rejects a well-formed id that is not the caller's own. A
// malformed id falls through so the service reports it as a bad request.
func ownsAccount(c *gin.Context, id string) bool {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return true
	}
	caller := middleware.CurrentUser(c)
	if caller == nil || caller.ID.Hex() != id {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return false
	}
	return true
}

// UpdateUser handler: partial profile update of the caller's own account
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	id := c.Param("id")
	if !ownsAccount(c, id) {
		return
	}

	var input models.UserUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.Auth.UpdateProfile(ctx, id, input)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
		"message": "User updated successfully",
	})
}

// DeleteUser handler: removes the caller's account and its strategies
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if !ownsAccount(c, id) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.DeleteUser(ctx, id); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// ForgotPassword: store a reset token and mail the reset link
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var input ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "A valid email is required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, input.Email); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset link sent to your email"})
}

// ResetPassword: redeem the token and set the new password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Token and new password are required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.RedeemPasswordReset(ctx, input.Token, input.NewPassword); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset successfully"})
}
