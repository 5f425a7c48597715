package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Controller handles authentication HTTP endpoints.
type Controller struct {
	service *Service
}

// NewController creates a new authentication controller.
func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// RegisterRoutes registers the auth routes on the /api/auth group.
func (ac *Controller) RegisterRoutes(group *gin.RouterGroup, middleware *Middleware) {
	group.POST("/signup", ac.SignUp)
	group.POST("/login", ac.LogIn)
	group.POST("/request-password-reset", ac.RequestPasswordReset)
	group.POST("/reset-password", ac.ResetPassword)
	group.GET("/me", middleware.ResolveOwner(), middleware.RequireAccount(), ac.Me)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an account and returns its bearer token.
func (ac *Controller) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	token, err := ac.service.SignUp(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrEmailInvalid), errors.Is(err, ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
	default:
		c.JSON(http.StatusCreated, gin.H{"token": token})
	}
}

// LogIn verifies credentials and returns a bearer token.
func (ac *Controller) LogIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	token, err := ac.service.LogIn(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// RequestPasswordReset mails a reset token. The response is the same whether
// or not the account exists.
func (ac *Controller) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	if err := ac.service.RequestPasswordReset(req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process reset request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a reset email was sent"})
}

// ResetPassword consumes a reset token and sets a new password.
func (ac *Controller) ResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	token, err := ac.service.ResetPassword(req.Email, req.Token, req.NewPassword)
	switch {
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// Me returns the authenticated account.
func (ac *Controller) Me(c *gin.Context) {
	owner := OwnerFrom(c)
	c.JSON(http.StatusOK, gin.H{"email": owner.Email})
}
