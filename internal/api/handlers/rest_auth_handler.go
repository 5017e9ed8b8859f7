package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lastseat/server/internal/auth"
	"lastseat/server/internal/config"
	"lastseat/server/internal/services"
)

// RestAuthHandler handles back-office session issuance.
type RestAuthHandler struct {
	adminService services.IAdminService
	cfg          *config.Config
}

// NewRestAuthHandler creates a new RestAuthHandler.
func NewRestAuthHandler(adminService services.IAdminService, cfg *config.Config) *RestAuthHandler {
	return &RestAuthHandler{adminService: adminService, cfg: cfg}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login handles POST /v1/auth/login
func (h *RestAuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	admin, err := h.adminService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	token, err := auth.GenerateJWT(admin.ID, admin.Email, admin.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token: token,
		Email: admin.Email,
		Name:  admin.Name,
		Role:  string(admin.Role),
	})
}
