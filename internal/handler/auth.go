package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/service"
)

// AuthHandler handles driver authentication.
type AuthHandler struct {
	driverService *service.DriverService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(driverService *service.DriverService) *AuthHandler {
	return &AuthHandler{driverService: driverService}
}

// LoginRequest is the HTTP request body for a driver login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the HTTP request body for a token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Signup handles POST /api/auth/driver/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req RegisterDriverRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.driverService.Signup(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, newTokenResponse(res.Tokens, res.Driver))
}

// Login handles POST /api/auth/driver/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.driverService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newTokenResponse(res.Tokens, res.Driver))
}

// Refresh handles POST /api/auth/driver/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	pair, err := h.driverService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newTokenResponse(pair, nil))
}

// Logout handles POST /api/auth/driver/logout. Tokens are stateless, so
// the client simply discards them.
func (h *AuthHandler) Logout(c *gin.Context) {
	respondJSON(c, http.StatusOK, MessageResponse{Message: "Logged out"})
}
