package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/middleware"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

type AuthHandler struct {
	svc   *service.AuthService
	audit *service.Auditor
}

func NewAuthHandler(svc *service.AuthService, audit *service.Auditor) *AuthHandler {
	return &AuthHandler{svc: svc, audit: audit}
}

type LoginRequest struct {
	Username string `json:"username"` // username or email
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", "invalid JSON body")
		return
	}
	ctx := requestContext(c)
	u, tokens, err := h.svc.Register(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(ctx, u.ID, "register", "user", uintString(u.ID), nil)
	c.JSON(http.StatusCreated, gin.H{"user": u, "access": tokens.Access, "refresh": tokens.Refresh})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", "invalid JSON body")
		return
	}
	login := req.Username
	if login == "" {
		login = req.Email
	}
	ctx := requestContext(c)
	u, tokens, err := h.svc.Login(ctx, login, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(ctx, u.ID, "login", "user", uintString(u.ID), nil)
	c.JSON(http.StatusOK, gin.H{"user": u, "access": tokens.Access, "refresh": tokens.Refresh})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		badRequest(c, "refresh", "This field is required.")
		return
	}
	tokens, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// Logout blacklists the submitted refresh token and answers 205.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh", "This field is required.")
		return
	}
	ctx := requestContext(c)
	userID := middleware.GetUserID(c)
	if err := h.svc.Logout(ctx, userID, req.Refresh); err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(ctx, userID, "logout", "user", uintString(userID), nil)
	c.Status(http.StatusResetContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
