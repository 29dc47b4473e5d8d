package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stepstunner/api/internal/middleware"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/security"
)

// IssueCSRFToken mints a single-use token bound to the caller's session.
func (h HandlerSet) IssueCSRFToken(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if h.cfg.Security.CSRFSecret == "" {
		c.JSON(http.StatusOK, gin.H{"csrfToken": "", "enabled": false})
		return
	}

	token := security.IssueCSRFToken(h.cfg.Security.CSRFSecret, claims.SessionID, uuid.NewString())
	c.JSON(http.StatusOK, gin.H{"csrfToken": token, "enabled": true})
}

type mfaSetupRequest struct {
	Method string `json:"method" binding:"required"`
}

func (h HandlerSet) SetupMFA(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req mfaSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.SetupMFA(c.Request.Context(), user.ID, models.MFAMethod(req.Method))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"method":      string(result.Method),
		"backupCodes": result.BackupCodes,
	}
	if result.Method == models.MFAMethodTOTP {
		resp["secret"] = result.Secret
		resp["uri"] = result.URI
		resp["qrImage"] = result.QRImage
	}

	c.JSON(http.StatusOK, resp)
}

type mfaVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h HandlerSet) VerifyMFA(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req mfaVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.VerifyMFA(c.Request.Context(), user.ID, req.Code); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mfa enabled"})
}

type mfaDisableRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) DisableMFA(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req mfaDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.DisableMFA(c.Request.Context(), user.ID, req.Password); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mfa disabled"})
}
