package public

import (
	"errors"

	"github.com/campusbooks/storefront/internal/auth"
	"github.com/campusbooks/storefront/internal/http/handlers/shared"
	"github.com/campusbooks/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SessionTokenRequest 登录后保存令牌
type SessionTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// SessionResponse 会话摘要
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
}

// GetSession 当前会话
func (h *Handler) GetSession(c *gin.Context) {
	response.Success(c, h.sessionSummary())
}

// SetSessionToken 保存后端签发的令牌
func (h *Handler) SetSessionToken(c *gin.Context) {
	var req SessionTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}
	if err := h.Session.SetToken(c.Request.Context(), req.Token); err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenMalformed):
			response.BadRequest(c, "token is malformed")
		case errors.Is(err, auth.ErrTokenExpired):
			response.Unauthorized(c, "token has expired")
		default:
			shared.RespondError(c, response.CodeInternal, "save session failed", err)
		}
		return
	}
	response.Success(c, h.sessionSummary())
}

// ClearSessionToken 登出
func (h *Handler) ClearSessionToken(c *gin.Context) {
	if err := h.Session.Clear(c.Request.Context()); err != nil {
		shared.RespondError(c, response.CodeInternal, "clear session failed", err)
		return
	}
	response.Success(c, h.sessionSummary())
}

func (h *Handler) sessionSummary() SessionResponse {
	claims, ok := h.Session.Claims()
	if !ok || !h.Session.IsAuthenticated() {
		return SessionResponse{}
	}
	return SessionResponse{
		Authenticated: true,
		UserID:        claims.UserID,
		Email:         claims.Email,
		Role:          claims.Role,
	}
}
