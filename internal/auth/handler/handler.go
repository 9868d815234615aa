package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/auth"
	"github.com/greenlot/menu-order-service/internal/httputil"
)

// AuthHandler fronts the upstream auth provider. Refreshes are deduplicated
// per user scope so a burst of tabs or retries produces one upstream call.
type AuthHandler struct {
	client  *auth.Client
	manager *auth.RefreshManager
	logger  *zap.Logger
}

func NewAuthHandler(client *auth.Client, manager *auth.RefreshManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		client:  client,
		manager: manager,
		logger:  log,
	}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/refresh", h.Refresh)
}

type refreshRequest struct {
	Scope        string `json:"scope" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	session, err := h.manager.Refresh(c.Request.Context(), req.Scope, func(ctx context.Context) (*auth.Session, error) {
		return h.client.RefreshToken(ctx, req.RefreshToken)
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
