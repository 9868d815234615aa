package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/auth"
	"github.com/greenlot/menu-order-service/internal/httputil"
	"github.com/greenlot/menu-order-service/internal/menu"
	"github.com/greenlot/menu-order-service/internal/menu/dto"
)

type MenuHandler struct {
	uc     menu.UseCase
	logger *zap.Logger
}

func NewMenuHandler(uc menu.UseCase, log *zap.Logger) *MenuHandler {
	return &MenuHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *MenuHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/menus", h.Create)
	rg.GET("/menus", h.List)
	rg.GET("/menus/:menu_id", h.Get)
	rg.PUT("/menus/:menu_id", h.Update)
	rg.DELETE("/menus/:menu_id", h.Delete)
}

type menuRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

func (h *MenuHandler) Create(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	m, err := h.uc.CreateMenu(c.Request.Context(), &dto.CreateMenuInput{
		MerchantID:  merchantID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MenuHandler) Get(c *gin.Context) {
	m, err := h.uc.GetMenu(c.Request.Context(), c.Param("menu_id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MenuHandler) List(c *gin.Context) {
	filters := &dto.MenuFilters{
		MerchantID: auth.GetMerchantID(c),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	if v := c.Query("is_active"); v != "" {
		active := v == "true"
		filters.IsActive = &active
	}

	menus, count, err := h.uc.ListMenus(c.Request.Context(), filters)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": menus, "total": count})
}

func (h *MenuHandler) Update(c *gin.Context) {
	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	m, err := h.uc.UpdateMenu(c.Request.Context(), &dto.UpdateMenuInput{
		ID:          c.Param("menu_id"),
		MerchantID:  auth.GetMerchantID(c),
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MenuHandler) Delete(c *gin.Context) {
	if err := h.uc.DeleteMenu(c.Request.Context(), c.Param("menu_id")); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
