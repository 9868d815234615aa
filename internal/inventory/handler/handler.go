package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/auth"
	"github.com/greenlot/menu-order-service/internal/httputil"
	"github.com/greenlot/menu-order-service/internal/inventory"
	"github.com/greenlot/menu-order-service/internal/inventory/dto"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger *zap.Logger
}

func NewInventoryHandler(uc inventory.UseCase, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/inventory/low-stock", h.ListLowStock)
	rg.GET("/inventory/movements", h.ListMovements)
	rg.GET("/inventory/:product_id", h.Get)
	rg.POST("/inventory/adjust", h.Adjust)
}

func (h *InventoryHandler) Get(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	item, err := h.uc.GetProductInventory(c.Request.Context(), merchantID, c.Param("product_id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	items, count, err := h.uc.ListLowStock(c.Request.Context(), merchantID, page, pageSize)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": count})
}

type adjustRequest struct {
	ProductID      string  `json:"product_id" binding:"required"`
	QuantityChange float64 `json:"quantity_change" binding:"required"`
	Reason         string  `json:"reason"`
	ReferenceID    string  `json:"reference_id"`
}

func (h *InventoryHandler) Adjust(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	item, err := h.uc.AdjustInventory(c.Request.Context(), &dto.AdjustInventoryInput{
		MerchantID:     merchantID,
		ProductID:      req.ProductID,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		ReferenceID:    req.ReferenceID,
		ReferenceType:  "manual_adjustment",
		UserID:         auth.GetUserID(c),
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)

	items, count, err := h.uc.ListMovements(c.Request.Context(), &dto.MovementFilters{
		MerchantID:   merchantID,
		ProductID:    c.Query("product_id"),
		MovementType: c.Query("movement_type"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": count})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
