package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/auth"
	"github.com/greenlot/menu-order-service/internal/httputil"
	"github.com/greenlot/menu-order-service/internal/order"
)

type OrderHandler struct {
	repo   order.Repository
	logger *zap.Logger
}

func NewOrderHandler(repo order.Repository, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders", h.List)
	rg.GET("/orders/:id", h.Get)
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) List(c *gin.Context) {
	page := 1
	pageSize := 20
	if v := c.Query("page"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			page = i
		}
	}
	if v := c.Query("page_size"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			pageSize = i
		}
	}

	orders, count, err := h.repo.FindByMerchant(c.Request.Context(), auth.GetMerchantID(c), page, pageSize)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orders, "total": count})
}
