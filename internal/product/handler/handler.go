package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/auth"
	"github.com/greenlot/menu-order-service/internal/httputil"
	"github.com/greenlot/menu-order-service/internal/product"
	"github.com/greenlot/menu-order-service/internal/product/dto"
)

type ProductHandler struct {
	uc     product.UseCase
	logger *zap.Logger
}

func NewProductHandler(uc product.UseCase, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/products", h.Create)
	rg.GET("/products", h.List)
	rg.GET("/products/:id", h.Get)
	rg.PUT("/products/:id", h.Update)
	rg.DELETE("/products/:id", h.Delete)
}

type productRequest struct {
	SKU           string  `json:"sku" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	StrainType    string  `json:"strain_type"`
	ThcPercent    float64 `json:"thc_percent"`
	PricePerPound float64 `json:"price_per_pound" binding:"required,gt=0"`
	ImageURL      string  `json:"image_url"`
	IsActive      bool    `json:"is_active"`
}

func (h *ProductHandler) Create(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	p, err := h.uc.CreateProduct(c.Request.Context(), &dto.CreateProductInput{
		MerchantID:    merchantID,
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		StrainType:    req.StrainType,
		ThcPercent:    req.ThcPercent,
		PricePerPound: req.PricePerPound,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) List(c *gin.Context) {
	filters := &dto.ProductFilters{
		MerchantID:  auth.GetMerchantID(c),
		StrainType:  c.Query("strain_type"),
		SearchQuery: c.Query("q"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
	}
	if v := c.Query("is_active"); v != "" {
		active := v == "true"
		filters.IsActive = &active
	}

	products, count, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products, "total": count})
}

func (h *ProductHandler) Update(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	p, err := h.uc.UpdateProduct(c.Request.Context(), &dto.UpdateProductInput{
		ID:            c.Param("id"),
		MerchantID:    merchantID,
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		StrainType:    req.StrainType,
		ThcPercent:    req.ThcPercent,
		PricePerPound: req.PricePerPound,
		ImageURL:      req.ImageURL,
		IsActive:      req.IsActive,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.uc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
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
