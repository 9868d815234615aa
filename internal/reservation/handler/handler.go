package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/internal/apperr"
	"github.com/greenlot/menu-order-service/internal/auth"
	"github.com/greenlot/menu-order-service/internal/httputil"
	"github.com/greenlot/menu-order-service/internal/reservation"
	"github.com/greenlot/menu-order-service/internal/reservation/dto"
)

type ReservationHandler struct {
	uc     reservation.UseCase
	logger *zap.Logger
}

func NewReservationHandler(uc reservation.UseCase, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/menus/:menu_id/reservations", h.Reserve)
	rg.GET("/reservations/:id", h.Get)
	rg.POST("/reservations/:id/confirm", h.Confirm)
	rg.POST("/reservations/:id/cancel", h.Cancel)
}

type reserveRequest struct {
	Items   []dto.ReserveLineInput `json:"items" binding:"required,min=1,dive"`
	TraceID string                 `json:"trace_id"`
}

func (h *ReservationHandler) Reserve(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	result, err := h.uc.Reserve(c.Request.Context(), &dto.ReserveInput{
		MerchantID: merchantID,
		MenuID:     c.Param("menu_id"),
		Lines:      req.Items,
		TraceID:    req.TraceID,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "reservation": result})
}

func (h *ReservationHandler) Get(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	res, err := h.uc.Get(c.Request.Context(), merchantID, c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type confirmRequest struct {
	TotalAmount  float64         `json:"total_amount" binding:"required,gt=0"`
	DeliveryInfo json.RawMessage `json:"delivery_info"`
	PaymentInfo  json.RawMessage `json:"payment_info"`
	TraceID      string          `json:"trace_id"`
}

func (h *ReservationHandler) Confirm(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err))
		return
	}

	result, err := h.uc.Confirm(c.Request.Context(), &dto.ConfirmInput{
		MerchantID:    merchantID,
		ReservationID: c.Param("id"),
		TotalAmount:   req.TotalAmount,
		DeliveryInfo:  req.DeliveryInfo,
		PaymentInfo:   req.PaymentInfo,
		TraceID:       req.TraceID,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": result.OrderID})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	merchantID := auth.GetMerchantID(c)
	if merchantID == "" {
		httputil.Error(c, apperr.New(apperr.CodeInvalidArgument, "missing merchant id"))
		return
	}

	var req cancelRequest
	// Body is optional for cancellation.
	_ = c.ShouldBindJSON(&req)

	if err := h.uc.Cancel(c.Request.Context(), merchantID, c.Param("id"), req.Reason); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
