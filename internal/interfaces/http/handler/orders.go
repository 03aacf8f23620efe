package handler

import (
	"errors"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// OrderHandler serves the order browsing endpoints
type OrderHandler struct {
	BaseHandler
	orders order.QueryRepository
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(orders order.QueryRepository) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /orders. Orders come newest first.
func (h *OrderHandler) List(c *gin.Context) {
	var q OrderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	start, end, err := parseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if end != nil {
		eod := dto.EndOfDay(*end)
		end = &eod
	}
	page := dto.PageRequest{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()

	filter := order.ListFilter{
		ProvinceName: q.ProvinceName,
		PaidFrom:     start,
		PaidTo:       end,
		Page:         page.Page,
		PageSize:     page.PageSize,
	}
	if q.OrderStatus != nil {
		st := order.Status(*q.OrderStatus)
		filter.Status = &st
	}

	orders, total, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]OrderResponse, len(orders))
	for i, o := range orders {
		items[i] = toOrderResponse(o, nil)
	}
	h.SuccessWithMeta(c, gin.H{"total": total, "items": items}, total, page.Page, page.PageSize)
}

// Get handles GET /orders/:order_id
func (h *OrderHandler) Get(c *gin.Context) {
	o, lines, err := h.orders.FindByOrderID(c.Request.Context(), c.Param("order_id"))
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, "订单不存在")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o, lines))
}
