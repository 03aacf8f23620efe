package handler

import (
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
)

// OrderResponse represents an order in API responses
type OrderResponse struct {
	OrderID             string         `json:"order_id"`
	OrderStatus         int            `json:"order_status"`
	OrderStatusDesc     string         `json:"order_status_desc"`
	CreateTime          *time.Time     `json:"create_time"`
	PayTime             *time.Time     `json:"pay_time"`
	UpdateTime          *time.Time     `json:"update_time"`
	ReceiverName        string         `json:"receiver_name"`
	ProvinceID          string         `json:"province_id"`
	ProvinceName        string         `json:"province_name"`
	CityName            string         `json:"city_name"`
	LogisticsCode       string         `json:"logistics_code"`
	LogisticsCompany    string         `json:"logistics_company"`
	LogisticsStatus     *int           `json:"logistics_status"`
	LogisticsStatusDesc string         `json:"logistics_status_desc"`
	IsSigned            bool           `json:"is_signed"`
	SignTime            *time.Time     `json:"sign_time"`
	LogisticsChecked    bool           `json:"logistics_checked"`
	TotalAmount         string         `json:"total_amount"`
	PayAmount           string         `json:"pay_amount"`
	SkuList             []LineResponse `json:"sku_list,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// LineResponse represents one SKU line of an order
type LineResponse struct {
	SkuID       string `json:"sku_id"`
	SkuCode     string `json:"sku_code"`
	SkuName     string `json:"sku_name"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

// OrderListQuery holds the order list filters
type OrderListQuery struct {
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderStatus  *int   `form:"order_status" binding:"omitempty,min=0,max=5"`
	ProvinceName string `form:"province_name"`
	StartDate    string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate      string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

func toOrderResponse(o *order.Order, lines []*order.Line) OrderResponse {
	resp := OrderResponse{
		OrderID:             o.OrderID,
		OrderStatus:         int(o.Status),
		OrderStatusDesc:     o.StatusDesc,
		CreateTime:          o.CreateTime,
		PayTime:             o.PayTime,
		UpdateTime:          o.UpdateTime,
		ReceiverName:        o.ReceiverName,
		ProvinceID:          o.ProvinceID,
		ProvinceName:        o.ProvinceName,
		CityName:            o.CityName,
		LogisticsCode:       o.LogisticsCode,
		LogisticsCompany:    o.LogisticsCompany,
		LogisticsStatus:     o.LogisticsStatus,
		LogisticsStatusDesc: o.LogisticsStatusDesc,
		IsSigned:            o.IsSigned,
		SignTime:            o.SignTime,
		LogisticsChecked:    o.LogisticsChecked,
		TotalAmount:         o.TotalAmount.StringFixed(2),
		PayAmount:           o.PayAmount.StringFixed(2),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	for _, l := range lines {
		resp.SkuList = append(resp.SkuList, LineResponse{
			SkuID:       l.SkuID,
			SkuCode:     l.SkuCode,
			SkuName:     l.SkuName,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       l.Price.StringFixed(2),
		})
	}
	return resp
}
