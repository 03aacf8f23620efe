package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/infrastructure/sheet"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Order export columns
const (
	ColOrderID       = "子订单编号"
	ColOrderStatus   = "订单状态"
	ColExpress       = "快递信息"
	ColSubmitTime    = "订单提交时间"
	ColPayTime       = "支付完成时间"
	ColFinishTime    = "订单完成时间"
	ColReceiver      = "收件人"
	ColProvince      = "省"
	ColCity          = "市"
	ColMerchantCode  = "商家编码"
	ColProduct       = "选购商品"
	ColQuantity      = "商品数量"
	ColOrderAmount   = "订单应付金额"
	ColProductAmount = "商品金额"
)

// After-sale export columns
const (
	ColAfterSaleID     = "售后单号"
	ColRefOrderID      = "订单号"
	ColAfterSaleType   = "售后类型"
	ColAfterSaleStatus = "售后状态"
	ColReason          = "售后原因"
	ColReasonTag       = "售后原因标签"
	ColApplyTime       = "售后申请时间"
	ColAfterSaleFinish = "售后完结时间"
	ColRefundAmount    = "退款金额"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02",
	"2006/1/2",
	time.RFC3339,
}

// cell returns a trimmed value, treating the "nan" placeholder as empty
func cell(row *sheet.Row, col string) string {
	v := strings.TrimSpace(row.Get(col))
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// ParseTime parses an export timestamp in loc. Empty and "-" mean no value;
// Excel serial numbers are accepted.
func ParseTime(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" || strings.EqualFold(value, "nan") {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
			return &local
		}
	}
	return nil
}

// ParseExpressInfo extracts tracking code and carrier from the 快递信息 column,
// e.g. "770291786060549-申通快递,商品名称-3788410999938351943,1;".
func ParseExpressInfo(value string) (trackingCode, company string) {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		return "", ""
	}
	first, _, _ := strings.Cut(value, ",")
	parts := strings.Split(first, "-")
	if len(parts) < 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func parseQuantity(value string) (int, bool) {
	if value == "" {
		return 1, true
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	n := int(d.IntPart())
	if n == 0 {
		n = 1
	}
	return n, true
}

func parseAmount(value string) decimal.Decimal {
	value = strings.TrimPrefix(strings.TrimPrefix(value, "¥"), "￥")
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// OrderFromRow maps one order export row. ok is false when the row has no order id.
func OrderFromRow(row *sheet.Row, loc *time.Location) (o *order.Order, line *order.Line, ok bool, rowErr *sheet.RowError) {
	orderID := cell(row, ColOrderID)
	if orderID == "" {
		return nil, nil, false, nil
	}

	statusText := cell(row, ColOrderStatus)
	code, company := ParseExpressInfo(cell(row, ColExpress))
	o = &order.Order{
		OrderID:          orderID,
		Status:           order.ParseStatusText(statusText),
		StatusDesc:       statusText,
		CreateTime:       ParseTime(cell(row, ColSubmitTime), loc),
		PayTime:          ParseTime(cell(row, ColPayTime), loc),
		UpdateTime:       ParseTime(cell(row, ColFinishTime), loc),
		ReceiverName:     cell(row, ColReceiver),
		ProvinceName:     cell(row, ColProvince),
		CityName:         cell(row, ColCity),
		LogisticsCode:    code,
		LogisticsCompany: company,
		TotalAmount:      parseAmount(cell(row, ColOrderAmount)),
		PayAmount:        parseAmount(cell(row, ColOrderAmount)),
	}

	raw := strings.TrimSpace(strings.ReplaceAll(cell(row, ColMerchantCode), "\t", ""))
	skuCode := order.NormalizeSkuCode(raw)
	if skuCode == "" {
		return o, nil, true, nil
	}

	qtyText := cell(row, ColQuantity)
	qty, valid := parseQuantity(qtyText)
	if !valid {
		return nil, nil, true, &sheet.RowError{
			Row:     row.LineNumber,
			Column:  ColQuantity,
			Message: "invalid quantity",
			Value:   qtyText,
		}
	}
	product := cell(row, ColProduct)
	line = &order.Line{
		OrderID:     orderID,
		SkuID:       skuCode,
		SkuCode:     skuCode,
		SkuCodeRaw:  raw,
		SkuName:     product,
		ProductName: product,
		Quantity:    qty,
		Price:       parseAmount(cell(row, ColProductAmount)),
	}
	return o, line, true, nil
}

// AfterSaleFromRow maps one after-sale export row. ok is false when the row has no after-sale id.
func AfterSaleFromRow(row *sheet.Row, loc *time.Location) (a *order.AfterSale, ok bool) {
	id := cell(row, ColAfterSaleID)
	if id == "" {
		return nil, false
	}

	raw := strings.TrimSpace(strings.ReplaceAll(cell(row, ColMerchantCode), "\t", ""))
	skuCode := order.NormalizeSkuCode(raw)
	if skuCode == "" {
		raw = ""
	}
	statusText := cell(row, ColAfterSaleStatus)
	reason := cell(row, ColReason)

	return &order.AfterSale{
		AfterSaleID:    id,
		OrderID:        cell(row, ColRefOrderID),
		SkuID:          skuCode,
		SkuCode:        skuCode,
		SkuCodeRaw:     raw,
		Type:           order.ParseAfterSaleTypeText(cell(row, ColAfterSaleType)),
		Status:         order.ParseAfterSaleStatusText(statusText),
		StatusDesc:     statusText,
		ReasonText:     reason,
		ReasonCode:     cell(row, ColReasonTag),
		IsQualityIssue: order.IsQualityReason(reason),
		RefundAmount:   parseAmount(cell(row, ColRefundAmount)),
		ApplyTime:      ParseTime(cell(row, ColApplyTime), loc),
		FinishTime:     ParseTime(cell(row, ColAfterSaleFinish), loc),
	}, true
}
