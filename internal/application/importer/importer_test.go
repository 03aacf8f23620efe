package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"github.com/flowstart/douyin-web/internal/infrastructure/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func csvReader(t *testing.T, content string) sheet.Reader {
	t.Helper()
	r, err := sheet.NewCSVReader(strings.NewReader(content))
	require.NoError(t, err)
	return r
}

const ordersCSV = `子订单编号,订单状态,快递信息,支付完成时间,省,商家编码,选购商品,商品数量
A1,已发货,SF123-顺丰速运,2024-05-01 10:00:00,广东省,CUP-1（红）,杯子,2
A1,已发货,SF123-顺丰速运,2024-05-01 10:00:00,广东省,CUP-1,杯子,3
,待发货,-,,浙江省,CUP-2,盖子,1
A2,待发货,-,-,浙江省,,盖子,1
A3,待发货,-,,浙江省,CUP-2,盖子,abc
`

func TestImporter_ImportOrders(t *testing.T) {
	db := newTestDB(t)
	im := New(persistence.NewGormOrderStore(db), nil, WithBatchSize(2))
	ctx := context.Background()

	res, err := im.ImportOrders(ctx, csvReader(t, ordersCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counters.Total)
	assert.Equal(t, 2, res.Counters.Created)
	assert.Equal(t, 1, res.Counters.Updated)
	assert.Equal(t, 1, res.Counters.Skipped)
	assert.Equal(t, 1, res.Counters.Failed)
	assert.Equal(t, 1, res.Errors.Total())

	var orders []models.OrderModel
	require.NoError(t, db.Order("order_id").Find(&orders).Error)
	require.Len(t, orders, 2)
	assert.Equal(t, int(order.StatusShipped), orders[0].OrderStatus)
	assert.Equal(t, "SF123", orders[0].LogisticsCode)
	assert.Equal(t, "顺丰速运", orders[0].LogisticsCompany)
	require.NotNil(t, orders[0].PayTime)
	assert.Nil(t, orders[1].PayTime)

	var lines []models.OrderLineModel
	require.NoError(t, db.Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, "CUP-1", lines[0].SkuCode)
	assert.Equal(t, 3, lines[0].Quantity)

	t.Run("re-import is idempotent", func(t *testing.T) {
		again, err := im.ImportOrders(ctx, csvReader(t, ordersCSV))
		require.NoError(t, err)
		assert.Equal(t, 0, again.Counters.Created)
		assert.Equal(t, 3, again.Counters.Updated)

		var orderCount, lineCount int64
		require.NoError(t, db.Model(&models.OrderModel{}).Count(&orderCount).Error)
		require.NoError(t, db.Model(&models.OrderLineModel{}).Count(&lineCount).Error)
		assert.Equal(t, int64(2), orderCount)
		assert.Equal(t, int64(1), lineCount)
	})

	t.Run("lines are replaced", func(t *testing.T) {
		_, err := im.ImportOrders(ctx, csvReader(t, `子订单编号,订单状态,商家编码,商品数量
A1,已发货,LID-9,1
`))
		require.NoError(t, err)
		var got []models.OrderLineModel
		require.NoError(t, db.Where("order_id = ?", "A1").Find(&got).Error)
		require.Len(t, got, 1)
		assert.Equal(t, "LID-9", got[0].SkuCode)
	})
}

func TestImporter_ImportAfterSales(t *testing.T) {
	db := newTestDB(t)
	im := New(persistence.NewGormOrderStore(db), nil)
	ctx := context.Background()

	_, err := im.ImportOrders(ctx, csvReader(t, ordersCSV))
	require.NoError(t, err)

	res, err := im.ImportAfterSales(ctx, csvReader(t, `售后单号,订单号,商家编码,售后类型,售后状态,售后原因,售后申请时间
S1,A1,CUP-1,退货退款,待商家收货,商品破损/包装问题,2024-05-03 09:00:00
S2,A2,CUP-2,仅退款,退款成功,不想要了,-
S3,MISSING,CUP-2,退货退款,已关闭,其他,
nan,A1,CUP-1,退货退款,已关闭,其他,
`))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counters.Total)
	assert.Equal(t, 3, res.Counters.Created)
	assert.Equal(t, 1, res.Counters.Skipped)

	var a1, a2 models.OrderModel
	require.NoError(t, db.Where("order_id = ?", "A1").First(&a1).Error)
	require.NoError(t, db.Where("order_id = ?", "A2").First(&a2).Error)
	assert.True(t, a1.IsSigned)
	assert.False(t, a2.IsSigned)

	var sales []models.AfterSaleModel
	require.NoError(t, db.Order("aftersale_id").Find(&sales).Error)
	require.Len(t, sales, 3)
	assert.Equal(t, "广东省", sales[0].ProvinceName)
	assert.Equal(t, int(order.AfterSaleTypeReturnRefund), sales[0].AfterSaleType)
	assert.Equal(t, int(order.AfterSaleStatusAwaitingGoods), sales[0].AfterSaleStatus)
	assert.True(t, sales[0].IsQualityIssue)
	assert.Equal(t, int(order.AfterSaleTypeRefundOnly), sales[1].AfterSaleType)
	assert.Equal(t, int(order.AfterSaleStatusSucceeded), sales[1].AfterSaleStatus)
	assert.Equal(t, "", sales[2].ProvinceName)
	assert.Equal(t, "MISSING", sales[2].OrderID)

	var orderCount int64
	require.NoError(t, db.Model(&models.OrderModel{}).Count(&orderCount).Error)
	assert.Equal(t, int64(2), orderCount, "dangling after-sales must not create orders")
}

func TestClassify(t *testing.T) {
	c := classify([]string{"A", "A", "B"}, map[string]struct{}{})
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 2, c.Created)
	assert.Equal(t, 1, c.Updated)

	c = classify([]string{"A", "B"}, map[string]struct{}{"B": {}})
	assert.Equal(t, 1, c.Created)
	assert.Equal(t, 1, c.Updated)
}

// failingStore fails every batch after the first
type failingStore struct {
	batches int
}

func (s *failingStore) ExistingOrderIDs(context.Context, []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *failingStore) ExistingAfterSaleIDs(context.Context, []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *failingStore) WithinBatch(_ context.Context, fn func(w order.BatchWriter) error) error {
	s.batches++
	if s.batches > 1 {
		return errors.New("disk full")
	}
	return nil
}

func TestImporter_BatchFailureKeepsEarlierBatches(t *testing.T) {
	store := &failingStore{}
	im := New(store, nil, WithBatchSize(1))

	res, err := im.ImportOrders(context.Background(), csvReader(t, "子订单编号\nA1\nA2\nA3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order batch 2")
	assert.Equal(t, 1, res.Counters.Created)
	assert.Equal(t, 2, store.batches)
}

func TestParseExpressInfo(t *testing.T) {
	tests := []struct {
		in            string
		code, company string
	}{
		{"770291786060549-申通快递,商品名称-3788410999938351943,1;", "770291786060549", "申通快递"},
		{"SF1 - 顺丰速运", "SF1", "顺丰速运"},
		{"-", "", ""},
		{"", "", ""},
		{"nodash", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			code, company := ParseExpressInfo(tt.in)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.company, company)
		})
	}
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)

	got := ParseTime("2024-05-01 10:00:00", loc)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, loc), *got)

	got = ParseTime("2024/5/1 10:00", loc)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Hour())

	got = ParseTime("45413.5", loc)
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, 12, got.Hour())

	assert.Nil(t, ParseTime("-", loc))
	assert.Nil(t, ParseTime("", loc))
	assert.Nil(t, ParseTime("nan", loc))
	assert.Nil(t, ParseTime("yesterday", loc))
}
