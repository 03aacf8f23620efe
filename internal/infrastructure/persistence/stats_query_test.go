package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedStatsFixture loads orders paid inside and outside a 90 day window
func seedStatsFixture(t *testing.T, db *gorm.DB) skustats.Window {
	t.Helper()
	now := time.Now().UTC()
	day := 24 * time.Hour

	orders := []*models.OrderModel{
		{OrderID: "O1", OrderStatus: int(order.StatusShipped), IsSigned: true, ProvinceName: "广东省", PayTime: ptrTime(now.Add(-1 * day))},
		{OrderID: "O2", OrderStatus: int(order.StatusPendingShip), ProvinceName: "广东省", PayTime: ptrTime(now.Add(-2 * day))},
		{OrderID: "O3", OrderStatus: int(order.StatusShipped), ProvinceName: "浙江省", PayTime: ptrTime(now.Add(-3 * day))},
		{OrderID: "O4", OrderStatus: int(order.StatusPendingShip), ProvinceName: "广东省", PayTime: ptrTime(now.Add(-200 * day))},
		{OrderID: "O5", OrderStatus: int(order.StatusShipped), IsSigned: true, ProvinceName: "广东省", PayTime: ptrTime(now.Add(-1 * day))},
	}
	require.NoError(t, db.Create(&orders).Error)

	lines := []*models.OrderLineModel{
		{OrderID: "O1", SkuCode: "X1", SkuName: "杯子", ProductName: "保温杯", Quantity: 1},
		{OrderID: "O2", SkuCode: "X1", SkuName: "杯子", Quantity: 1},
		{OrderID: "O3", SkuCode: "X1", Quantity: 2},
		{OrderID: "O4", SkuCode: "X1", Quantity: 1},
		{OrderID: "O5", SkuCode: "X2", SkuName: "盖子", Quantity: 1},
	}
	require.NoError(t, db.Create(&lines).Error)

	sales := []*models.AfterSaleModel{
		{AfterSaleID: "S1", OrderID: "O1", SkuCode: "X1", AfterSaleType: int(order.AfterSaleTypeReturnRefund),
			AfterSaleStatus: int(order.AfterSaleStatusSucceeded), ReasonText: "商品破损/包装问题", ProvinceName: "广东省"},
		{AfterSaleID: "S2", OrderID: "O5", SkuCode: "X1", AfterSaleType: int(order.AfterSaleTypeReturnRefund),
			AfterSaleStatus: int(order.AfterSaleStatusAwaitingGoods), ReasonText: "不想要了", ProvinceName: "广东省"},
	}
	require.NoError(t, db.Create(&sales).Error)

	return skustats.Window{Start: now.Add(-90 * day)}
}

func TestGormStatsQuery_OrderCounts(t *testing.T) {
	db := newSQLiteDB(t)
	w := seedStatsFixture(t, db)
	q := NewGormStatsQuery(db)

	rows, err := q.OrderCounts(context.Background(), w)
	require.NoError(t, err)

	byCode := map[string]skustats.OrderCounts{}
	for _, r := range rows {
		byCode[r.SkuCode] = r
	}
	require.Contains(t, byCode, "X1")
	x1 := byCode["X1"]
	assert.Equal(t, int64(1), x1.PendingShip)
	assert.Equal(t, int64(1), x1.SignedViaLines)
	assert.Equal(t, int64(1), x1.InTransit)
	assert.Equal(t, "杯子", x1.SkuName)
	assert.Equal(t, "保温杯", x1.ProductName)

	x2 := byCode["X2"]
	assert.Equal(t, int64(1), x2.SignedViaLines)
	assert.Equal(t, int64(0), x2.PendingShip)
}

func TestGormStatsQuery_AfterSaleAggregates(t *testing.T) {
	db := newSQLiteDB(t)
	w := seedStatsFixture(t, db)
	q := NewGormStatsQuery(db)
	ctx := context.Background()

	pending, err := q.AfterSalePending(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending["X1"])

	returns, err := q.SignedReturns(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int64(2), returns["X1"])

	viaSales, err := q.SignedViaAfterSales(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int64(2), viaSales["X1"])

	overlap, err := q.SignedOverlap(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overlap["X1"])

	assert.Equal(t, int64(2), skustats.SignedUnion(1, viaSales["X1"], overlap["X1"]))

	candidates, err := q.QualityCandidates(ctx, w)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	quality := 0
	for _, c := range candidates {
		if skustats.IsQualityReturnReason(c.ReasonText) {
			quality++
			assert.Equal(t, "O1", c.OrderID)
		}
	}
	assert.Equal(t, 1, quality)
}

func TestGormStatsQuery_WindowEnd(t *testing.T) {
	db := newSQLiteDB(t)
	w := seedStatsFixture(t, db)
	q := NewGormStatsQuery(db)

	end := time.Now().UTC().Add(-36 * time.Hour)
	w.End = &end
	rows, err := q.OrderCounts(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "X1", rows[0].SkuCode)
	assert.Equal(t, int64(0), rows[0].SignedViaLines)
	assert.Equal(t, int64(1), rows[0].PendingShip)
}

func TestGormStatsQuery_ProvinceReturns(t *testing.T) {
	db := newSQLiteDB(t)
	w := seedStatsFixture(t, db)
	q := NewGormStatsQuery(db)

	rows, err := q.ProvinceReturns(context.Background(), w, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "广东省", rows[0].ProvinceName)
	assert.Equal(t, int64(3), rows[0].OrderCount)
	assert.Equal(t, int64(2), rows[0].ReturnCount)
	assert.Equal(t, 0.6667, rows[0].ReturnRate)
	assert.Equal(t, "浙江省", rows[1].ProvinceName)
	assert.Equal(t, 0.0, rows[1].ReturnRate)

	filtered, err := q.ProvinceReturns(context.Background(), w, "X2")
	require.NoError(t, err)
	for _, r := range filtered {
		assert.Equal(t, int64(0), r.ReturnCount)
	}
}

func TestGormStatsQuery_Summary(t *testing.T) {
	db := newSQLiteDB(t)
	seedStatsFixture(t, db)
	q := NewGormStatsQuery(db)

	empty, err := q.Summary(context.Background())
	require.NoError(t, err)
	assert.Nil(t, empty.LastCalculatedAt)
	assert.Equal(t, int64(0), empty.TotalStockGap)

	at := time.Now()
	require.NoError(t, NewGormSkuStatsRepository(db).SaveAll(context.Background(), []*skustats.SkuStats{
		{SkuCode: "X1", StockGap: 5, LastCalculatedAt: &at},
		{SkuCode: "X2", StockGap: -2, LastCalculatedAt: &at},
	}))

	sum, err := q.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum.TotalOrders)
	assert.Equal(t, int64(2), sum.PendingShipOrders)
	assert.Equal(t, int64(1), sum.AfterSalePendingCount)
	assert.Equal(t, int64(2), sum.SignedOrders)
	assert.Equal(t, int64(3), sum.TotalStockGap)
	assert.NotNil(t, sum.LastImportTime)
	assert.NotNil(t, sum.LastCalculatedAt)
}
