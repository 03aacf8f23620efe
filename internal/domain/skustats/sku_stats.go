package skustats

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Policy holds the parameters of the return-rate estimate
type Policy struct {
	MinSample         int64
	DefaultReturnRate float64
}

// DefaultPolicy returns the standard policy: at least 10 signed orders, 30% fallback
func DefaultPolicy() Policy {
	return Policy{MinSample: 10, DefaultReturnRate: 0.3}
}

// ReturnRate returns returned/signed when the sample is large enough, otherwise the default rate
func (p Policy) ReturnRate(signed, returned int64) float64 {
	if signed >= p.MinSample && signed > 0 {
		return Round4(float64(returned) / float64(signed))
	}
	return p.DefaultReturnRate
}

// QualityRate returns quality/signed, or 0 without signed orders
func QualityRate(signed, quality int64) float64 {
	if signed <= 0 {
		return 0
	}
	return Round4(float64(quality) / float64(signed))
}

// ReturnEstimate is the number of in-transit orders expected to come back
func ReturnEstimate(inTransit int64, rate float64) int64 {
	return int64(math.Floor(float64(inTransit) * rate))
}

// StockGap is pending shipments minus what after-sales and in-transit returns will bring back.
// A negative gap signals oversupply.
func StockGap(pendingShip, afterSalePending, returnEstimate int64) int64 {
	return pendingShip - afterSalePending - returnEstimate
}

// SignedUnion counts orders in A ∪ B given |A|, |B| and |A ∩ B|
func SignedUnion(fromLines, fromAfterSales, overlap int64) int64 {
	n := fromLines + fromAfterSales - overlap
	if n < 0 {
		return 0
	}
	return n
}

// Round4 rounds a rate to four decimal places
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

var qualityReasons = []string{
	"商品破损/包装问题",
	"商品与描述不符",
	"商品质量不好",
	"少件/漏发",
}

// IsQualityReturnReason matches a reason text against the canonical quality reasons.
// Full-width characters are folded and spaces ignored, so "少件／漏发" and
// "少件 / 漏发" both match.
func IsQualityReturnReason(reason string) bool {
	if reason == "" {
		return false
	}
	folded := strings.ReplaceAll(width.Narrow.String(reason), " ", "")
	for _, q := range qualityReasons {
		if strings.Contains(folded, q) {
			return true
		}
	}
	return false
}

// SkuStats is the per-SKU statistics snapshot. Each recalculation overwrites
// the counters in place; ReturnRate survives when IsRateManual is set.
type SkuStats struct {
	ID                      int64
	SkuID                   string
	SkuCode                 string
	SkuName                 string
	ProductName             string
	PendingShipCount        int64
	AfterSalePendingCount   int64
	SignedCount             int64
	SignedReturnCount       int64
	EstimatedReturnRate     float64
	InTransitCount          int64
	InTransitReturnEstimate int64
	StockGap                int64
	QualityReturnCount      int64
	QualityReturnRate       float64
	IsRateManual            bool
	ImageURL                string
	LastCalculatedAt        *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Recompute derives the estimate and the stock gap from the current rate
func (s *SkuStats) Recompute() {
	s.InTransitReturnEstimate = ReturnEstimate(s.InTransitCount, s.EstimatedReturnRate)
	s.StockGap = StockGap(s.PendingShipCount, s.AfterSalePendingCount, s.InTransitReturnEstimate)
}

// SetManualRate overrides the return rate and recomputes dependent fields
func (s *SkuStats) SetManualRate(rate float64, at time.Time) {
	s.EstimatedReturnRate = rate
	s.IsRateManual = true
	s.Recompute()
	s.UpdatedAt = at
}

// Stamp marks a freshly calculated snapshot as produced at at
func (s *SkuStats) Stamp(at time.Time) {
	s.LastCalculatedAt = &at
	s.UpdatedAt = at
	if s.CreatedAt.IsZero() {
		s.CreatedAt = at
	}
}

// Merge copies a freshly calculated snapshot onto s. A manual rate on s is kept.
func (s *SkuStats) Merge(fresh *SkuStats, at time.Time) {
	manual := s.IsRateManual
	rate := s.EstimatedReturnRate

	s.SkuID = fresh.SkuID
	s.SkuCode = fresh.SkuCode
	if fresh.SkuName != "" {
		s.SkuName = fresh.SkuName
	}
	if fresh.ProductName != "" {
		s.ProductName = fresh.ProductName
	}
	s.PendingShipCount = fresh.PendingShipCount
	s.AfterSalePendingCount = fresh.AfterSalePendingCount
	s.SignedCount = fresh.SignedCount
	s.SignedReturnCount = fresh.SignedReturnCount
	s.InTransitCount = fresh.InTransitCount
	s.QualityReturnCount = fresh.QualityReturnCount
	s.QualityReturnRate = fresh.QualityReturnRate
	s.EstimatedReturnRate = fresh.EstimatedReturnRate
	if manual {
		s.EstimatedReturnRate = rate
	}
	s.Recompute()
	s.LastCalculatedAt = &at
	s.UpdatedAt = at
}
