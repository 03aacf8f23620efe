package scan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Lifecycle(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("logistics_20240501_120000", 10, 35, 10, start)

	assert.Equal(t, StatusProcessing, p.Status)
	assert.Equal(t, ProgressChecking, p.Progress)

	done := start.Add(time.Minute)
	p.Complete(7, done)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, ProgressCompleted, p.Progress)
	assert.Equal(t, 7, p.SkuStatsCount)
	assert.Equal(t, done, *p.CompletedAt)

	failed := NewProgress("x", 1, 35, 1, start)
	failed.Fail(errors.New("boom"), done)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
}

func TestProgress_Clone(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("x", 1, 35, 1, at)
	p.Complete(1, at)

	c := p.Clone()
	c.Checked = 5
	*c.CompletedAt = at.Add(time.Hour)

	assert.Zero(t, p.Checked)
	assert.Equal(t, at, *p.CompletedAt)
}
