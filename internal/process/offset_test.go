package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOffsetApply(t *testing.T) {
	anchor := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset *TimeOffset
		want   time.Time
	}{
		{
			name:   "两小时前",
			offset: &TimeOffset{Value: 2, Unit: OffsetUnitHours, Direction: OffsetBefore},
			want:   anchor.Add(-2 * time.Hour),
		},
		{
			name:   "三十分钟后",
			offset: &TimeOffset{Value: 30, Unit: OffsetUnitMinutes, Direction: OffsetAfter},
			want:   anchor.Add(30 * time.Minute),
		},
		{
			name:   "一天前",
			offset: &TimeOffset{Value: 1, Unit: OffsetUnitDays, Direction: OffsetBefore},
			want:   anchor.Add(-24 * time.Hour),
		},
		{
			name:   "nil偏移返回锚点",
			offset: nil,
			want:   anchor,
		},
		{
			name:   "零值返回锚点",
			offset: &TimeOffset{},
			want:   anchor,
		},
		{
			name:   "缺少方向返回锚点",
			offset: &TimeOffset{Value: 2, Unit: OffsetUnitHours},
			want:   anchor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.offset.Apply(anchor))
		})
	}
}
