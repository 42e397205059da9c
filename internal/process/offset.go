package process

import "time"

// 时间偏移单位
const (
	OffsetUnitMinutes = "minutes"
	OffsetUnitHours   = "hours"
	OffsetUnitDays    = "days"
)

// 时间偏移方向
const (
	OffsetBefore = "before"
	OffsetAfter  = "after"
)

// Apply 基于锚点时间计算绝对执行时间
// value/unit/direction 任一缺失时不做偏移，返回锚点本身。
// 单位换算是精确时长，不涉及日历月/年运算
func (o *TimeOffset) Apply(anchor time.Time) time.Time {
	if o == nil || o.Value == 0 || o.Unit == "" || o.Direction == "" {
		return anchor
	}

	var delta time.Duration
	switch o.Unit {
	case OffsetUnitMinutes:
		delta = time.Duration(o.Value) * time.Minute
	case OffsetUnitHours:
		delta = time.Duration(o.Value) * time.Hour
	case OffsetUnitDays:
		delta = time.Duration(o.Value) * 24 * time.Hour
	}

	switch o.Direction {
	case OffsetAfter:
		return anchor.Add(delta)
	case OffsetBefore:
		return anchor.Add(-delta)
	}

	return anchor
}
