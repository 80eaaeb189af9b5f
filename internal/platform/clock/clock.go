package clock

import "time"

// Clock は設定されたタイムゾーンで現在時刻を返します。日付計算の「今日」はこの壁時計に従います。
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New は loc を基準とする Clock を生成します。nil の場合は UTC です。
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc, now: time.Now}
}

// Now は現在時刻を返します。
func (c Clock) Now() time.Time {
	now := c.now
	if now == nil {
		now = time.Now
	}
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// Location は基準タイムゾーンを返します。
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}
