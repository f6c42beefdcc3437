package replay

import (
	"time"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// Clock computes the current market-time offset for a running contest.
// Market time is derived from the base-tick index k, not from measuring
// the real time between ticker fires: deriving it as
// k*baseSeconds*compressionRatio keeps the mapping exact even if the
// scheduling ticker drifts or is delayed under load.
type Clock struct {
	wall domain.ContestState
	src  func() time.Time
}

func NewClock(state domain.ContestState, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{wall: state, src: now}
}

// MarketTimeMs returns the absolute market timestamp, in ms, for the
// given accumulated run duration (time actually spent RUNNING, excluding
// any PAUSED intervals; the caller is responsible for not advancing this
// while paused).
func (c *Clock) MarketTimeMs(ranFor time.Duration) int64 {
	return c.wall.DataStartMs + c.wall.MarketTimeAt(ranFor)
}

// AutoStopAt is the absolute wall-clock instant the contest must stop,
// independent of any pauses: Duration is measured against
// StartWallclock directly, not against accumulated run time, so a pause
// never extends the deadline.
func (c *Clock) AutoStopAt() time.Time {
	return c.wall.StartWallclock.Add(c.wall.Duration)
}

func (c *Clock) Expired() bool {
	return c.src().After(c.AutoStopAt()) || c.src().Equal(c.AutoStopAt())
}
