package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// immediateSchedule fires once at the first Next call, then follows base.
type immediateSchedule struct {
	base cron.Schedule
	used atomic.Bool
}

func (s *immediateSchedule) Next(t time.Time) time.Time {
	if s.used.CompareAndSwap(false, true) {
		return t
	}
	return s.base.Next(t)
}
