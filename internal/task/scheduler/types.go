package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "animebot/pkg/logx"
)

type Config struct {
	Timezone string // IANA name; empty means local time
}

// Job is the unit a schedule fires. ctx ends at the schedule timeout or when
// the service stops.
type Job func(ctx context.Context) error

type scheduleDef struct {
	name      string
	spec      ParsedSpec
	timeout   time.Duration
	job       Job
	immediate bool
	entryID   cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	parser cron.Parser

	c    *cron.Cron
	defs []*scheduleDef

	runCtx    context.Context
	runCancel context.CancelFunc
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}

// Find returns the schedule called name.
func (s Snapshot) Find(name string) (ScheduleInfo, bool) {
	for _, it := range s.Schedules {
		if it.Name == name {
			return it, true
		}
	}
	return ScheduleInfo{}, false
}
