// Package scheduler fires named jobs on cron or interval schedules.
//
// Schedules are parsed by ParseSchedule, so "@every 10m", "10m", "00:10" and
// "*/10 * * * *" are all accepted. A job never overlaps itself: a tick that
// arrives while the previous run is still going is skipped.
package scheduler
