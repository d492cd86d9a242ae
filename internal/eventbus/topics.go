package eventbus

// Event types published on the bus.
const (
	PollStarted  = "poll.started"
	PollFinished = "poll.finished"
	PollSkipped  = "poll.skipped"

	NotifySent   = "notify.sent"
	NotifyFailed = "notify.failed"

	DestinationChanged = "tracker.destination"
	SeriesFollowed     = "tracker.series_followed"
)
